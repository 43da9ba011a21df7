package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/RichardoC/agroai/internal/auth"
	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"go.uber.org/zap"
)

const defaultConversationTitle = "New Conversation"

type regionOption struct {
	Code string
	Name string
}

type pageData struct {
	User          *models.User
	Error         string
	Next          string
	Username      string
	Email         string
	Conversation  *models.Conversation
	Conversations []models.Conversation
	Messages      []models.Message
	Records       []oceandata.Record
	Regions       []regionOption
}

func (h *Handler) render(w http.ResponseWriter, name string, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user, _ := h.auth.Authenticate(r)
	h.render(w, "home", http.StatusOK, pageData{User: user})
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", http.StatusOK, pageData{Next: r.URL.Query().Get("next")})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	httpx.LimitBody(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	next := r.URL.Query().Get("next")

	user, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		}
		h.render(w, "login", http.StatusOK, pageData{
			Error:    "Invalid username or password.",
			Next:     next,
			Username: username,
		})
		return
	}

	if err := h.auth.StartSession(w, user.ID); err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, auth.SafeRedirect(next, "/chat/"), http.StatusFound)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register", http.StatusOK, pageData{})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	httpx.LimitBody(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	user, err := h.auth.Register(r.Context(),
		form.Get("username"), form.Get("email"), form.Get("password1"), form.Get("password2"))
	if err != nil {
		var verr *auth.ValidationError
		if !errors.As(err, &verr) {
			h.logger.Error("registration failed", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.render(w, "register", http.StatusOK, pageData{
			Error:    verr.Message,
			Username: form.Get("username"),
			Email:    form.Get("email"),
		})
		return
	}

	h.logger.Info("user registered", zap.Int64("user_id", user.ID))
	if err := h.auth.StartSession(w, user.ID); err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/chat/", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.EndSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// ChatPage opens the user's default conversation, creating it on first visit.
func (h *Handler) ChatPage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	conv, _, err := h.db.GetOrCreateConversation(r.Context(), user.ID, defaultConversationTitle)
	if err != nil {
		h.logger.Error("failed to open conversation", zap.Int64("user_id", user.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.renderChat(w, r, user, conv)
}

func (h *Handler) ConversationPage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	conv, err := h.db.GetConversation(r.Context(), user.ID, id)
	if errors.Is(err, db.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("failed to load conversation", zap.Int64("conversation_id", id), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.renderChat(w, r, user, conv)
}

func (h *Handler) renderChat(w http.ResponseWriter, r *http.Request, user *models.User, conv *models.Conversation) {
	conversations, err := h.db.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	messages, err := h.db.GetConversationHistory(r.Context(), conv.ID, 0)
	if err != nil {
		h.logger.Error("failed to load messages", zap.Int64("conversation_id", conv.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, "chat", http.StatusOK, pageData{
		User:          user,
		Conversation:  conv,
		Conversations: conversations,
		Messages:      messages,
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	records, err := h.records.ListByUser(r.Context(), user.ID, 100)
	if err != nil {
		h.logger.Error("failed to list ocean records", zap.Int64("user_id", user.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	regions := make([]regionOption, 0, len(oceandata.RegionCodes))
	for _, code := range oceandata.RegionCodes {
		regions = append(regions, regionOption{Code: code, Name: oceandata.Regions[code]})
	}
	h.render(w, "dashboard", http.StatusOK, pageData{User: user, Records: records, Regions: regions})
}
