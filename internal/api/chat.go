package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/llm"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/realtime"
	"go.uber.org/zap"
)

const listTimeFormat = "2006-01-02 15:04"

type conversationSummary struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

func summarize(c models.Conversation) conversationSummary {
	return conversationSummary{ID: c.ID, Title: c.Title, UpdatedAt: c.UpdatedAt.Format(listTimeFormat)}
}

type titleRequest struct {
	Title string `json:"title"`
}

type processRequest struct {
	ConversationID flexID `json:"conversation_id"`
	Message        string `json:"message"`
}

// roomFrame is what every socket in a conversation's room receives.
type roomFrame struct {
	Message     any    `json:"message"`
	UserMessage string `json:"user_message,omitempty"`
	MessageID   int64  `json:"message_id,omitempty"`
}

func chatError(w http.ResponseWriter, msg string, code int) {
	httpx.WriteJSON(w, map[string]any{"success": false, "error": msg}, code)
}

// GetConversations lists the user's conversations, most recently updated first.
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	conversations, err := h.db.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to get conversations",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]conversationSummary, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, summarize(c))
	}
	httpx.WriteJSON(w, out, http.StatusOK)
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	req, err := httpx.Decode[titleRequest](w, r)
	if err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultConversationTitle
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		httpx.WriteError(w, "Title is too long", http.StatusBadRequest)
		return
	}

	conv, err := h.db.CreateConversation(r.Context(), user.ID, title)
	if err != nil {
		h.logger.Error("failed to create conversation", zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, summarize(*conv), http.StatusCreated)
}

func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := httpx.Decode[titleRequest](w, r)
	if err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > models.MaxTitleLength {
		httpx.WriteError(w, "Title must be between 1 and 200 characters", http.StatusBadRequest)
		return
	}

	err = h.db.UpdateConversationTitle(r.Context(), user.ID, id, title)
	if errors.Is(err, db.ErrNotFound) {
		httpx.WriteError(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to update conversation", zap.Int64("conversation_id", id), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conv, err := h.db.GetConversation(r.Context(), user.ID, id)
	if err != nil {
		h.logger.Error("failed to reload conversation", zap.Int64("conversation_id", id), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, summarize(*conv), http.StatusOK)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.db.DeleteConversation(r.Context(), user.ID, id)
	if errors.Is(err, db.ErrNotFound) {
		httpx.WriteError(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete conversation", zap.Int64("conversation_id", id), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMessages returns the full transcript, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.db.GetConversation(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, "Conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load conversation", zap.Int64("conversation_id", id), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	messages, err := h.db.GetConversationHistory(r.Context(), id, 0)
	if err != nil {
		h.logger.Error("failed to get messages", zap.Int64("conversation_id", id), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, messages, http.StatusOK)
}

func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpx.WriteError(w, "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	results, err := h.db.SearchMessages(r.Context(), currentUser(r).ID, query, 50)
	if err != nil {
		h.logger.Error("failed to search messages", zap.String("query", query), zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, results, http.StatusOK)
}

// ProcessMessage answers one chat message over plain HTTP. Errors keep the
// {"success": false, "error": ...} shape the chat client expects.
func (h *Handler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		chatError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	user := currentUser(r)

	req, err := httpx.Decode[processRequest](w, r)
	if httpx.TooLarge(err) {
		chatError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		chatError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ConversationID <= 0 || req.Message == "" {
		chatError(w, "Missing conversation_id or message", http.StatusBadRequest)
		return
	}
	convID := int64(req.ConversationID)

	res, err := h.chat.ProcessMessage(r.Context(), user.ID, convID, req.Message)
	if errors.Is(err, db.ErrNotFound) {
		chatError(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to process message",
			zap.Int64("conversation_id", convID),
			zap.Error(err))
		chatError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.broadcast(r.Context(), convID, req.Message, res)
	httpx.WriteJSON(w, map[string]any{
		"success":    true,
		"response":   res.Response,
		"message_id": res.MessageID,
	}, http.StatusOK)
}

// broadcast shares a processed exchange with every socket joined to the conversation.
func (h *Handler) broadcast(ctx context.Context, convID int64, userMessage string, res *llm.Result) {
	payload, err := json.Marshal(roomFrame{
		Message:     res.Response,
		UserMessage: userMessage,
		MessageID:   res.MessageID,
	})
	if err != nil {
		h.logger.Error("failed to encode room frame", zap.Error(err))
		return
	}
	if err := h.rooms.Publish(ctx, realtime.RoomName(convID), payload); err != nil {
		h.logger.Warn("failed to broadcast reply",
			zap.Int64("conversation_id", convID),
			zap.Error(err))
	}
}
