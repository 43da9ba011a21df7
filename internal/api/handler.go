package api

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/RichardoC/agroai/internal/auth"
	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/llm"
	"github.com/RichardoC/agroai/internal/metrics"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/RichardoC/agroai/internal/ratelimit"
	"github.com/RichardoC/agroai/internal/realtime"
	"github.com/RichardoC/agroai/web"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handler struct {
	db      *db.Database
	chat    *llm.Service
	auth    *auth.Service
	records *oceandata.Repository
	rooms   realtime.Broadcaster
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
	pages   map[string]*template.Template
}

// Deps are the services the HTTP layer is built on. Limiter and Metrics may be nil.
type Deps struct {
	DB      *db.Database
	Chat    *llm.Service
	Auth    *auth.Service
	Records *oceandata.Repository
	Rooms   realtime.Broadcaster
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

var pageNames = []string{"home", "login", "register", "chat", "dashboard"}

func NewHandler(d Deps) (*Handler, error) {
	h := &Handler{
		db:      d.DB,
		chat:    d.Chat,
		auth:    d.Auth,
		records: d.Records,
		rooms:   d.Rooms,
		limiter: d.Limiter,
		metrics: d.Metrics,
		logger:  d.Logger,
		pages:   make(map[string]*template.Template, len(pageNames)),
	}
	if h.rooms == nil {
		h.rooms = realtime.NewHub()
	}
	for _, name := range pageNames {
		t, err := template.ParseFS(web.Templates, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// Routes returns the application's HTTP handler, traced and logged.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.auth.RequireUser(fn))
	}

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /login/{$}", h.LoginPage)
	mux.HandleFunc("POST /login/{$}", h.Login)
	mux.HandleFunc("GET /register/{$}", h.RegisterPage)
	mux.HandleFunc("POST /register/{$}", h.Register)
	mux.HandleFunc("/logout/{$}", h.Logout)

	private("GET /chat/{$}", h.ChatPage)
	private("GET /chat/conversation/{id}/{$}", h.ConversationPage)
	private("GET /chat/api/conversations/{$}", h.GetConversations)
	private("POST /chat/api/conversations/{$}", h.CreateConversation)
	private("PUT /chat/api/conversations/{id}/{$}", h.UpdateConversation)
	private("DELETE /chat/api/conversations/{id}/{$}", h.DeleteConversation)
	private("GET /chat/api/conversations/{id}/messages/{$}", h.GetMessages)
	private("GET /chat/api/search/{$}", h.SearchMessages)
	mux.Handle("/chat/api/process-message/{$}",
		h.auth.RequireUser(h.limiter.Middleware(userKey, http.HandlerFunc(h.ProcessMessage))))

	mux.HandleFunc("GET /ws/chat/{id}/{$}", h.ChatSocket)

	private("GET /data/{$}", h.Dashboard)
	private("GET /data/api/records/{$}", h.ListRecords)
	private("POST /data/api/records/{$}", h.CreateRecord)

	mux.Handle("GET /metrics", h.metrics.Handler())
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /static/", http.FileServerFS(web.Static))

	return otelhttp.NewHandler(h.observe(mux), "agroai.http")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		httpx.WriteJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	httpx.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func userKey(r *http.Request) string {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return ""
	}
	return "user:" + strconv.FormatInt(user.ID, 10)
}

func currentUser(r *http.Request) *models.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid conversation id")
	}
	return id, nil
}

// flexID accepts an id sent either as a JSON number or as a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexID(n)
	return nil
}
