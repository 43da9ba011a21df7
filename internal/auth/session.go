package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/models"
)

type ctxKey struct{}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*models.User)
	return user, ok && user != nil
}

// StartSession issues a token and stores it in the session cookie.
func (s *Service) StartSession(w http.ResponseWriter, userID int64) error {
	token, expires, err := s.IssueToken(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Service) EndSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate resolves the request's user from the session cookie or a Bearer header.
func (s *Service) Authenticate(r *http.Request) (*models.User, error) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(h[len("Bearer "):])
	} else if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.db.GetUserByID(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

// RequireUser rejects anonymous requests: API callers get 401, pages redirect to the
// login form with the original location in next.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.Authenticate(r)
		if err != nil {
			if httpx.WantsJSON(r) {
				httpx.WriteError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login/?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// SafeRedirect returns next when it is a local path, otherwise fallback.
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
