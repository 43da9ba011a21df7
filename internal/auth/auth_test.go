package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RichardoC/agroai/internal/db"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "agroai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewService(database, Config{Secret: "test-secret", TTL: time.Hour, CookieName: "sid"})
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Register(ctx, "taken", "", "secret1", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name                        string
		username, password, confirm string
		want                        string
	}{
		{"missing username", "  ", "secret1", "secret1", "Username is required."},
		{"mismatch checked before length", "bob", "abc", "abd", "Passwords do not match."},
		{"too short", "bob", "abc", "abc", "Password must be at least 6 characters long."},
		{"duplicate", "taken", "secret1", "secret1", "Username already exists."},
		{"too long for bcrypt", "bob", strings.Repeat("x", 80), strings.Repeat("x", 80), "Password must be at most 72 bytes long."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.username, "", tt.password, tt.confirm)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	user, err := s.Register(ctx, " alice ", "alice@example.com", "seashell", "seashell")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "seashell", user.PasswordHash)

	got, err := s.Login(ctx, "alice", "seashell")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Login(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody", "seashell")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokens(t *testing.T) {
	s := newTestService(t)

	token, expires, err := s.IssueToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	id, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	other := NewService(nil, Config{Secret: "other-secret"})
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	s := newTestService(t)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCookieAndBearer(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	user, err := s.Register(ctx, "alice", "", "seashell", "seashell")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, s.StartSession(rec, user.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/chat/", nil)
	req.AddCookie(cookies[0])
	got, err := s.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	req = httptest.NewRequest(http.MethodGet, "/chat/api/conversations/", nil)
	req.Header.Set("Authorization", "Bearer "+cookies[0].Value)
	got, err = s.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Authenticate(httptest.NewRequest(http.MethodGet, "/chat/", nil))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	rec = httptest.NewRecorder()
	s.EndSession(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	s := newTestService(t)
	token, _, err := s.IssueToken(999)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/chat/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = s.Authenticate(req)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireUser(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	user, err := s.Register(ctx, "alice", "", "seashell", "seashell")
	require.NoError(t, err)

	h := s.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(u.Username))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/conversation/3/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Fchat%2Fconversation%2F3%2F", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/api/conversations/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	token, _, err := s.IssueToken(user.ID)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/chat/api/conversations/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/chat/conversation/2/", SafeRedirect("/chat/conversation/2/", "/chat/"))
	assert.Equal(t, "/chat/", SafeRedirect("", "/chat/"))
	assert.Equal(t, "/chat/", SafeRedirect("https://evil.example", "/chat/"))
	assert.Equal(t, "/chat/", SafeRedirect("//evil.example", "/chat/"))
}
