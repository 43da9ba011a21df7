// Package auth registers users, checks passwords and issues signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer            = "agroai"
	MinPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrUnauthenticated    = errors.New("authentication required")
)

// ValidationError carries a message fit to show on the registration form.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Config struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	SecureCookie bool
}

type Service struct {
	db     *db.Database
	cfg    Config
	secret []byte
	now    func() time.Time
}

func NewService(database *db.Database, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "agroai_session"
	}
	return &Service{
		db:     database,
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
	}
}

// Register validates the form, hashes the password and stores the user. Form problems are
// returned as *ValidationError, checked in the order the form shows them.
func (s *Service) Register(ctx context.Context, username, email, password, confirm string) (*models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, &ValidationError{"Username is required."}
	case password != confirm:
		return nil, &ValidationError{"Passwords do not match."}
	case len([]rune(password)) < MinPasswordLength:
		return nil, &ValidationError{fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength)}
	}

	exists, err := s.db.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ValidationError{"Username already exists."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &ValidationError{"Password must be at most 72 bytes long."}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrUsernameUsed) {
			return nil, &ValidationError{"Username already exists."}
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *Service) IssueToken(userID int64) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (s *Service) ParseToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
