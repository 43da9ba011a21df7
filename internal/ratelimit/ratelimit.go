// Package ratelimit caps per-user message throughput with a fixed Redis window.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "agroai:rl:"

type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *zap.Logger
}

func New(client *redis.Client, limit int64, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow counts one hit against key and reports whether it is within the limit. The
// counter and its window TTL are written in one transaction; EXPIRE NX only sets the TTL
// when the key has none, so the window is fixed from the first hit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	k := keyPrefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limiter: %w", err)
	}
	n := incr.Val()
	return n <= l.limit, n, nil
}

// Middleware limits requests by keyFn. A nil Limiter passes everything through, and a
// Redis failure lets the request through with a warning.
func (l *Limiter) Middleware(keyFn func(*http.Request) string, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyFn(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ok, n, err := l.Allow(r.Context(), key)
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
			httpx.WriteJSON(w, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("rate limit exceeded (count=%d, limit=%d)", n, l.limit),
			}, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
