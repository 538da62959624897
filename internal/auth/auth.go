package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	apiKeyKey    contextKey = "api_key"
	requestIDKey contextKey = "request_id"
)

// NewMiddleware requires an Authorization header and stores the key it
// carries, with the first "Bearer " removed, for pass-through to the backend.
// The key is not verified here; the backend does that.
func NewMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Generate RequestID
			requestID := uuid.New().String()
			ctx = context.WithValue(ctx, requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				Forbidden(w)
				return
			}
			key := strings.Replace(authHeader, "Bearer ", "", 1)

			ctx = context.WithValue(ctx, apiKeyKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Forbidden writes the plain-text 403 answer for unauthenticated requests.
func Forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("Not allowed"))
}

// HashKey returns a stable, non-reversible identifier for an API key, for
// use in rate limit buckets and logs.
func HashKey(key string) string {
	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Helpers to extract from context
func GetAPIKey(ctx context.Context) string {
	if key, ok := ctx.Value(apiKeyKey).(string); ok {
		return key
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Helpers for testing
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyKey, key)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
