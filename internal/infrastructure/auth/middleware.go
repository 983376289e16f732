package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/honeynil/BizPromptService/internal/infrastructure/redis"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware authenticates bearer tokens against the signing key and the
// token stored in Redis at login, so logging in again revokes older tokens.
type Middleware struct {
	tokens *TokenService
	redis  redis.RedisClient
}

func NewMiddleware(tokens *TokenService, redisClient redis.RedisClient) *Middleware {
	return &Middleware{tokens: tokens, redis: redisClient}
}

// Required rejects requests without a valid token.
func (m *Middleware) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, status, msg := m.authenticate(r)
		if claims == nil {
			writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Optional attaches claims when a valid token is present and otherwise lets
// the request through anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		if claims, _, _ := m.authenticate(r); claims != nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly must run after Required.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if claims.Role != "admin" {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Claims, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, http.StatusUnauthorized, "invalid authorization header"
	}

	tokenStr := strings.TrimSpace(parts[1])
	claims, err := m.tokens.ValidateJWT(tokenStr)
	if err != nil {
		return nil, http.StatusUnauthorized, "invalid token"
	}

	storedToken, err := m.redis.Get(r.Context(), TokenKey(claims.UserID))
	if err != nil || storedToken != tokenStr {
		slog.Warn("invalid or revoked token", "user_id", claims.UserID, "error", err)
		return nil, http.StatusUnauthorized, "invalid or revoked token"
	}
	return claims, 0, ""
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
