package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/honeynil/BizPromptService/internal/handler"
	"github.com/honeynil/BizPromptService/internal/infrastructure/auth"
	"github.com/honeynil/BizPromptService/internal/infrastructure/redis"
)

type mockRedisClient struct{ mock.Mock }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *mockRedisClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRedisClient) Close() error {
	return m.Called().Error(0)
}

func newTestRouter(t *testing.T, opts Options) (http.Handler, *auth.TokenService, *mockRedisClient) {
	t.Helper()
	tokens := auth.NewTokenService("secret", time.Hour)
	redisClient := &mockRedisClient{}
	h := handler.NewHandler(handler.Services{})
	return SetupRouter(h, auth.NewMiddleware(tokens, redisClient), opts), tokens, redisClient
}

func bearer(t *testing.T, tokens *auth.TokenService, redisClient *mockRedisClient, userID, role string) string {
	t.Helper()
	token, _, err := tokens.GenerateJWT(userID, role)
	require.NoError(t, err)
	redisClient.On("Get", mock.Anything, auth.TokenKey(userID)).Return(token, nil)
	return "Bearer " + token
}

func TestSetupRouter_AdminRoutes(t *testing.T) {
	router, tokens, redisClient := newTestRouter(t, Options{})

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("customer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
		req.Header.Set("Authorization", bearer(t, tokens, redisClient, "user-1", "customer"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		token, _, err := tokens.GenerateJWT("user-2", "admin")
		require.NoError(t, err)
		redisClient.On("Get", mock.Anything, auth.TokenKey("user-2")).Return("", redis.ErrKeyNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSetupRouter_ProtectedRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t, Options{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prompts/premium", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetupRouter_CORS(t *testing.T) {
	router, _, _ := newTestRouter(t, Options{CORSOrigins: []string{"https://bizprompt.ai"}})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/payments/create-checkout", nil)
		req.Header.Set("Origin", "https://bizprompt.ai")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://bizprompt.ai", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/prompts", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		wide, _, _ := newTestRouter(t, Options{CORSOrigins: []string{"*"}})
		req := httptest.NewRequest(http.MethodOptions, "/api/prompts", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		rec := httptest.NewRecorder()
		wide.ServeHTTP(rec, req)

		assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSetupRouter_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _, _ := newTestRouter(t, Options{HealthChecks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		}})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"OK","checks":{"postgres":"ok"}}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("degraded", func(t *testing.T) {
		router, _, _ := newTestRouter(t, Options{HealthChecks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestRequestIDMiddleware_KeepsClientID(t *testing.T) {
	router, _, _ := newTestRouter(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}
	_, err := sr.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, sr.status)

	sr = &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	sr.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, sr.status)
}
