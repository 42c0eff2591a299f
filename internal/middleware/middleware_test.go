package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"furnistore/internal/caching"
	"furnistore/internal/common"
	"furnistore/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-with-enough-bytes"

func signToken(t *testing.T, claims AdminClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func adminServer(t *testing.T) *echo.Echo {
	t.Helper()
	auth, err := NewAdminAuth(context.Background(), config.AuthConfig{JWTSecret: testSecret, AdminRole: "admin"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(auth.Close)

	e := echo.New()
	g := e.Group("/v1/admin", auth.Middleware())
	g.GET("/whoami", func(c echo.Context) error {
		userID, _ := common.GetUserIDFromContext(c.Request().Context())
		return c.String(http.StatusOK, userID)
	})
	return e
}

func doRequest(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminAuth(t *testing.T) {
	e := adminServer(t)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{
			name:   "admin role",
			token:  signToken(t, AdminClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future}}),
			status: http.StatusOK,
			body:   "user-1",
		},
		{
			name:   "admin in roles list",
			token:  signToken(t, AdminClaims{Roles: []string{"viewer", "admin"}, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2", ExpiresAt: future}}),
			status: http.StatusOK,
			body:   "user-2",
		},
		{
			name:   "missing role",
			token:  signToken(t, AdminClaims{Role: "viewer", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-3", ExpiresAt: future}}),
			status: http.StatusForbidden,
		},
		{
			name:   "expired",
			token:  signToken(t, AdminClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage",
			token:  "not.a.token",
			status: http.StatusUnauthorized,
		},
		{
			name:   "no token",
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, "/v1/admin/whoami", tt.token)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestNewAdminAuth_RequiresKeySource(t *testing.T) {
	_, err := NewAdminAuth(context.Background(), config.AuthConfig{}, zap.NewNop())
	assert.Error(t, err)
}

type limiterCache struct {
	caching.CacheService
	counts map[string]int
	err    error
}

func (l *limiterCache) IsRateLimited(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.counts[key]++
	return l.counts[key] > limit, nil
}

func TestRateLimit(t *testing.T) {
	cache := &limiterCache{counts: map[string]int{}}
	e := echo.New()
	e.Use(RateLimit(cache, 2, time.Minute, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, doRequest(e, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(e, http.MethodGet, "/ping", "").Code)
	rec := doRequest(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	cache := &limiterCache{err: errors.New("redis down")}
	e := echo.New()
	e.Use(RateLimit(cache, 1, time.Minute, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, doRequest(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestAPIVersionResolver(t *testing.T) {
	vm := NewVersionMiddleware()
	e := echo.New()
	e.Use(vm.APIVersionResolver())
	v1 := e.Group("/v1", vm.VersionHeader("v1"))
	v1.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("api_version").(string)) })
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("api_version").(string)) })

	rec := doRequest(e, http.MethodGet, "/v1/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	assert.Equal(t, "v1", doRequest(e, http.MethodGet, "/health", "").Body.String())
	assert.Equal(t, http.StatusNotFound, doRequest(e, http.MethodGet, "/v7/ping", "").Code)
}

func TestVersionHeader_Deprecated(t *testing.T) {
	vm := NewVersionMiddleware()
	sunset := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	vm.Deprecate("v1", &sunset)

	e := echo.New()
	e.GET("/v1/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, vm.VersionHeader("v1"))
	rec := doRequest(e, http.MethodGet, "/v1/ping", "")
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Equal(t, "2027-01-01T00:00:00Z", rec.Header().Get("X-API-Sunset"))
}

func TestVersionFromPath(t *testing.T) {
	assert.Equal(t, "v1", versionFromPath("/v1/products"))
	assert.Equal(t, "v12", versionFromPath("/v12"))
	assert.Equal(t, "", versionFromPath("/vault/x"))
	assert.Equal(t, "", versionFromPath("/health"))
}
