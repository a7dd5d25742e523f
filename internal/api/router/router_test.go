package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"dinayojana/config"
	"dinayojana/internal/api/handler"
	"dinayojana/pkg/jwt"
)

func newTestRouter(t *testing.T) (*jwt.Manager, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, MaxBodyBytes: 1 << 20},
		Auth:   config.AuthConfig{JWTSecret: "router-test-secret", AccessTokenTTL: time.Hour, LoginRateLimit: 10},
	}
	mgr := jwt.NewManager(&cfg.Auth)
	// 仅验证中间件链，请求不会到达 Handler
	return mgr, Setup(cfg, &handler.Handler{}, mgr, nil, nil, zap.NewNop())
}

func TestHealth(t *testing.T) {
	_, r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, r := newTestRouter(t)

	for _, path := range []string{"/api/v1/intake", "/api/v1/timetables", "/api/v1/reviews/pending", "/api/v1/auth/me"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestRoleGroups(t *testing.T) {
	mgr, r := newTestRouter(t)
	teacher, _ := mgr.GenerateAccessToken("u-1", "teacher", "d-1")
	hod, _ := mgr.GenerateAccessToken("u-2", "hod", "d-1")

	cases := []struct {
		token string
		path  string
	}{
		{teacher, "/api/v1/reviews/pending"},
		{hod, "/api/v1/intake"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", tc.path, w.Code)
		}
	}
}
