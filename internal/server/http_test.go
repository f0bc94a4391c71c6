package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-session/internal/config"
)

func testConfig() *config.App {
	return &config.App{
		HTTPAddr: "127.0.0.1:0",
		CORS: config.CORS{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         60,
		},
	}
}

func TestHealthz(t *testing.T) {
	h := NewHandler(testConfig(), zerolog.Nop(), nil, Routes{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPingReportsFailingDependency(t *testing.T) {
	deps := []Dependency{
		{Name: "postgres", Ping: func(context.Context) error { return nil }},
		{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	}
	h := NewHandler(testConfig(), zerolog.Nop(), deps, Routes{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPingHealthy(t *testing.T) {
	deps := []Dependency{{Name: "postgres", Ping: func(context.Context) error { return nil }}}
	h := NewHandler(testConfig(), zerolog.Nop(), deps, Routes{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pong":true}`, rec.Body.String())
}

func TestLeaderboardRouteUsesPathValue(t *testing.T) {
	var got string
	routes := Routes{Leaderboard: func(w http.ResponseWriter, r *http.Request) {
		got = r.PathValue("testID")
		w.WriteHeader(http.StatusNoContent)
	}}
	h := NewHandler(testConfig(), zerolog.Nop(), nil, routes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboards/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc", got)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(testConfig(), zerolog.Nop(), nil, Routes{})

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWSUpgraderOriginCheck(t *testing.T) {
	up := NewWSUpgrader([]string{"http://localhost:3000"})
	require.NotNil(t, up.CheckOrigin)

	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/x", nil)
	assert.True(t, up.CheckOrigin(req), "missing origin is allowed")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))

	wildcard := NewWSUpgrader([]string{"*"})
	assert.True(t, wildcard.CheckOrigin(req))
}
