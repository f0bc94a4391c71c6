package server

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/attempt"
	"github.com/gokatarajesh/exam-session/internal/auth"
	"github.com/gokatarajesh/exam-session/internal/config"
	"github.com/gokatarajesh/exam-session/internal/logging"
)

// NewWSUpgrader builds a websocket upgrader that accepts the configured origins.
// Requests without an Origin header (non-browser clients) are allowed.
func NewWSUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(allowedOrigins, "*") || slices.ContainsFunc(allowedOrigins, func(o string) bool {
				return strings.EqualFold(o, origin)
			})
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Dependency is a named upstream checked by /v1/ping.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// Routes groups the domain handlers mounted on the API mux.
// Nil members are skipped. Attempts requires Tokens.
type Routes struct {
	Attempts    *attempt.HTTPHandlers
	SessionWS   http.HandlerFunc
	Leaderboard http.HandlerFunc
	Tokens      auth.TokenValidator
}

// NewHTTPServer wires health, metrics and the domain routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps []Dependency, routes Routes) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, deps, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, CORS-wrapped handler tree.
func NewHandler(cfg *config.App, logger zerolog.Logger, deps []Dependency, routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps); err != nil {
			log := logging.FromContext(r.Context())
			log.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if routes.Attempts != nil && routes.Tokens != nil {
		routes.Attempts.Register(mux, auth.RequireAuth(routes.Tokens, logger))
	}

	// The socket authenticates with a token query parameter.
	if routes.SessionWS != nil {
		mux.HandleFunc("GET /ws/sessions/{sessionID}", routes.SessionWS)
	}

	if routes.Leaderboard != nil {
		mux.HandleFunc("GET /v1/leaderboards/{testID}", routes.Leaderboard)
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})

	return corsHandler(withRequestLogger(logger, mux))
}

func pingDependencies(ctx context.Context, deps []Dependency) error {
	for _, dep := range deps {
		if dep.Ping == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			return &pingError{name: dep.Name, err: err}
		}
	}
	return nil
}

type pingError struct {
	name string
	err  error
}

func (e *pingError) Error() string { return e.name + ": " + e.err.Error() }
func (e *pingError) Unwrap() error { return e.err }

// withRequestLogger tags each request with an ID and stores a scoped logger in its context.
func withRequestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := logger.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		started := time.Now()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
		reqLogger.Debug().Dur("elapsed", time.Since(started)).Msg("request handled")
	})
}
