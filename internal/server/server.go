package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/echo-social/echo-backend/internal/auth"
	"github.com/echo-social/echo-backend/internal/config"
	"github.com/echo-social/echo-backend/internal/http/handlers"
	"github.com/echo-social/echo-backend/internal/middleware"
	"github.com/echo-social/echo-backend/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, logger *slog.Logger, store storage.Store) *Server {
	mux := http.NewServeMux()

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	requireAuth := middleware.Auth(tokenManager)

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewUserHandler(store, tokenManager, &cfg).Register(mux, requireAuth)
	handlers.NewTweetHandler(store).Register(mux, requireAuth)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
