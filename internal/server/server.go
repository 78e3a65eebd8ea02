// Package server exposes the document chat API over HTTP: uploads,
// streaming chat, index management, and session history.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"docchat/internal/config"
	"docchat/internal/llm"
	"docchat/internal/rag"
	"docchat/internal/session"
)

// Server wires the retrieval pipeline, session store, and LLM provider
// into the HTTP API.
type Server struct {
	cfg      *config.Config
	pipeline *rag.Pipeline
	sessions *session.Store
	llm      llm.Provider
	router   chi.Router

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a new server with all dependencies.
func New(cfg *config.Config, pipeline *rag.Pipeline, sessions *session.Store, provider llm.Provider) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		sessions: sessions,
		llm:      provider,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The chat stream can outlive the default timeout, so it is applied
	// per-route instead of globally.
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.Server.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))
		r.Post("/upload", s.handleUpload)
		r.Get("/documents/status", s.handleDocumentsStatus)
		r.Post("/documents/clear", s.handleDocumentsClear)
		r.Get("/sessions/{sessionID}", s.handleSessionHistory)
	})

	r.Post("/chat", s.handleChat)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Router returns the chi router, mainly for tests and for registering
// additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Info().Str("addr", addr).Msg("docchat server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// A graceful Shutdown is a clean exit, not a failure.
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
