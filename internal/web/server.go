// Package web runs the HTTP API for enrollment, attendance sessions, and
// exports.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/classmark/classmark/internal/backup"
	"github.com/classmark/classmark/internal/config"
	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/session"
	"github.com/classmark/classmark/internal/web/middleware"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Config   *config.Config
	Registry *registry.Registry
	Ledger   *ledger.CSV
	Sessions *session.Manager
	Backups  *backup.Manager
}

// Server represents the web server.
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server.
func NewServer(deps Deps, host string, port int) *Server {
	r := chi.NewRouter()

	s := &Server{
		deps:   deps,
		router: r,
	}

	// Set up middleware stack.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, stopping any live session so
// buffered attendance is flushed.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if sess := s.deps.Sessions.Active(); sess != nil && sess.State() != session.StateStopped {
		if err := s.deps.Sessions.Stop(sess.ID); err != nil {
			log.Printf("stopping session on shutdown: %v", err)
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
