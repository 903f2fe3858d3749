package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/integra/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	oauthService driving.OAuthService

	// Infrastructure
	kvBackend Pinger // Redis or PostgreSQL health check
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AllowedOrigin is the browser origin permitted by CORS,
	// typically the local React dev server.
	AllowedOrigin string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8000,
		Version:       "dev",
		AllowedOrigin: "http://localhost:3000",
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, oauthService driving.OAuthService, kvBackend Pinger) *Server {
	s := &Server{
		router:       http.NewServeMux(),
		version:      cfg.Version,
		oauthService: oauthService,
		kvBackend:    kvBackend,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      CORS(cfg.AllowedOrigin, RequestLogger(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// OAuth flow endpoints, one family per provider path segment.
	// The callback is public - it receives redirects from the providers.
	s.router.HandleFunc("POST /integrations/{provider}/authorize", s.handleAuthorize)
	s.router.HandleFunc("GET /integrations/{provider}/oauth2callback", s.handleOAuthCallback)
	s.router.HandleFunc("POST /integrations/{provider}/credentials", s.handleGetCredentials)
	s.router.HandleFunc("POST /integrations/{provider}/load", s.handleLoadItems)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
