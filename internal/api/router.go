// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/slidesmith/internal/api/handlers"
	"github.com/wingedpig/slidesmith/internal/api/middleware"
	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/internal/generator"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host         string
	Port         int
	TLSCert      string // Path to TLS certificate file
	TLSKey       string // Path to TLS private key file
	TailscaleTLS bool   // Serve certificates issued by the local tailscaled
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Generation *handlers.GenerationHandler
	EventBus   events.Bus
	Pool       *generator.Pool
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	r.NotFoundHandler = middleware.Logging(http.HandlerFunc(handlers.NotFound))
	r.MethodNotAllowedHandler = middleware.Logging(http.HandlerFunc(handlers.MethodNotAllowed))

	// Routes are registered on the root router; mux only reports a method mismatch
	// for routes it matched directly.
	api := &prefixed{r: r, prefix: "/api"}

	healthHandler := handlers.NewHealthHandler(deps.Pool)
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Generation (SSE)
	if gen := deps.Generation; gen != nil {
		api.HandleFunc("/generate", gen.Generate).Methods("POST", "OPTIONS")
		api.HandleFunc("/edit", gen.Edit).Methods("POST", "OPTIONS")
		api.HandleFunc("/edit-design-system", gen.EditDesignSystem).Methods("POST", "OPTIONS")
		api.HandleFunc("/apply-design-system", gen.ApplyDesignSystem).Methods("POST", "OPTIONS")
		api.HandleFunc("/create-design-system", gen.CreateDesignSystem).Methods("POST", "OPTIONS")
		api.HandleFunc("/assess-design-system", gen.AssessDesignSystem).Methods("POST", "OPTIONS")
	}

	// Events
	if deps.EventBus != nil {
		eventHandler := handlers.NewEventHandler(deps.EventBus)
		api.HandleFunc("/events", eventHandler.History).Methods("GET")
		api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")
	}

	return r
}

// prefixed registers routes under a path prefix on one router.
type prefixed struct {
	r      *mux.Router
	prefix string
}

func (p *prefixed) HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *mux.Route {
	return p.r.HandleFunc(p.prefix+path, f)
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig

	mu       sync.Mutex
	server   *http.Server
	shutdown bool
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe starts the server. HTTPS is used when tls_cert and tls_key are set,
// or when certificates come from Tailscale.
func (s *Server) ListenAndServe() error {
	addr := s.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = srv
	s.mu.Unlock()

	setup, err := s.cfg.resolveTLS()
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	if setup.mode != tlsOff {
		certFile, keyFile := setup.apply(srv)
		log.Printf("API server listening on https://%s (%s)", addr, setup)
		return srv.ListenAndServeTLS(certFile, keyFile)
	}

	log.Printf("API server listening on http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server. Open SSE streams only end when their
// generator does, so callers stop the generators first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	// Create a timeout context if none provided
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return srv.Shutdown(shutdownCtx)
}
