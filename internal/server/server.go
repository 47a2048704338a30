// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package server provides the HTTP server for the cache REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/huggingface/hfcache/pkg/hfcache"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	Port           int
	CacheDir       string   // Cache directory to operate on (not configurable via API)
	AllowedOrigins []string // CORS origins
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr: "127.0.0.1",
		Port: 8080,
	}
}

// Server is the HTTP server for hfcache.
type Server struct {
	config     Config
	cacheDir   string
	httpServer *http.Server
	wsHub      *WSHub

	// deleteMu serializes deletions: two concurrent executions over the
	// same cache would race on the filesystem.
	deleteMu sync.Mutex
}

// New creates a new server with the given configuration.
func New(cfg Config) *Server {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = hfcache.DefaultCacheDir()
	}
	return &Server{
		config:   cfg,
		cacheDir: cacheDir,
		wsHub:    NewWSHub(),
	}
}

// CacheDir returns the resolved cache directory the server operates on.
func (s *Server) CacheDir() string {
	return s.cacheDir
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Start WebSocket hub
	go s.wsHub.Run()

	mux := http.NewServeMux()
	s.registerAPIRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Addr, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on http://%s (cache: %s)", addr, s.cacheDir)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// registerAPIRoutes sets up all API endpoints.
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Cache inspection
	mux.HandleFunc("GET /api/cache", s.handleGetCache)

	// Deletion planning and execution
	mux.HandleFunc("POST /api/delete", s.handleDelete)

	// WebSocket
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			allowed := false
			if len(s.config.AllowedOrigins) == 0 {
				// Default: allow same host
				allowed = true
			} else {
				for _, o := range s.config.AllowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
