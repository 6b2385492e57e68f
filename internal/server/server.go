// Package server provides the HTTP API for chatCAT.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marfleetn/chatCAT/internal/config"
	"github.com/marfleetn/chatCAT/internal/search"
	"github.com/marfleetn/chatCAT/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the chatCAT API.
type Server struct {
	store  storage.Store
	engine *search.Engine
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(store storage.Store, engine *search.Engine, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:  store,
		engine: engine,
		config: cfg,
		logger: logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(allowCrossOrigin)

	r.Post("/api/add", s.handleAddChat)
	r.Post("/api/notes/update", s.handleUpdateNotes)
	r.Post("/api/tags/update", s.handleUpdateTags)
	r.Post("/api/tags/add", s.handleAddTag)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/chat", s.handleGetChat)
	r.Get("/api/export", s.handleExport)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/platforms", s.handlePlatforms)
	r.Get("/api/tags", s.handleListTags)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// allowCrossOrigin permits browser userscripts on the chat platforms' origins
// to post captured conversations to this server.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
