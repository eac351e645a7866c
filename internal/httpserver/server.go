package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-news-client/internal/news"
)

// Server exposes the fetch facade over HTTP so the module can run as a
// standalone sidecar.
type Server struct {
	service *news.Service
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates the HTTP surface over the news service.
func NewServer(service *news.Service, logger *zap.Logger) *Server {
	return &Server{service: service, logger: logger}
}

// Start listens on addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	router := s.createRouter()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting news HTTP server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping news HTTP server")
	return s.server.Shutdown(ctx)
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/news/latest", s.handleLatest).Methods("GET")
	router.HandleFunc("/news/featured", s.handleFeatured).Methods("GET")
	router.HandleFunc("/news/category/{id:[0-9]+}", s.handleCategory).Methods("GET")
	router.HandleFunc("/news/search", s.handleSearch).Methods("GET")

	router.HandleFunc("/diagnostics", s.handleDiagnostics).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
