// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wallet-portfolio/internal/analytics"
	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/service"
)

// PortfolioServiceInterface defines the portfolio operations the server needs,
// kept as an interface for dependency injection and testing
type PortfolioServiceInterface interface {
	Assemble(ctx context.Context, walletAddress string, opts service.AssembleOptions) (*service.Result, error)
	History(ctx context.Context, walletAddress string) ([]models.Snapshot, error)
	Performance(ctx context.Context, walletAddress string) (analytics.Performance, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	portfolio  PortfolioServiceInterface
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, portfolio PortfolioServiceInterface) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		portfolio: portfolio,
		config:    config,
		logger:    logging.Default().WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Middleware order matters
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/portfolio/{wallet}", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/{wallet}/snapshots", s.handleCreateSnapshot).Methods("POST")
	api.HandleFunc("/portfolio/{wallet}/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/portfolio/{wallet}/performance", s.handleGetPerformance).Methods("GET")
	api.HandleFunc("/portfolio/{wallet}/export", s.handleExportPortfolio).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-portfolio",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying router for tests
func (s *Server) Router() *mux.Router {
	return s.router
}
