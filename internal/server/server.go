package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/phi-sentinel/internal/audit"
	"github.com/raaihank/phi-sentinel/internal/cache"
	"github.com/raaihank/phi-sentinel/internal/config"
	"github.com/raaihank/phi-sentinel/internal/logger"
	"github.com/raaihank/phi-sentinel/internal/masking"
	"github.com/raaihank/phi-sentinel/internal/metrics"
	"github.com/raaihank/phi-sentinel/internal/websocket"
)

// Server is the de-identification HTTP service.
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	service   *masking.Service
	cache     *cache.ResultCache
	audit     *audit.Store
	limiter   *ClientLimiter
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	startTime time.Time
}

// Options carries the dependencies the server does not construct itself.
// Cache and Audit are optional; a nil value disables that integration.
type Options struct {
	Config  *config.Config
	Logger  *logger.Logger
	Service *masking.Service
	Cache   *cache.ResultCache
	Audit   *audit.Store
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Logger == nil || opts.Service == nil {
		return nil, fmt.Errorf("server requires config, logger, and masking service")
	}

	cfg := opts.Config

	// Create WebSocket hub
	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastDetections:  cfg.WebSocket.Events.BroadcastDetections,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
	}, opts.Logger.WithComponent("websocket").Logger)

	var limiter *ClientLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = NewClientLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
		limiter.StartCleanupRoutine()
	}

	// Create router
	router := mux.NewRouter()

	server := &Server{
		config:    cfg,
		logger:    opts.Logger.WithComponent("server"),
		service:   opts.Service,
		cache:     opts.Cache,
		audit:     opts.Audit,
		limiter:   limiter,
		router:    router,
		wsHub:     wsHub,
		startTime: time.Now(),
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Prometheus scrape endpoint
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// WebSocket endpoint for event streaming
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	// De-identification API
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/deidentify", s.handleDeidentify).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting PHI-Sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("recognizers", s.service.Registry().Len()),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("audit_enabled", s.audit != nil),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PHI-Sentinel server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket handles WebSocket connections for event streaming
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler { return s.router }
