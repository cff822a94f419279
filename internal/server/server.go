package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sentinelops/sentinel-ai/internal/audit"
	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/config"
	"github.com/sentinelops/sentinel-ai/internal/db"
	"github.com/sentinelops/sentinel-ai/internal/middleware"
	"github.com/sentinelops/sentinel-ai/internal/orchestrator"
)

// Server exposes the alert-processing pipeline over HTTP: alert
// submission, run history, capability discovery, a WebSocket event
// stream, and the usual health and metrics endpoints.
type Server struct {
	cfg *config.Config

	processor orchestrator.Processor
	engine    orchestrator.Engine
	registry  *capability.Registry
	store     db.Store
	auditLog  audit.Logger
	logger    *zap.Logger
	limiter   *middleware.RateLimiter

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// Deps carries the wired components the server serves. All fields
// except Logger are required.
type Deps struct {
	Config    *config.Config
	Processor orchestrator.Processor
	Engine    orchestrator.Engine
	Registry  *capability.Registry
	Store     db.Store
	AuditLog  audit.Logger
	Logger    *zap.Logger
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if deps.Processor == nil || deps.Engine == nil || deps.Registry == nil {
		return nil, fmt.Errorf("processor, engine and registry are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       deps.Config,
		processor: deps.Processor,
		engine:    deps.Engine,
		registry:  deps.Registry,
		store:     deps.Store,
		auditLog:  deps.AuditLog,
		logger:    deps.Logger,
		limiter:   middleware.NewRateLimiter(deps.Config.RateLimit.RequestsPerMinute),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins serving. It returns once the listener goroutine is
// launched; use Stop for graceful shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // alert processing is synchronous
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests and releases resources.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}

	s.cancel()
	s.wg.Wait()
	s.limiter.Stop()
	return nil
}

// Wait blocks until the server is stopped.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler builds the full route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/api/v1/alerts/stream", s.handleAlertStream)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunByID)
	mux.HandleFunc("/api/v1/capabilities", s.handleCapabilities)
	mux.HandleFunc("/api/v1/audit", s.handleAuditQuery)

	return s.limiter.Wrap(mux)
}
