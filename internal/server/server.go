// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ricesearch/matcheval/internal/bus"
	"github.com/ricesearch/matcheval/internal/config"
	"github.com/ricesearch/matcheval/internal/evaluation"
	"github.com/ricesearch/matcheval/internal/history"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
	"github.com/ricesearch/matcheval/internal/pkg/middleware"
	"github.com/ricesearch/matcheval/internal/pkg/security"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        Config
	appCfg     *config.Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	history   history.Store
	bus       bus.Bus
	evaluator *evaluation.Evaluator
	limiter   *middleware.RateLimiter

	handler *Handler

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout. Large evaluations need room.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Version:         "dev",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    256 << 20,
	}
}

// New creates a new server with all dependencies.
func New(cfg Config, appCfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
	}

	store, err := history.NewStore(appCfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to create run history: %w", err)
	}
	s.history = store

	b, err := bus.NewBus(appCfg.Bus, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.bus = b

	if err := s.subscribeRunEvents(); err != nil {
		b.Close()
		store.Close()
		return nil, err
	}

	s.evaluator = evaluation.NewEvaluator(store, b, log)

	attrs := []any{"history", appCfg.History.Type, "bus", appCfg.Bus.Type}
	if appCfg.History.Type == "redis" {
		attrs = append(attrs, "redis_url", security.RedactURL(appCfg.History.RedisURL))
	}
	if appCfg.Bus.Type == "kafka" {
		attrs = append(attrs, "kafka_brokers", security.RedactList(bus.ParseKafkaBrokers(appCfg.Bus.KafkaBrokers)))
	}
	if appCfg.Bus.EventLog != "" {
		attrs = append(attrs, "event_log", appCfg.Bus.EventLog)
	}
	log.Info("Run services ready", attrs...)

	if appCfg.Security.RateLimit > 0 {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = float64(appCfg.Security.RateLimit)
		rlCfg.Burst = appCfg.Security.RateBurst
		rlCfg.TrustProxy = appCfg.Security.TrustProxy
		s.limiter = middleware.NewRateLimiter(rlCfg)
	}

	handler, err := NewHandler(s.evaluator, appCfg, cfg.MaxBodyBytes, log)
	if err != nil {
		s.closeServices()
		return nil, err
	}
	s.handler = handler

	return s, nil
}

// subscribeRunEvents logs every finished run announced on the bus.
func (s *Server) subscribeRunEvents() error {
	for _, topic := range []string{bus.TopicEvaluationCompleted, bus.TopicGroupingCompleted} {
		err := s.bus.Subscribe(context.Background(), topic, func(ctx context.Context, event bus.Event) error {
			s.log.Info("Run completed",
				"topic", event.Type,
				"event_id", event.ID,
				"source", event.Source,
			)
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	s.handler.RegisterRoutes(mux)

	var h http.Handler = ResponseWrapperMiddleware(mux)
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	h = middleware.Recovery(s.log)(h)
	h = middleware.Logging(s.log)(h)
	return middleware.RequestID(h)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true

	addr := s.appCfg.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Starting HTTP server",
		"addr", addr,
		"history", s.appCfg.History.Type,
		"bus", s.appCfg.Bus.Type,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server and releases its services.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
		s.started = false
	}

	s.closeServices()
	s.log.Info("Server stopped")

	return nil
}

func (s *Server) closeServices() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.log.Warn("Bus close error", "error", err)
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.log.Warn("History close error", "error", err)
		}
	}
}

// Health returns whether the server is serving.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"serving": s.Health(),
		"history": s.appCfg.History.Type,
		"bus":     s.appCfg.Bus.Type,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.cfg.Version,
	})
}
