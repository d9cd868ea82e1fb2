package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/termgrid/termgrid/internal/api/http"
	"github.com/termgrid/termgrid/internal/api/middleware"
	"github.com/termgrid/termgrid/internal/config"
	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/monitoring"
	"github.com/termgrid/termgrid/internal/proctree"
	"github.com/termgrid/termgrid/internal/profile"
	"github.com/termgrid/termgrid/internal/record"
	"github.com/termgrid/termgrid/internal/session"
	"github.com/termgrid/termgrid/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	coord    *lifecycle.Coordinator
	recorder *record.Recorder
	hub      *ws.Hub
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// New creates a new server instance
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		if cfg.Logging.Development {
			logger = logging.NewDevelopment()
		} else {
			logger = logging.NewDefault()
		}
	}

	logger.Info("Initializing termgrid server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetrics()

	shell := session.DefaultShell
	if cfg.Session.Shell != "" {
		override := cfg.Session.Shell
		shell = func() string { return override }
	}

	prober := session.NewEnvProber(shell(), cfg.Session.ProbeTimeout, logger)
	registry := session.NewRegistry(session.RegistryConfig{
		EnvProber:   prober,
		DefaultCols: cfg.Session.DefaultCols,
		DefaultRows: cfg.Session.DefaultRows,
	}, logger)

	trees := proctree.NewTerminator(proctree.TerminatorConfig{}, logger)

	profiles, err := profile.Load(cfg.Profiles.Path, logger)
	if err != nil {
		logger.Warn("Failed to load profiles, continuing without", zap.Error(err))
		profiles = profile.Empty()
	}

	var recorder *record.Recorder
	if cfg.Record.Enabled {
		recorder, err = record.New(record.Config{
			Dir:      cfg.Record.Dir,
			Patterns: cfg.Record.Patterns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("recording setup: %w", err)
		}
		logger.Info("Session recording enabled", zap.String("dir", recorder.Dir()))
	}

	hub := ws.NewHub(logger)
	events := lifecycle.Events(hub)
	if recorder != nil {
		events = lifecycle.MultiEvents(hub, recorder)
	}

	coord := lifecycle.NewCoordinator(lifecycle.CoordinatorConfig{
		Registry:        registry,
		Trees:           trees,
		Events:          events,
		Shell:           shell,
		Stats:           metrics,
		FlushInterval:   cfg.Relay.FlushInterval,
		ScrollbackLimit: cfg.Scrollback.Limit,
	}, logger)

	wsHandler := ws.NewHandler(ws.Config{
		HighWatermark: cfg.Flow.HighWatermark,
		LowWatermark:  cfg.Flow.LowWatermark,
	}, coord, hub, profiles, metrics, logger)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(coord, profiles, metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Session endpoints
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.GET("/sessions/:id/scrollback", handlers.GetScrollback)
	router.DELETE("/sessions/:id", handlers.CloseSession)

	// Launch profiles
	router.GET("/profiles", handlers.ListProfiles)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully",
		zap.Int("profiles", profiles.Len()),
		zap.Bool("recording", recorder != nil),
	)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		coord:    coord,
		recorder: recorder,
		hub:      hub,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Coordinator exposes the session coordinator.
func (s *Server) Coordinator() *lifecycle.Coordinator {
	return s.coord
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, retires every session, and closes
// open transcripts. Sessions still draining when ctx expires are abandoned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	s.coord.Shutdown(ctx)

	if s.recorder != nil {
		s.recorder.CloseAll()
	}

	// WebSocket connections are hijacked and survive http.Shutdown.
	s.http.Close()

	s.logger.Info("Shutdown complete")
	s.logger.Sync()
	return nil
}
