package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"codeberg.org/streamapps/appgen/internal/catalog"
	"codeberg.org/streamapps/appgen/internal/generator"
	"codeberg.org/streamapps/appgen/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	httpSrv   *http.Server
	generator generator.GeneratorInterface
	loader    catalog.DescriptorLoader
	runs      store.RunStoreInterface
	locker    store.LockerInterface
	events    *RunEventHub
	port      int
	logger    *slog.Logger

	// requestTimeout bounds every route except the event stream
	requestTimeout time.Duration

	appsDir               string
	outputDir             string
	runtimeVersion        string
	metadataPluginVersion string
	springCloudVersion    string
	corsOrigins           []string

	// genMu serializes generation runs within this process
	genMu sync.Mutex
}

// ServerConfig holds the server settings and optional collaborators
type ServerConfig struct {
	OutputDir   string
	AppsDir     string // Descriptor catalog; empty disables /api/apps
	Port        int
	CORSOrigins []string
	// Version overrides passed to every generation request
	RuntimeVersion        string
	MetadataPluginVersion string
	SpringCloudVersion    string
	// Runs records generation history; nil disables /api/runs
	Runs store.RunStoreInterface
	// Locker serializes runs across instances; nil means in-process only
	Locker store.LockerInterface
	// RequestTimeout applies to all routes but /api/runs/events; zero means 60s
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 60 * time.Second

// NewServer creates a new HTTP server instance
func NewServer(gen generator.GeneratorInterface, cfg ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		router:                chi.NewRouter(),
		generator:             gen,
		runs:                  cfg.Runs,
		locker:                cfg.Locker,
		events:                NewRunEventHub(),
		port:                  cfg.Port,
		logger:                logger,
		appsDir:               cfg.AppsDir,
		outputDir:             cfg.OutputDir,
		runtimeVersion:        cfg.RuntimeVersion,
		metadataPluginVersion: cfg.MetadataPluginVersion,
		springCloudVersion:    cfg.SpringCloudVersion,
		corsOrigins:           cfg.CORSOrigins,
		requestTimeout:        cfg.RequestTimeout,
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = defaultRequestTimeout
	}

	if cfg.AppsDir != "" {
		loader, err := catalog.NewCachedLoader(cfg.AppsDir, catalog.DefaultCacheSize)
		if err != nil {
			s.logger.Warn("descriptor cache unavailable, loading uncached", "error", err)
			s.loader = catalog.NewLoader(cfg.AppsDir)
		} else {
			s.loader = loader
		}
		s.logger.Info("descriptor catalog enabled", "apps_dir", cfg.AppsDir)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware() {
	// Request logging
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	// CORS configuration
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting HTTP server", "addr", addr, "output_dir", s.outputDir)

	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.events.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
