package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/streamapps/appgen/internal/api"
	"codeberg.org/streamapps/appgen/internal/config"
	"codeberg.org/streamapps/appgen/internal/db"
	"codeberg.org/streamapps/appgen/internal/generator"
	"codeberg.org/streamapps/appgen/internal/store"
	"github.com/peterbourgon/ff/v3"
)

// runServe runs the HTTP API until SIGINT or SIGTERM
func runServe(args []string) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("appgen serve", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Root directory for generated projects")
	fs.StringVar(&cfg.AppsDir, "apps-dir", cfg.AppsDir, "Directory of app descriptors (<app>/app.yaml)")
	if err := ff.Parse(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting appgen server", "version", Version)
	logger.Info("loaded configuration",
		"port", cfg.Port,
		"output_dir", cfg.OutputDir,
		"apps_dir", cfg.AppsDir,
		"boot_version", cfg.RuntimeVersion,
	)

	serverCfg := api.ServerConfig{
		OutputDir:             cfg.OutputDir,
		AppsDir:               cfg.AppsDir,
		Port:                  cfg.Port,
		CORSOrigins:           cfg.CORSOrigins,
		RuntimeVersion:        cfg.RuntimeVersion,
		MetadataPluginVersion: cfg.MetadataPluginVersion,
		SpringCloudVersion:    cfg.SpringCloudVersion,
		RequestTimeout:        cfg.RequestTimeout,
	}

	// Run history is optional
	if cfg.DatabaseURL != "" {
		database, err := db.InitDB(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to initialize database", "error", err)
			return 1
		}
		defer database.Close()
		serverCfg.Runs = store.NewRunStore(database)
		logger.Info("database initialized successfully")
	}

	if cfg.RedisAddr != "" {
		lock, err := store.NewRunLock(cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			return 1
		}
		defer lock.Close()
		serverCfg.Locker = lock
		logger.Info("shared run lock enabled", "addr", cfg.RedisAddr)
	}

	server := api.NewServer(generator.NewGenerator(nil, logger), serverCfg, logger)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		return 1
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return 1
	}

	logger.Info("server stopped gracefully")
	return 0
}
