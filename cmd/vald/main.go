package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ratewalk/valuation-core/internal/metrics"
	"github.com/ratewalk/valuation-core/internal/store"
	"github.com/ratewalk/valuation-core/internal/vald"
	"github.com/ratewalk/valuation-core/pkg/config"
	"github.com/ratewalk/valuation-core/pkg/logger"
)

func main() {
	var configPath string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to config file (optional)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		logger.Error("failed to apply environment overrides", "error", err)
		os.Exit(1)
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archive *store.Store
	if cfg.Storage.Path != "" {
		opened, err := store.Open(cfg.Storage.Path)
		if err != nil {
			logger.Error("failed to open run archive", "path", cfg.Storage.Path, "error", err)
			os.Exit(1)
		}
		archive = opened
		defer archive.Close()
		logger.Info("run archive opened", "path", cfg.Storage.Path)
	}

	runs := vald.NewRunStore()
	defaults := vald.NewDefaults(cfg)
	collector := metrics.NewCollector()
	executor := vald.NewRunExecutor(runs, defaults, collector, archive)
	server := vald.NewHTTPServer(runs, executor, defaults, collector, archive, cfg.Server.AllowedOrigins)

	// Hot-reload run defaults when the config file changes.
	if configPath != "" {
		go func() {
			if err := config.Watch(ctx, configPath, func(updated *config.Config) {
				defaults.Update(updated)
			}); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
