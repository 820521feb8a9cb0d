// Package main provides the entry point for the webpilot server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jmylchreest/webpilot/internal/api"
	"github.com/jmylchreest/webpilot/internal/api/handlers"
	"github.com/jmylchreest/webpilot/internal/cache"
	"github.com/jmylchreest/webpilot/internal/config"
	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/http/mw"
	"github.com/jmylchreest/webpilot/internal/logging"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/pool"
	"github.com/jmylchreest/webpilot/internal/shutdown"
	"github.com/jmylchreest/webpilot/internal/snapshot"
	"github.com/jmylchreest/webpilot/internal/version"
)

func main() {
	// Load configuration first (logging config comes from env)
	cfg := config.Load()

	// Initialize logger using slog-logfilter (respects LOG_LEVEL, LOG_FORMAT env vars)
	logger := logging.SetDefault()

	logger.Info("starting webpilot server",
		"version", version.Get().Version,
		"port", cfg.Port,
		"pool_capacity", cfg.PoolCapacity,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot persistence (optional)
	var snapshotStore page.SnapshotStore
	if cfg.SnapshotDBPath != "" {
		store, err := snapshot.NewSQLiteStore(cfg.SnapshotDBPath, logger)
		if err != nil {
			logger.Error("failed to open snapshot store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		snapshotStore = store
	}

	// Session handle cache
	sessionCache, err := cache.New[*page.Session](cache.Options{
		Provider: cfg.CacheProvider,
		MaxItems: cfg.CacheMaxItems,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		logger.Error("failed to create session cache", "error", err)
		os.Exit(1)
	}

	// Browser engine (browsers launch on demand)
	eng := engine.NewRodEngine(engine.RodConfig{
		ChromePath:     cfg.ChromePath,
		Headless:       true,
		DisableStealth: cfg.DisableStealth,
		Logger:         logger,
	})

	// Pool admin owns every pool, browser and session
	admin := pool.NewAdmin(eng, pool.AdminOptions{
		DefaultCapacity:       cfg.PoolCapacity,
		MaxSessionsPerBrowser: cfg.MaxSessionsPerBrowser,
		SessionCache:          sessionCache,
		SessionConfig: page.Config{
			WaitContentInterval: cfg.WaitContentInterval,
			WaitContentTimeout:  cfg.WaitContentTimeout,
			Store:               snapshotStore,
			Logger:              logger,
		},
		Logger: logger,
	})
	defer admin.Close()

	// Idle-session reaper (opt-in)
	if cfg.ReapInterval > 0 {
		admin.StartReaper(ctx, cfg.ReapInterval, cfg.SessionIdleThreshold)
		logger.Info("idle session reaper enabled",
			"interval", cfg.ReapInterval,
			"threshold", cfg.SessionIdleThreshold,
		)
	}

	// Initialize handlers
	apiHandlers := &api.Handlers{
		Health:   handlers.NewHealthHandler(admin),
		Pools:    handlers.NewPoolsHandler(admin, logger),
		Sessions: handlers.NewSessionsHandler(admin, cfg.ActionTimeout, logger),
	}

	// Idle monitor for scale-to-zero deployments
	idleMonitor := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout: cfg.IdleTimeout,
		Logger:  logger,
	})
	idleMonitor.Start()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.ActionTimeout + 30*time.Second))
	r.Use(idleMonitor.Middleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Rate limiting (optional)
	if cfg.RateLimitRPM > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))
		logger.Info("rate limiting enabled", "rpm", cfg.RateLimitRPM)
	}

	// Create Huma API
	humaConfig := huma.DefaultConfig("WebPilot", version.Get().Version)
	humaConfig.Info.Description = "Remote headless-browser automation control plane"
	publicAPI := humachi.New(r, humaConfig)

	// Register health endpoint (no auth required)
	api.RegisterHealth(publicAPI, apiHandlers)

	// Protected routes
	authEnabled := cfg.AuthSecret != "" && !cfg.AllowUnauthenticated
	if authEnabled {
		logger.Info("authentication middleware enabled")
	} else if cfg.AllowUnauthenticated {
		logger.Warn("authentication disabled - ALLOW_UNAUTHENTICATED is set")
	} else {
		logger.Warn("no AUTH_SECRET configured - service is unprotected")
	}

	protectedRouter := chi.NewRouter()
	if authEnabled {
		protectedRouter.Use(mw.Auth(mw.AuthConfig{
			Secret: cfg.AuthSecret,
			Logger: logger,
		}))
	}
	protectedAPI := humachi.New(protectedRouter, humaConfig)
	api.Register(protectedAPI, apiHandlers)

	// Mount protected routes on main router
	r.Mount("/", protectedRouter)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ActionTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal or idle shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-idleMonitor.ShutdownChan():
		logger.Info("idle timeout reached")
	}

	logger.Info("shutting down server...")

	// Cancel context to stop background tasks
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
