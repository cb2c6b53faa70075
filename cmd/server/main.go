package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/app"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/logging"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logging.SetGlobalLogger(logger)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("Connected to database")

	engine := app.New(db, cfg, logger)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(10*time.Minute, logger)
		if spec := cfg.Scheduler.SnapshotSpec; spec != "" {
			if err := sched.AddJob(spec, scheduler.NewSnapshotJob(engine.Snapshots)); err != nil {
				logger.Fatal().Err(err).Msg("Failed to register snapshot job")
			}
		}
		if spec := cfg.Scheduler.AlertSweepSpec; spec != "" {
			if err := sched.AddJob(spec, scheduler.NewAlertSweepJob(engine.Alerts, logger)); err != nil {
				logger.Fatal().Err(err).Msg("Failed to register alert sweep job")
			}
		}
		sched.Start()
	}

	// Create router
	router := api.NewRouter(api.Services{
		System:  engine.System,
		Summary: engine.Summary,
		Alert:   engine.Alerts,
	}, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if sched != nil {
		sched.Stop()
	}

	logger.Info().Msg("Server exited")
}
