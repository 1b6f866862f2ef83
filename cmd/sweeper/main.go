package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/store"
	"github.com/feral-file/castindex/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sweeper")

	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	dataStore := store.NewStore(db)

	maintenanceSweeper := sweeper.NewMaintenanceSweeper(sweeper.MaintenanceConfig{
		Interval:         cfg.Maintenance.Interval,
		DeleteUnresolved: cfg.Maintenance.DeleteUnresolved,
	}, dataStore, adapter.NewClock())

	logger.InfoCtx(ctx, "Initialized maintenance sweeper (continuous mode)",
		zap.Duration("interval", cfg.Maintenance.Interval),
		zap.Bool("delete_unresolved", cfg.Maintenance.DeleteUnresolved),
	)

	// Start the sweeper in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := maintenanceSweeper.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the sweeper
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := maintenanceSweeper.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.InfoCtx(shutdownCtx, "Sweeper stopped")
}
