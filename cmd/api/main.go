package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/api/server"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/query"
	"github.com/feral-file/castindex/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting castindex API")

	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)
	dataStore := store.NewStore(db)

	var translator query.Translator
	t, err := query.NewLLMTranslator(cfg.LLM, db.Dialector.Name())
	switch {
	case err == nil:
		translator = t
	case errors.Is(err, domain.ErrMissingCredential):
		logger.WarnCtx(ctx, "LLM api key not configured, only sql queries are served")
	default:
		logger.FatalCtx(ctx, "Failed to create query translator", zap.Error(err))
	}

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth:         cfg.Auth,
	}
	srv := server.New(serverConfig, dataStore, query.NewExecutor(dataStore, translator), adapter.NewClock())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}
	cancel()

	// ctx is canceled, shut down on a fresh one
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("API server stopped")
}
