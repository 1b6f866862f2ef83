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
	"gorm.io/gorm"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/ratelimit"
	"github.com/feral-file/castindex/internal/store"
)

const usage = `Usage: castindex [-config file] [-env dir] <command> [arguments]

Commands:
  refresh users|casts|reactions|enrich|ens|transactions|all
  maintain [-loop] [-delete-unresolved]
  snapshot create
  snapshot download [-url url] [-sha256 hex] [-import]
  snapshot import <archive>
  query -sql|-nl|-advanced [-csv] <input>
`

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// app holds what every command needs
type app struct {
	cfg   *config.IndexerConfig
	db    *gorm.DB
	store store.Store
	clock adapter.Clock
	fs    adapter.FileSystem
	http  adapter.HTTPClient
	json  adapter.JSON
	// limiter throttles each upstream API separately
	limiter ratelimit.Limiter
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"refresh":  runRefresh,
	"maintain": runMaintain,
	"snapshot": runSnapshot,
	"query":    runQuery,
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "castindex",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	a, err := newApp(cfg)
	if err != nil {
		logger.Error(err, zap.String("driver", cfg.Database.Driver))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}

	err = cmd(ctx, a, flag.Args()[1:])
	a.close()
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("command", flag.Arg(0)))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
	logger.Flush(2 * time.Second)
}

func newApp(cfg *config.IndexerConfig) (*app, error) {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}
	limiter, err := ratelimit.NewLimiter(cfg.RateLimits)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	return &app{
		cfg:   cfg,
		db:    db,
		store: store.NewStore(db),
		clock: adapter.NewClock(),
		fs:    adapter.NewFileSystem(),
		json:  adapter.NewJSON(),
		http: adapter.NewHTTPClient(cfg.Fetch.RequestTimeout, adapter.RetryConfig{
			MaxAttempts: cfg.Fetch.RetryAttempts,
			Delay:       cfg.Fetch.RetryDelay,
		}),
		limiter: limiter,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// providerHTTP returns the shared HTTP client throttled for provider
func (a *app) providerHTTP(provider string) adapter.HTTPClient {
	return ratelimit.NewHTTPClient(a.http, a.limiter, provider)
}
