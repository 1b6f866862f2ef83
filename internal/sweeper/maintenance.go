package sweeper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/store"
)

const (
	DEFAULT_SWEEP_INTERVAL = 6 * time.Hour // Time to sleep between sweep cycles
)

// MaintenanceConfig holds configuration for the maintenance sweeper
type MaintenanceConfig struct {
	Interval time.Duration // Time between two sweeps in loop mode
	// DeleteUnresolved removes every unresolved user, including those enrichment has not reached yet
	DeleteUnresolved bool
}

// Report is the outcome of one sweep
type Report struct {
	DuplicateAssociations int64
	UnresolvedUsers       int64
}

// MaintenanceSweeper removes duplicate associations and stale unresolved users
type MaintenanceSweeper struct {
	config    MaintenanceConfig
	store     store.Store
	clock     adapter.Clock
	running   atomic.Bool
	mu        sync.Mutex // guards the stop channels, which are recreated by every Start
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewMaintenanceSweeper creates a new maintenance sweeper
func NewMaintenanceSweeper(config MaintenanceConfig, st store.Store, clock adapter.Clock) *MaintenanceSweeper {
	if config.Interval <= 0 {
		config.Interval = DEFAULT_SWEEP_INTERVAL
	}
	return &MaintenanceSweeper{
		config: config,
		store:  st,
		clock:  clock,
	}
}

// Name returns the sweeper's name
func (s *MaintenanceSweeper) Name() string {
	return "maintenance-sweeper"
}

// Sweep runs one maintenance pass
func (s *MaintenanceSweeper) Sweep(ctx context.Context) (Report, error) {
	var report Report
	startTime := s.clock.Now()

	deleted, err := s.store.DeleteDuplicateAssociations(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to delete duplicate associations: %w", err)
	}
	report.DuplicateAssociations = deleted

	if s.config.DeleteUnresolved {
		deleted, err = s.store.DeleteUnresolvedUsers(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to delete unresolved users: %w", err)
		}
		report.UnresolvedUsers = deleted
	}

	logger.InfoCtx(ctx, "Sweep completed",
		zap.Duration("duration", s.clock.Now().Sub(startTime)),
		zap.Int64("duplicate_associations", report.DuplicateAssociations),
		zap.Int64("unresolved_users", report.UnresolvedUsers),
	)
	return report, nil
}

// Start sweeps immediately and then every interval until the context is canceled or Stop is called
func (s *MaintenanceSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.stopOnce = sync.Once{}
	s.stopChan = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	stopChan, stoppedCh := s.stopChan, s.stoppedCh
	s.mu.Unlock()

	defer func() {
		s.running.Store(false)
		close(stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting maintenance sweeper", zap.Duration("interval", s.config.Interval))

	for {
		if _, err := s.Sweep(ctx); err != nil {
			logger.ErrorCtx(ctx, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Maintenance sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-stopChan:
			logger.InfoCtx(ctx, "Maintenance sweeper stop requested")
			return nil
		case <-s.clock.After(s.config.Interval):
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *MaintenanceSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return nil // Not running
	}
	stopChan, stoppedCh := s.stopChan, s.stoppedCh
	s.stopOnce.Do(func() { close(stopChan) })
	s.mu.Unlock()

	logger.InfoCtx(ctx, "Stopping maintenance sweeper")

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-stoppedCh:
		logger.InfoCtx(ctx, "Maintenance sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Maintenance sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

var _ Sweeper = (*MaintenanceSweeper)(nil)
