// Package indexer runs the fetch-and-merge pipelines that keep the local store in sync with upstream.
package indexer

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/store"
	"github.com/feral-file/castindex/internal/store/schema"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Pipeline fetches one entity from upstream and merges it into the store
type Pipeline interface {
	// Name identifies the pipeline in logs and the run journal
	Name() string
	// Run performs one incremental refresh
	Run(ctx context.Context) (Stats, error)
}

// Runner executes pipelines and journals every run
type Runner struct {
	store store.Store
	clock adapter.Clock
}

// NewRunner creates a new pipeline runner
func NewRunner(st store.Store, clock adapter.Clock) *Runner {
	return &Runner{store: st, clock: clock}
}

// Run executes p under a fresh run id. The run is recorded as running before p starts and
// updated with its stats and outcome afterwards.
func (r *Runner) Run(ctx context.Context, p Pipeline) (Stats, error) {
	startedAt := r.clock.Now()
	run := &schema.FetchRun{
		ID:        ulid.MustNewDefault(startedAt).String(),
		Pipeline:  p.Name(),
		Status:    RunStatusRunning,
		StartedAt: startedAt,
	}
	ctx = logger.WithFields(ctx, zap.String("run_id", run.ID), zap.String("pipeline", run.Pipeline))

	if err := r.store.CreateFetchRun(ctx, run); err != nil {
		return Stats{}, fmt.Errorf("failed to record fetch run: %w", err)
	}
	logger.InfoCtx(ctx, "Pipeline started")

	stats, runErr := p.Run(ctx)

	endedAt := r.clock.Now()
	run.EndedAt = &endedAt
	run.Fetched = stats.Fetched
	run.Inserted = stats.Inserted
	run.Merged = stats.Merged
	run.Skipped = stats.Skipped
	run.Dropped = stats.Dropped
	run.Status = RunStatusSucceeded
	if runErr != nil {
		run.Status = RunStatusFailed
		msg := runErr.Error()
		run.Error = &msg
	}

	if err := r.store.UpdateFetchRun(ctx, run); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to update fetch run: %w", err))
	}

	if runErr != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("pipeline %s failed: %w", p.Name(), runErr), stats.Fields()...)
		return stats, runErr
	}

	logger.InfoCtx(ctx, "Pipeline finished",
		append(stats.Fields(), zap.Duration("duration", endedAt.Sub(startedAt)))...)
	return stats, nil
}
