package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/sweeper"
)

func runMaintain(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("maintain", flag.ContinueOnError)
	deleteUnresolved := fs.Bool("delete-unresolved", a.cfg.Maintenance.DeleteUnresolved, "Remove every unresolved user, including those not enriched yet")
	loop := fs.Bool("loop", false, "Keep sweeping every maintenance.interval until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := sweeper.NewMaintenanceSweeper(sweeper.MaintenanceConfig{
		Interval:         a.cfg.Maintenance.Interval,
		DeleteUnresolved: *deleteUnresolved,
	}, a.store, a.clock)

	if *loop {
		return s.Start(ctx)
	}

	report, err := s.Sweep(ctx)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Maintenance done",
		zap.Int64("duplicate_associations", report.DuplicateAssociations),
		zap.Int64("unresolved_users", report.UnresolvedUsers),
	)
	return nil
}
