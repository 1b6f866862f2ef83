package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/warpcast"
	"github.com/feral-file/castindex/internal/store"
)

// CastsPipeline fetches casts newer than the stored checkpoint
type CastsPipeline struct {
	client    warpcast.Client
	store     store.Store
	paginator *fetcher.Paginator
	cfg       config.FetchConfig
}

// NewCastsPipeline creates the cast pipeline
func NewCastsPipeline(client warpcast.Client, st store.Store, paginator *fetcher.Paginator, cfg config.FetchConfig) *CastsPipeline {
	return &CastsPipeline{client: client, store: st, paginator: paginator, cfg: cfg}
}

func (p *CastsPipeline) Name() string { return "casts" }

func (p *CastsPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	since, err := p.store.GetLatestCastTimestamp(ctx)
	if err != nil {
		return stats, err
	}
	checkpoint := CastCheckpoint{Since: since}
	logger.InfoCtx(ctx, "Fetching casts", zap.Int64("checkpoint", since))

	dtos, err := fetcher.Paginate(ctx, p.paginator, "", func(ctx context.Context, cursor string) (fetcher.Page[warpcast.Cast], error) {
		page, err := p.client.GetRecentCasts(ctx, cursor, p.cfg.CastsPageSize)
		if err != nil {
			return fetcher.Page[warpcast.Cast]{}, err
		}
		return fetcher.Page[warpcast.Cast]{Items: page.Casts, Cursor: page.Cursor}, nil
	}, checkpoint.Stop)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch casts: %w", err)
	}
	stats.Fetched = len(dtos)

	casts, dropped := extract.Casts(ctx, dtos)
	stats.Dropped += dropped

	kept := checkpoint.Filter(casts)
	stats.Skipped += len(casts) - len(kept)

	result, err := storeChunked(ctx, kept, p.store.SaveCasts)
	stats.AddWrite(result)
	return stats, err
}
