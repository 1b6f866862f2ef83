package indexer

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/warpcast"
	"github.com/feral-file/castindex/internal/store"
)

// reactionCastsPerWrite is the number of casts whose reactions are merged together
const reactionCastsPerWrite = 100

// ReactionsPipeline fetches reactions of settled casts that have none on record
type ReactionsPipeline struct {
	client    warpcast.Client
	store     store.Store
	paginator *fetcher.Paginator
	clock     adapter.Clock
	cfg       config.FetchConfig
}

// NewReactionsPipeline creates the reaction pipeline
func NewReactionsPipeline(client warpcast.Client, st store.Store, paginator *fetcher.Paginator, clock adapter.Clock, cfg config.FetchConfig) *ReactionsPipeline {
	return &ReactionsPipeline{client: client, store: st, paginator: paginator, clock: clock, cfg: cfg}
}

func (p *ReactionsPipeline) Name() string { return "reactions" }

func (p *ReactionsPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	minAge := p.cfg.ReactionMinCastAge
	if minAge <= 0 {
		minAge = domain.REACTION_MIN_CAST_AGE
	}
	cutoff := ReactionCutoff(p.clock.Now(), minAge)

	hashes, err := p.store.GetReactionEligibleCasts(ctx, cutoff)
	if err != nil {
		return stats, err
	}
	logger.InfoCtx(ctx, "Fetching reactions", zap.Int("casts", len(hashes)), zap.Int64("cutoff", cutoff))

	// each chunk is persisted before the next so an aborted run keeps its progress
	for chunk := range slices.Chunk(hashes, reactionCastsPerWrite) {
		results := fetcher.Batch(ctx, chunk, p.cfg.ReactionBatchSize, p.fetchReactions)
		stats.Failed += fetcher.Failed(results)

		var reactions []domain.Reaction
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			stats.Fetched += r.Value.fetched
			stats.Dropped += r.Value.dropped
			reactions = append(reactions, r.Value.reactions...)
		}

		result, err := storeChunked(ctx, reactions, p.store.SaveReactions)
		stats.AddWrite(result)
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

type castReactions struct {
	reactions []domain.Reaction
	fetched   int
	dropped   int
}

func (p *ReactionsPipeline) fetchReactions(ctx context.Context, castHash string) (castReactions, error) {
	dtos, err := fetcher.Paginate(ctx, p.paginator, "", func(ctx context.Context, cursor string) (fetcher.Page[warpcast.Reaction], error) {
		page, err := p.client.GetCastReactions(ctx, castHash, cursor, p.cfg.ReactionsPageSize)
		if err != nil {
			return fetcher.Page[warpcast.Reaction]{}, err
		}
		return fetcher.Page[warpcast.Reaction]{Items: page.Reactions, Cursor: page.Cursor}, nil
	}, nil)
	if err != nil {
		return castReactions{}, fmt.Errorf("failed to fetch reactions of cast %s: %w", castHash, err)
	}

	reactions, dropped := extract.Reactions(ctx, castHash, dtos)
	return castReactions{reactions: reactions, fetched: len(dtos), dropped: dropped}, nil
}
