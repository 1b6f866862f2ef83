package indexer

import (
	"context"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/searchcaster"
	"github.com/feral-file/castindex/internal/store"
)

// EnrichPipeline resolves the custody address and registration time of unresolved users
type EnrichPipeline struct {
	client searchcaster.Client
	store  store.Store
	cfg    config.FetchConfig
}

// NewEnrichPipeline creates the enrichment pipeline
func NewEnrichPipeline(client searchcaster.Client, st store.Store, cfg config.FetchConfig) *EnrichPipeline {
	return &EnrichPipeline{client: client, store: st, cfg: cfg}
}

func (p *EnrichPipeline) Name() string { return "enrich" }

func (p *EnrichPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	users, err := p.store.GetUnresolvedUsers(ctx)
	if err != nil {
		return stats, err
	}

	byFID := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Username == nil || *u.Username == "" {
			stats.Skipped++
			continue
		}
		byFID = append(byFID, u)
	}
	logger.InfoCtx(ctx, "Resolving registrations", zap.Int("users", len(byFID)), zap.Int("without_username", stats.Skipped))

	results := fetcher.Batch(ctx, byFID, p.cfg.AddressBatchSize, func(ctx context.Context, u domain.User) (domain.UserRegistration, error) {
		profiles, err := p.client.GetProfiles(ctx, *u.Username)
		if err != nil {
			return domain.UserRegistration{}, err
		}
		return extract.Registration(u.FID, profiles), nil
	})
	stats.Failed = fetcher.Failed(results)

	var registrations []domain.UserRegistration
	var unregistered []int64
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		stats.Fetched++
		if r.Value.RegisteredAt == domain.UNRESOLVED_REGISTRATION {
			unregistered = append(unregistered, r.Key.FID)
			continue
		}
		registrations = append(registrations, r.Value)
	}

	result, err := storeChunked(ctx, registrations, p.store.ApplyRegistrations)
	stats.AddWrite(result)
	if err != nil {
		return stats, err
	}

	// a lookup that succeeded without a registration is a failed registration; failed lookups stay for the next run
	if len(unregistered) > 0 {
		deleted, err := p.store.DeleteUnresolvedUsersByFIDs(ctx, unregistered)
		if err != nil {
			return stats, err
		}
		stats.Dropped += int(deleted)
		logger.InfoCtx(ctx, "Deleted unregistered users", zap.Int64("users", deleted))
	}
	return stats, nil
}
