package indexer

import (
	"context"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/ensdata"
	"github.com/feral-file/castindex/internal/store"
)

// EnsPipeline resolves the ENS records of every known user address
type EnsPipeline struct {
	client ensdata.Client
	store  store.Store
	cfg    config.FetchConfig
}

// NewEnsPipeline creates the ENS pipeline
func NewEnsPipeline(client ensdata.Client, st store.Store, cfg config.FetchConfig) *EnsPipeline {
	return &EnsPipeline{client: client, store: st, cfg: cfg}
}

func (p *EnsPipeline) Name() string { return "ens" }

func (p *EnsPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	addresses, err := p.store.GetUserAddresses(ctx)
	if err != nil {
		return stats, err
	}
	logger.InfoCtx(ctx, "Resolving ENS records", zap.Int("addresses", len(addresses)))

	results := fetcher.Batch(ctx, addresses, p.cfg.AddressBatchSize, func(ctx context.Context, address string) (domain.EnsRecord, error) {
		record, err := p.client.Resolve(ctx, address)
		if err != nil {
			return domain.EnsRecord{}, err
		}
		return extract.Ens(address, record), nil
	})
	stats.Failed = fetcher.Failed(results)

	records := fetcher.Values(results)
	stats.Fetched = len(records)

	result, err := storeChunked(ctx, records, p.store.SaveEnsRecords)
	stats.AddWrite(result)
	return stats, err
}
