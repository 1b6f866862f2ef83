package indexer

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/alchemy"
	"github.com/feral-file/castindex/internal/store"
)

// transactionAddressesPerWrite is the number of addresses whose transfers are merged together
const transactionAddressesPerWrite = 50

// TransactionsPipeline fetches asset transfers of every user address since its last stored block
type TransactionsPipeline struct {
	client    alchemy.Client
	store     store.Store
	paginator *fetcher.Paginator
	cfg       config.FetchConfig
}

// NewTransactionsPipeline creates the transaction pipeline
func NewTransactionsPipeline(client alchemy.Client, st store.Store, paginator *fetcher.Paginator, cfg config.FetchConfig) *TransactionsPipeline {
	return &TransactionsPipeline{client: client, store: st, paginator: paginator, cfg: cfg}
}

func (p *TransactionsPipeline) Name() string { return "transactions" }

type addressTransfers struct {
	bundles []domain.TransactionBundle
	fetched int
	dropped int
}

func (p *TransactionsPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	// the address to fid map is read-only for the rest of the run
	fids, err := p.store.GetAddressFIDs(ctx)
	if err != nil {
		return stats, err
	}
	addresses := make([]string, 0, len(fids))
	for address := range fids {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	latest, err := p.client.GetLatestBlock(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get latest block: %w", err)
	}
	logger.InfoCtx(ctx, "Fetching transactions", zap.Int("addresses", len(addresses)), zap.Uint64("latest_block", latest))

	for chunk := range slices.Chunk(addresses, transactionAddressesPerWrite) {
		ranges := make(map[string]BlockRange, len(chunk))
		for _, address := range chunk {
			checkpoint, err := p.store.GetLatestBlockForFID(ctx, fids[address])
			if err != nil {
				return stats, err
			}
			if r, ok := NewBlockRange(checkpoint, latest); ok {
				ranges[address] = r
			}
		}

		results := fetcher.Batch(ctx, chunk, p.cfg.TransactionBatchSize, func(ctx context.Context, address string) (addressTransfers, error) {
			r, ok := ranges[address]
			if !ok {
				return addressTransfers{}, nil
			}
			return p.fetchTransfers(ctx, address, r)
		})
		stats.Failed += fetcher.Failed(results)

		var bundles []domain.TransactionBundle
		var links []domain.UserTransaction
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if _, ok := ranges[r.Key]; !ok {
				continue
			}
			stats.Fetched += r.Value.fetched
			stats.Dropped += r.Value.dropped

			found := r.Value.bundles
			if len(found) == 0 {
				found = []domain.TransactionBundle{extract.EmptyTransaction(r.Key, latest)}
			}
			for _, b := range found {
				links = append(links, domain.UserTransaction{FID: fids[r.Key], TransactionUniqueID: b.Transaction.UniqueID})
			}
			bundles = append(bundles, found...)
		}

		result, err := p.store.SaveTransactions(ctx, bundles, links)
		stats.AddWrite(result)
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// fetchTransfers lists transfers received and sent by address within r
func (p *TransactionsPipeline) fetchTransfers(ctx context.Context, address string, r BlockRange) (addressTransfers, error) {
	var out addressTransfers
	for _, direction := range []string{"to", "from"} {
		dtos, err := fetcher.Paginate(ctx, p.paginator, "", func(ctx context.Context, pageKey string) (fetcher.Page[alchemy.Transfer], error) {
			params := alchemy.TransferParams{
				FromBlock:  r.From,
				ToBlock:    r.To,
				Categories: alchemy.DefaultCategories,
				PageKey:    pageKey,
			}
			if direction == "to" {
				params.ToAddress = address
			} else {
				params.FromAddress = address
			}
			page, err := p.client.GetAssetTransfers(ctx, params)
			if err != nil {
				return fetcher.Page[alchemy.Transfer]{}, err
			}
			return fetcher.Page[alchemy.Transfer]{Items: page.Transfers, Cursor: page.PageKey}, nil
		}, nil)
		if err != nil {
			return addressTransfers{}, fmt.Errorf("failed to fetch transfers %s %s: %w", direction, address, err)
		}

		bundles, dropped := extract.Transfers(ctx, dtos)
		out.fetched += len(dtos)
		out.dropped += dropped
		out.bundles = append(out.bundles, bundles...)
	}
	return out, nil
}
