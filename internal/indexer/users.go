package indexer

import (
	"context"
	"fmt"
	"slices"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/extract"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/providers/warpcast"
	"github.com/feral-file/castindex/internal/store"
)

// writeChunkSize bounds the number of records merged in one store transaction
const writeChunkSize = 1000

// UsersPipeline walks the whole recent-users feed and merges every account
type UsersPipeline struct {
	client    warpcast.Client
	store     store.Store
	paginator *fetcher.Paginator
	cfg       config.FetchConfig
}

// NewUsersPipeline creates the account pipeline
func NewUsersPipeline(client warpcast.Client, st store.Store, paginator *fetcher.Paginator, cfg config.FetchConfig) *UsersPipeline {
	return &UsersPipeline{client: client, store: st, paginator: paginator, cfg: cfg}
}

func (p *UsersPipeline) Name() string { return "users" }

func (p *UsersPipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	dtos, err := fetcher.Paginate(ctx, p.paginator, "", func(ctx context.Context, cursor string) (fetcher.Page[warpcast.User], error) {
		page, err := p.client.GetRecentUsers(ctx, cursor, p.cfg.UsersPageSize)
		if err != nil {
			return fetcher.Page[warpcast.User]{}, err
		}
		return fetcher.Page[warpcast.User]{Items: page.Users, Cursor: page.Cursor}, nil
	}, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch users: %w", err)
	}
	stats.Fetched = len(dtos)

	users, locations, dropped := extract.Users(ctx, dtos)
	stats.Dropped += dropped

	// locations go with the first chunk so every later chunk can reference them
	pending := locations
	for chunk := range slices.Chunk(users, writeChunkSize) {
		result, err := p.store.SaveUsers(ctx, chunk, pending)
		if err != nil {
			return stats, err
		}
		pending = nil
		stats.AddWrite(result)
	}
	if len(users) == 0 && len(pending) > 0 {
		result, err := p.store.SaveUsers(ctx, nil, pending)
		if err != nil {
			return stats, err
		}
		stats.AddWrite(result)
	}

	return stats, nil
}

// storeChunked writes records in chunks of writeChunkSize, accumulating the results
func storeChunked[T any](ctx context.Context, records []T, save func(context.Context, []T) (store.WriteResult, error)) (store.WriteResult, error) {
	var total store.WriteResult
	for chunk := range slices.Chunk(records, writeChunkSize) {
		result, err := save(ctx, chunk)
		if err != nil {
			return total, err
		}
		total.Add(result)
	}
	return total, nil
}
