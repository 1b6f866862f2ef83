package store

import (
	"context"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/store/schema"
)

// WriteResult counts what a batch write did with its input
type WriteResult struct {
	// Inserted is the number of new rows
	Inserted int
	// Updated is the number of stored rows changed by a merge or replace
	Updated int
	// Skipped is the number of records that were already stored or duplicated within the batch
	Skipped int
	// Dropped is the number of records rejected because they reference rows that do not exist
	Dropped int
}

// Add accumulates another result
func (r *WriteResult) Add(o WriteResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Dropped += o.Dropped
}

// Watermarks are the high-water marks of the incremental pipelines
type Watermarks struct {
	MaxCastTimestamp int64 `json:"max_cast_timestamp"`
	MaxFID           int64 `json:"max_fid"`
}

// QueryResult is the tabular output of a raw query
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Store defines the interface for database operations
type Store interface {
	CheckpointStore

	// SaveUsers writes locations then users in one transaction. Locations are insert-only,
	// users are merged field by field with the enrichment fields protected.
	SaveUsers(ctx context.Context, users []domain.User, locations []domain.Location) (WriteResult, error)
	// SaveCasts inserts casts that are not stored yet
	SaveCasts(ctx context.Context, casts []domain.Cast) (WriteResult, error)
	// SaveReactions inserts reactions that are not stored yet. Reactions on unknown casts are dropped.
	SaveReactions(ctx context.Context, reactions []domain.Reaction) (WriteResult, error)
	// SaveEnsRecords replaces the stored record of every address with a non-empty resolution
	SaveEnsRecords(ctx context.Context, records []domain.EnsRecord) (WriteResult, error)
	// SaveTransactions inserts new transactions with their metadata, then links them to users.
	// Links to transactions that are neither stored nor part of bundles are dropped.
	SaveTransactions(ctx context.Context, bundles []domain.TransactionBundle, links []domain.UserTransaction) (WriteResult, error)
	// ApplyRegistrations writes enrichment results to stored users
	ApplyRegistrations(ctx context.Context, registrations []domain.UserRegistration) (WriteResult, error)

	// GetUsersByFIDs retrieves stored users keyed by fid
	GetUsersByFIDs(ctx context.Context, fids []int64) (map[int64]domain.User, error)
	// GetAddressFIDs returns the fid of every user with a resolved address, keyed by address
	GetAddressFIDs(ctx context.Context) (map[string]int64, error)
	// GetUserAddresses returns every distinct resolved user address
	GetUserAddresses(ctx context.Context) ([]string, error)

	// DeleteDuplicateAssociations keeps one association row per (fid, transaction) pair
	DeleteDuplicateAssociations(ctx context.Context) (int64, error)
	// DeleteUnresolvedUsers removes users whose registration was never resolved
	DeleteUnresolvedUsers(ctx context.Context) (int64, error)
	// DeleteUnresolvedUsersByFIDs removes the given users if they are still unresolved
	DeleteUnresolvedUsersByFIDs(ctx context.Context, fids []int64) (int64, error)

	// GetWatermarks returns the current high-water marks
	GetWatermarks(ctx context.Context) (Watermarks, error)
	// CountRows returns the number of rows of every table
	CountRows(ctx context.Context) (map[string]int64, error)
	// RawQuery runs a read-only statement and returns its rows
	RawQuery(ctx context.Context, sql string) (*QueryResult, error)
	// ExportRows streams a table in primary key order. dest must point to a slice of a schema
	// model; it is refilled before each call to fn.
	ExportRows(ctx context.Context, dest any, batchSize int, fn func() error) error

	// CreateFetchRun records the start of a pipeline run
	CreateFetchRun(ctx context.Context, run *schema.FetchRun) error
	// UpdateFetchRun records the outcome of a pipeline run
	UpdateFetchRun(ctx context.Context, run *schema.FetchRun) error
	// GetRecentFetchRuns retrieves the latest runs, newest first
	GetRecentFetchRuns(ctx context.Context, limit int) ([]schema.FetchRun, error)
}
