package store

import (
	"context"
	"fmt"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/store/schema"
)

// CheckpointStore defines the queries the incremental pipelines derive their starting point from
type CheckpointStore interface {
	// GetLatestCastTimestamp returns the newest stored cast timestamp, 0 when no cast is stored
	GetLatestCastTimestamp(ctx context.Context) (int64, error)
	// GetLatestBlockForFID returns the highest block number among the transactions linked to fid, 0 when none
	GetLatestBlockForFID(ctx context.Context, fid int64) (int64, error)
	// GetUnresolvedUsers returns users still waiting for enrichment
	GetUnresolvedUsers(ctx context.Context) ([]domain.User, error)
	// GetReactionEligibleCasts returns hashes of casts older than cutoff (ms) with no reaction on record
	GetReactionEligibleCasts(ctx context.Context, cutoff int64) ([]string, error)
}

// GetLatestCastTimestamp returns the newest stored cast timestamp
func (s *gormStore) GetLatestCastTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	err := s.db.WithContext(ctx).
		Model(&schema.Cast{}).
		Select("COALESCE(MAX(timestamp), 0)").
		Scan(&ts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get latest cast timestamp: %w", err)
	}
	return ts, nil
}

// GetLatestBlockForFID returns the highest block number among the transactions linked to fid
func (s *gormStore) GetLatestBlockForFID(ctx context.Context, fid int64) (int64, error) {
	var block int64
	err := s.db.WithContext(ctx).
		Table("eth_transactions AS t").
		Joins("JOIN user_eth_transactions AS u ON u.transaction_unique_id = t.unique_id").
		Where("u.fid = ?", fid).
		Select("COALESCE(MAX(t.block_num), 0)").
		Scan(&block).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block for fid %d: %w", fid, err)
	}
	return block, nil
}

// GetUnresolvedUsers returns users still waiting for enrichment
func (s *gormStore) GetUnresolvedUsers(ctx context.Context) ([]domain.User, error) {
	var rows []schema.User
	err := s.db.WithContext(ctx).
		Where("registered_at = ?", domain.UNRESOLVED_REGISTRATION).
		Order("fid").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get unresolved users: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, UserFromRow(row))
	}
	return users, nil
}

// GetReactionEligibleCasts returns hashes of casts older than cutoff with no reaction on record
func (s *gormStore) GetReactionEligibleCasts(ctx context.Context, cutoff int64) ([]string, error) {
	var hashes []string
	err := s.db.WithContext(ctx).
		Model(&schema.Cast{}).
		Where("timestamp < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM reactions r WHERE r.target_hash = casts.hash)").
		Order("timestamp").
		Pluck("hash", &hashes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction eligible casts: %w", err)
	}
	return hashes, nil
}
