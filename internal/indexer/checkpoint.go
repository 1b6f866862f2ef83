package indexer

import (
	"time"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/providers/warpcast"
)

// CastCheckpoint is the incremental watermark of the cast feed: the newest stored cast timestamp.
// The feed is ordered newest first, so once a page reaches below the checkpoint every later page
// is already stored.
type CastCheckpoint struct {
	Since int64
}

// Stop reports whether the listing can end after page
func (c CastCheckpoint) Stop(page []warpcast.Cast) bool {
	if c.Since == 0 {
		return false
	}
	for _, cast := range page {
		if cast.Timestamp != nil && *cast.Timestamp < c.Since {
			return true
		}
	}
	return false
}

// Filter keeps the casts at or after the checkpoint, preserving order
func (c CastCheckpoint) Filter(casts []domain.Cast) []domain.Cast {
	kept := make([]domain.Cast, 0, len(casts))
	for _, cast := range casts {
		if cast.Timestamp >= c.Since {
			kept = append(kept, cast)
		}
	}
	return kept
}

// ReactionCutoff returns the newest cast timestamp (ms) eligible for a reaction fetch
func ReactionCutoff(now time.Time, minAge time.Duration) int64 {
	return now.Add(-minAge).UnixMilli()
}

// BlockRange is an inclusive block range to fetch transfers for
type BlockRange struct {
	From uint64
	To   uint64
}

// NewBlockRange starts at the highest block already stored for an account and ends at the chain head.
// ok is false when there is nothing to fetch.
func NewBlockRange(checkpoint int64, latest uint64) (r BlockRange, ok bool) {
	from := uint64(max(checkpoint, 0))
	if from > latest {
		return BlockRange{}, false
	}
	return BlockRange{From: from, To: latest}, true
}
