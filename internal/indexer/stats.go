package indexer

import (
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/store"
)

// Stats summarises a pipeline run
type Stats struct {
	// Fetched is the number of records received from upstream
	Fetched int
	// Inserted is the number of new rows written
	Inserted int
	// Merged is the number of stored rows updated or replaced
	Merged int
	// Skipped is the number of records that were already stored
	Skipped int
	// Dropped is the number of records rejected by extraction or for missing references,
	// plus users deleted because their registration could not be found
	Dropped int
	// Failed is the number of per-item fetches that exhausted their retries
	Failed int
}

// AddWrite accumulates the outcome of a store write
func (s *Stats) AddWrite(r store.WriteResult) {
	s.Inserted += r.Inserted
	s.Merged += r.Updated
	s.Skipped += r.Skipped
	s.Dropped += r.Dropped
}

// Fields returns the stats as log fields
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("fetched", s.Fetched),
		zap.Int("inserted", s.Inserted),
		zap.Int("merged", s.Merged),
		zap.Int("skipped", s.Skipped),
		zap.Int("dropped", s.Dropped),
		zap.Int("failed", s.Failed),
	}
}
