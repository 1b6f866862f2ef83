// Package snapshot packages the store into a compressed archive of parquet files and loads it back.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/store"
	"github.com/feral-file/castindex/internal/store/schema"
)

const (
	// MANIFEST_NAME is the archive member describing the snapshot
	MANIFEST_NAME = "manifest.json"
	// MANIFEST_VERSION is bumped whenever the member layout changes
	MANIFEST_VERSION = 1
	// ARCHIVE_EXTENSION is the suffix of every snapshot archive
	ARCHIVE_EXTENSION = ".tar.zst"
	// PARQUET_EXTENSION is the suffix of every relation member
	PARQUET_EXTENSION = ".parquet"

	defaultBatchSize = 1000
	timestampLayout  = "20060102T150405Z"
)

// Manifest describes the content of an archive
type Manifest struct {
	Version int `json:"version"`
	// CreatedAt is milliseconds since epoch
	CreatedAt  int64            `json:"created_at"`
	Watermarks store.Watermarks `json:"watermarks"`
	// Relations maps every relation member to its row count
	Relations map[string]int64 `json:"relations"`
}

// Result describes a created archive
type Result struct {
	Path     string
	SHA256   string
	Size     int64
	Manifest Manifest
}

// relation is one table of the archive
type relation struct {
	name   string
	export func(ctx context.Context, st store.Store, w io.Writer, batchSize int) (int64, error)
}

// relations lists every exported table in dependency order
var relations = []relation{
	{name: schema.Location{}.TableName(), export: exportTable[schema.Location]},
	{name: schema.User{}.TableName(), export: exportTable[schema.User]},
	{name: schema.Cast{}.TableName(), export: exportTable[schema.Cast]},
	{name: schema.Reaction{}.TableName(), export: exportTable[schema.Reaction]},
	{name: schema.EnsData{}.TableName(), export: exportTable[schema.EnsData]},
	{name: schema.EthTransaction{}.TableName(), export: exportTable[schema.EthTransaction]},
	{name: schema.ERC1155Metadata{}.TableName(), export: exportTable[schema.ERC1155Metadata]},
	{name: schema.UserEthTransaction{}.TableName(), export: exportTable[schema.UserEthTransaction]},
}

// exportTable streams one table into a parquet file written to w
func exportTable[T any](ctx context.Context, st store.Store, w io.Writer, batchSize int) (int64, error) {
	pw := parquet.NewGenericWriter[T](w)

	var rows []T
	var total int64
	err := st.ExportRows(ctx, &rows, batchSize, func() error {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		total += int64(len(rows))
		return nil
	})
	if err != nil {
		return total, err
	}

	if err := pw.Close(); err != nil {
		return total, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return total, nil
}

// Packager creates and imports snapshot archives
type Packager struct {
	store     store.Store
	fs        adapter.FileSystem
	clock     adapter.Clock
	jcs       adapter.JCS
	batchSize int
}

// NewPackager creates a new snapshot packager
func NewPackager(st store.Store, fs adapter.FileSystem, clock adapter.Clock, jcs adapter.JCS) *Packager {
	return &Packager{
		store:     st,
		fs:        fs,
		clock:     clock,
		jcs:       jcs,
		batchSize: defaultBatchSize,
	}
}

// ArchiveName returns the file name of an archive created at t
func ArchiveName(t time.Time) string {
	return "snapshot-" + t.UTC().Format(timestampLayout) + ARCHIVE_EXTENSION
}
