package snapshot

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/store"
	"github.com/feral-file/castindex/internal/store/schema"
)

// ImportReport is the outcome of an import
type ImportReport struct {
	// Manifest is nil for archives without one
	Manifest  *Manifest
	Relations map[string]store.WriteResult
	// Rows is the number of rows read from every relation member
	Rows map[string]int64
	// Unknown lists members that are not a known relation
	Unknown []string
}

// loader writes the rows of one parquet member through the store's merge policies
type loader func(ctx context.Context, p *Packager, path string, state *importState) (store.WriteResult, error)

// importState carries rows that only become writable together with a later relation
type importState struct {
	// metadata of batch transfers keyed by transaction hash
	metadata map[string][]domain.TokenTransferMetadata
}

// loaders lists the importable relations in the order they are written
var loaders = []struct {
	name string
	load loader
}{
	{schema.Location{}.TableName(), loadLocations},
	{schema.User{}.TableName(), loadUsers},
	{schema.Cast{}.TableName(), loadCasts},
	{schema.Reaction{}.TableName(), loadReactions},
	{schema.EnsData{}.TableName(), loadEns},
	{schema.ERC1155Metadata{}.TableName(), loadMetadata},
	{schema.EthTransaction{}.TableName(), loadTransactions},
	{schema.UserEthTransaction{}.TableName(), loadUserTransactions},
}

// Import unpacks an archive and merges every relation it contains into the store.
// The schema must already be migrated.
func (p *Packager) Import(ctx context.Context, archivePath string) (*ImportReport, error) {
	workDir, err := p.fs.MkdirTemp("castindex-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := p.fs.RemoveAll(workDir); err != nil {
			logger.WarnCtx(ctx, "failed to remove work directory", zap.String("path", workDir), zap.Error(err))
		}
	}()

	members, err := unpack(archivePath, workDir)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		Relations: make(map[string]store.WriteResult),
		Rows:      make(map[string]int64),
	}

	if path, ok := members[MANIFEST_NAME]; ok {
		manifest, err := readManifest(path)
		if err != nil {
			return nil, err
		}
		report.Manifest = manifest
		delete(members, MANIFEST_NAME)
	}

	state := &importState{metadata: make(map[string][]domain.TokenTransferMetadata)}
	for _, l := range loaders {
		member := l.name + PARQUET_EXTENSION
		path, ok := members[member]
		if !ok {
			continue
		}
		delete(members, member)

		rows, err := countRows(path)
		if err != nil {
			return nil, err
		}
		if report.Manifest != nil {
			if want, ok := report.Manifest.Relations[l.name]; ok && want != rows {
				return nil, fmt.Errorf("%w: %s has %d rows, manifest says %d", domain.ErrInvalidArchive, l.name, rows, want)
			}
		}

		result, err := l.load(ctx, p, path, state)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", l.name, err)
		}
		report.Relations[l.name] = result
		report.Rows[l.name] = rows

		logger.InfoCtx(ctx, "Imported relation",
			zap.String("relation", l.name),
			zap.Int64("rows", rows),
			zap.Int("inserted", result.Inserted),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
			zap.Int("dropped", result.Dropped),
		)
	}

	for member := range members {
		logger.WarnCtx(ctx, "Skipping unknown archive member", zap.String("member", member))
		report.Unknown = append(report.Unknown, member)
	}

	return report, nil
}

// unpack extracts every regular member of the archive into dir, keyed by member name
func unpack(archivePath, dir string) (map[string]string, error) {
	f, err := os.Open(archivePath) //nolint:gosec,G304
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArchive, err)
	}
	defer zr.Close()

	members := make(map[string]string)
	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArchive, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		// Members are flat, any directory component is ignored
		name := filepath.Base(filepath.Clean(header.Name))
		if name == "." || name == ".." || strings.HasPrefix(name, ".") {
			continue
		}

		target := filepath.Join(dir, name)
		if err := extractMember(tr, target); err != nil {
			return nil, err
		}
		members[name] = target
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("%w: archive has no members", domain.ErrInvalidArchive)
	}
	return members, nil
}

func extractMember(r io.Reader, target string) error {
	out, err := os.Create(target) //nolint:gosec,G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil { //nolint:gosec,G110
		return fmt.Errorf("%w: failed to extract %s: %v", domain.ErrInvalidArchive, filepath.Base(target), err)
	}
	return nil
}

func readManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec,G304
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %v", domain.ErrInvalidArchive, err)
	}
	if manifest.Version > MANIFEST_VERSION {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", domain.ErrInvalidArchive, manifest.Version)
	}
	return &manifest, nil
}

// countRows returns the number of rows of a parquet member
func countRows(path string) (int64, error) {
	f, err := os.Open(path) //nolint:gosec,G304
	if err != nil {
		return 0, fmt.Errorf("failed to open member: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat member: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a parquet file: %v", domain.ErrInvalidArchive, filepath.Base(path), err)
	}
	return pf.NumRows(), nil
}

// readRows reads a parquet member in chunks of batchSize and hands every chunk to fn
func readRows[T any](path string, batchSize int, fn func(rows []T) error) error {
	f, err := os.Open(path) //nolint:gosec,G304
	if err != nil {
		return fmt.Errorf("failed to open member: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	for {
		rows := make([]T, batchSize)
		n, err := r.Read(rows)
		if n > 0 {
			if fnErr := fn(rows[:n]); fnErr != nil {
				return fnErr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read %s: %v", domain.ErrInvalidArchive, filepath.Base(path), err)
		}
	}
}

// loadRows converts every chunk of a member to domain records and saves them
func loadRows[T, R any](ctx context.Context, p *Packager, path string, convert func(T) R, save func(context.Context, []R) (store.WriteResult, error)) (store.WriteResult, error) {
	var total store.WriteResult
	err := readRows(path, p.batchSize, func(rows []T) error {
		records := make([]R, 0, len(rows))
		for _, row := range rows {
			records = append(records, convert(row))
		}
		result, err := save(ctx, records)
		if err != nil {
			return err
		}
		total.Add(result)
		return nil
	})
	return total, err
}

func loadLocations(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.LocationFromRow, func(ctx context.Context, locations []domain.Location) (store.WriteResult, error) {
		return p.store.SaveUsers(ctx, nil, locations)
	})
}

func loadUsers(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.UserFromRow, func(ctx context.Context, users []domain.User) (store.WriteResult, error) {
		return p.store.SaveUsers(ctx, users, nil)
	})
}

func loadCasts(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.CastFromRow, p.store.SaveCasts)
}

func loadReactions(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.ReactionFromRow, p.store.SaveReactions)
}

func loadEns(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.EnsFromRow, p.store.SaveEnsRecords)
}

// loadMetadata only collects rows, they are written together with their transactions
func loadMetadata(_ context.Context, p *Packager, path string, state *importState) (store.WriteResult, error) {
	err := readRows(path, p.batchSize, func(rows []schema.ERC1155Metadata) error {
		for _, row := range rows {
			m := store.MetadataFromRow(row)
			state.metadata[m.TransactionHash] = append(state.metadata[m.TransactionHash], m)
		}
		return nil
	})
	return store.WriteResult{}, err
}

func loadTransactions(ctx context.Context, p *Packager, path string, state *importState) (store.WriteResult, error) {
	result, err := loadRows(ctx, p, path,
		func(row schema.EthTransaction) domain.TransactionBundle {
			bundle := domain.TransactionBundle{Transaction: store.TransactionFromRow(row)}
			// Metadata references the hash, several transfers can share it
			if metadata, ok := state.metadata[row.Hash]; ok {
				bundle.Metadata = metadata
				delete(state.metadata, row.Hash)
			}
			return bundle
		},
		func(ctx context.Context, bundles []domain.TransactionBundle) (store.WriteResult, error) {
			return p.store.SaveTransactions(ctx, bundles, nil)
		})
	if err != nil {
		return result, err
	}

	for hash, orphans := range state.metadata {
		logger.WarnCtx(ctx, "Dropping metadata of unknown transaction", zap.String("hash", hash), zap.Int("rows", len(orphans)))
		result.Dropped += len(orphans)
	}
	clear(state.metadata)
	return result, nil
}

func loadUserTransactions(ctx context.Context, p *Packager, path string, _ *importState) (store.WriteResult, error) {
	return loadRows(ctx, p, path, store.UserTransactionFromRow, func(ctx context.Context, links []domain.UserTransaction) (store.WriteResult, error) {
		return p.store.SaveTransactions(ctx, nil, links)
	})
}
