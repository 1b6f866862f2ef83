package snapshot

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/logger"
)

// Create exports every relation into a new archive under dir and writes its checksum next to it
func (p *Packager) Create(ctx context.Context, dir string) (*Result, error) {
	createdAt := p.clock.Now()

	if err := p.fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	workDir, err := p.fs.MkdirTemp("castindex-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := p.fs.RemoveAll(workDir); err != nil {
			logger.WarnCtx(ctx, "failed to remove work directory", zap.String("path", workDir), zap.Error(err))
		}
	}()

	watermarks, err := p.store.GetWatermarks(ctx)
	if err != nil {
		return nil, err
	}
	manifest := Manifest{
		Version:    MANIFEST_VERSION,
		CreatedAt:  createdAt.UnixMilli(),
		Watermarks: watermarks,
		Relations:  make(map[string]int64, len(relations)),
	}

	// Parquet members are written to the work directory first, tar headers need their size
	members := make([]string, 0, len(relations)+1)
	for _, rel := range relations {
		member := filepath.Join(workDir, rel.name+PARQUET_EXTENSION)
		rows, err := p.exportRelation(ctx, rel, member)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", rel.name, err)
		}
		manifest.Relations[rel.name] = rows
		members = append(members, member)

		logger.InfoCtx(ctx, "Exported relation", zap.String("relation", rel.name), zap.Int64("rows", rows))
	}

	manifestPath := filepath.Join(workDir, MANIFEST_NAME)
	if err := p.writeManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	members = append(members, manifestPath)

	archivePath := filepath.Join(dir, ArchiveName(createdAt))
	partPath := archivePath + ".part"
	sum, size, err := writeArchive(partPath, members, createdAt)
	if err != nil {
		_ = p.fs.RemoveAll(partPath)
		return nil, err
	}
	if err := p.fs.Rename(partPath, archivePath); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := p.writeChecksum(archivePath, sum); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Snapshot created",
		zap.String("path", archivePath),
		zap.String("sha256", sum),
		zap.Int64("size", size),
		zap.Int64("max_cast_timestamp", watermarks.MaxCastTimestamp),
		zap.Int64("max_fid", watermarks.MaxFID),
	)

	return &Result{Path: archivePath, SHA256: sum, Size: size, Manifest: manifest}, nil
}

func (p *Packager) exportRelation(ctx context.Context, rel relation, path string) (int64, error) {
	f, err := p.fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create member file: %w", err)
	}
	rows, err := rel.export(ctx, p.store, f, p.batchSize)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close member file: %w", closeErr)
	}
	return rows, err
}

func (p *Packager) writeManifest(path string, manifest Manifest) error {
	raw, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	canonical, err := p.jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("failed to canonicalize manifest: %w", err)
	}

	f, err := p.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(canonical); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// writeChecksum writes a sha256sum compatible file next to the archive
func (p *Packager) writeChecksum(archivePath, sum string) error {
	f, err := p.fs.Create(archivePath + ".sha256")
	if err != nil {
		return fmt.Errorf("failed to create checksum file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s  %s\n", sum, filepath.Base(archivePath)); err != nil {
		return fmt.Errorf("failed to write checksum file: %w", err)
	}
	return nil
}

// writeArchive bundles members into a zstd compressed tar and returns the hex sha256 and size of the result
func writeArchive(path string, members []string, modTime time.Time) (string, int64, error) {
	out, err := os.Create(path) //nolint:gosec,G304
	if err != nil {
		return "", 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	hasher := sha256.New()
	counter := &countingWriter{}
	zw, err := zstd.NewWriter(io.MultiWriter(out, hasher, counter))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	for _, member := range members {
		if err := addMember(tw, member, modTime); err != nil {
			return "", 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close zstd writer: %w", err)
	}
	if err := out.Sync(); err != nil {
		return "", 0, fmt.Errorf("failed to sync archive: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), counter.n, nil
}

func addMember(tw *tar.Writer, path string, modTime time.Time) error {
	f, err := os.Open(path) //nolint:gosec,G304
	if err != nil {
		return fmt.Errorf("failed to open member: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat member: %w", err)
	}

	header := &tar.Header{
		Name:     filepath.Base(path),
		Mode:     0o644,
		Size:     info.Size(),
		ModTime:  modTime.UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", header.Name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", header.Name, err)
	}
	return nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	c.n += int64(len(b))
	return len(b), nil
}
