package downloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
)

// ARCHIVE_MIME_TYPE is the detected type every snapshot archive must have
const ARCHIVE_MIME_TYPE = "application/zstd"

// sniffSize is the number of leading bytes kept for type detection
const sniffSize = 3072

// DownloadResult describes a downloaded archive
type DownloadResult struct {
	Path string
	// ContentType is detected from the content, not taken from the response headers
	ContentType string
	Size        int64
	SHA256      string
}

// Downloader defines the interface for downloading snapshot archives
type Downloader interface {
	// Download saves the archive at url to path. When expectedSHA256 is set the
	// content must match it.
	Download(ctx context.Context, url string, path string, expectedSHA256 string) (*DownloadResult, error)
}

type downloader struct {
	httpClient adapter.HTTPClient
	fs         adapter.FileSystem
}

func NewDownloader(httpClient adapter.HTTPClient, fs adapter.FileSystem) Downloader {
	return &downloader{
		httpClient: httpClient,
		fs:         fs,
	}
}

// headBuffer keeps the first sniffSize bytes written to it
type headBuffer struct {
	bytes.Buffer
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := sniffSize - h.Len(); room > 0 {
		h.Buffer.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}

// Download saves the archive at url to path, verifying its type and checksum.
// The file is written to a temporary name and only renamed into place once verified.
func (d *downloader) Download(ctx context.Context, url string, path string, expectedSHA256 string) (*DownloadResult, error) {
	logger.InfoCtx(ctx, "Downloading snapshot", zap.String("url", url), zap.String("path", path))

	partPath := path + ".part"
	file, err := d.fs.Create(partPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	hasher := sha256.New()
	head := &headBuffer{}
	written, err := d.httpClient.Download(ctx, url, io.MultiWriter(file, hasher, head))
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err != nil {
		d.discard(ctx, partPath)
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	detected := mimetype.Detect(head.Bytes())
	result := &DownloadResult{
		Path:        path,
		ContentType: detected.String(),
		Size:        written,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
	}

	if !detected.Is(ARCHIVE_MIME_TYPE) {
		d.discard(ctx, partPath)
		return nil, fmt.Errorf("%w: unexpected content type %s", domain.ErrInvalidArchive, result.ContentType)
	}
	if expectedSHA256 != "" && !strings.EqualFold(expectedSHA256, result.SHA256) {
		d.discard(ctx, partPath)
		return nil, fmt.Errorf("%w: checksum mismatch, expected %s got %s", domain.ErrInvalidArchive, expectedSHA256, result.SHA256)
	}

	if err := d.fs.Rename(partPath, path); err != nil {
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	logger.InfoCtx(ctx, "Snapshot downloaded",
		zap.String("path", path),
		zap.Int64("bytes", written),
		zap.String("sha256", result.SHA256),
	)
	return result, nil
}

func (d *downloader) discard(ctx context.Context, path string) {
	if err := d.fs.RemoveAll(path); err != nil {
		logger.WarnCtx(ctx, "failed to remove partial download", zap.Error(err), zap.String("path", path))
	}
}
