package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/downloader"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/snapshot"
)

func runSnapshot(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("snapshot needs a subcommand: create, download or import")
	}
	packager := snapshot.NewPackager(a.store, a.fs, a.clock, adapter.NewJCS())

	switch args[0] {
	case "create":
		result, err := packager.Create(ctx, a.cfg.Snapshot.Dir)
		if err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Snapshot created",
			zap.String("path", result.Path),
			zap.String("sha256", result.SHA256),
			zap.Int64("size", result.Size),
			zap.Any("relations", result.Manifest.Relations),
		)
		fmt.Println(result.Path)
		return nil

	case "download":
		return downloadSnapshot(ctx, a, packager, args[1:])

	case "import":
		if len(args) != 2 {
			return errors.New("snapshot import needs the archive path")
		}
		return importSnapshot(ctx, packager, args[1])

	default:
		return fmt.Errorf("unknown snapshot subcommand %q", args[0])
	}
}

func downloadSnapshot(ctx context.Context, a *app, packager *snapshot.Packager, args []string) error {
	fs := flag.NewFlagSet("snapshot download", flag.ContinueOnError)
	rawURL := fs.String("url", a.cfg.Snapshot.DownloadURL, "Archive URL")
	checksum := fs.String("sha256", "", "Expected sha256 of the archive")
	thenImport := fs.Bool("import", false, "Import the archive after downloading it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rawURL == "" {
		return errors.New("no snapshot url, pass -url or set snapshot.download_url")
	}

	u, err := url.Parse(*rawURL)
	if err != nil {
		return fmt.Errorf("invalid snapshot url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = snapshot.ArchiveName(a.clock.Now())
	}
	if err := a.fs.MkdirAll(a.cfg.Snapshot.Dir); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// Archives are large, so the download is only bounded by ctx
	httpClient := adapter.NewHTTPClient(0, adapter.RetryConfig{
		MaxAttempts: a.cfg.Fetch.RetryAttempts,
		Delay:       a.cfg.Fetch.RetryDelay,
	})
	result, err := downloader.NewDownloader(httpClient, a.fs).
		Download(ctx, *rawURL, filepath.Join(a.cfg.Snapshot.Dir, name), *checksum)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Snapshot downloaded",
		zap.String("path", result.Path),
		zap.String("sha256", result.SHA256),
		zap.Int64("size", result.Size),
	)

	if *thenImport {
		return importSnapshot(ctx, packager, result.Path)
	}
	fmt.Println(result.Path)
	return nil
}

func importSnapshot(ctx context.Context, packager *snapshot.Packager, archivePath string) error {
	report, err := packager.Import(ctx, archivePath)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("path", archivePath),
		zap.Any("rows", report.Rows),
		zap.Strings("unknown_members", report.Unknown),
	}
	for name, r := range report.Relations {
		fields = append(fields, zap.Dict(name,
			zap.Int("inserted", r.Inserted),
			zap.Int("updated", r.Updated),
			zap.Int("skipped", r.Skipped),
			zap.Int("dropped", r.Dropped),
		))
	}
	logger.InfoCtx(ctx, "Snapshot imported", fields...)
	return nil
}
