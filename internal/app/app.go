// Package app assembles a pipeline run from its config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fabriq-content/internal/assets"
	"fabriq-content/internal/catalog"
	"fabriq-content/internal/chrono"
	"fabriq-content/internal/extract"
	"fabriq-content/internal/fetch"
	"fabriq-content/internal/history"
	"fabriq-content/internal/pipeline"
	"fabriq-content/internal/report"
	"fabriq-content/internal/sources"
	"fabriq-content/internal/telemetry"
	"fabriq-content/lib/contentstore"
	"fabriq-content/lib/restyutil"

	"github.com/gofrs/flock"
)

const (
	report_app_history = "app.history"
	report_app_unlock  = "app.unlock"
)

// ErrLocked is returned when another run holds the catalog lock and it could
// not be acquired before the context ended.
var ErrLocked = errors.New("catalog is locked by another run")

type Options struct {
	Config    Config
	Telemetry telemetry.API
	// Clock defaults to the wall clock.
	Clock chrono.TimeAPI
	// Store overrides the content store built from the config.
	Store contentstore.Store
}

// LockPath is the lock file guarding the catalog at catalogPath.
func LockPath(catalogPath string) string {
	return catalogPath + ".lock"
}

// Run executes one full pipeline run: it takes the catalog lock, loads the
// sources, runs every source, persists the catalog and report, and records
// the report in the history database when one is configured.
func Run(ctx context.Context, opts Options) (report.Report, error) {
	cfg := opts.Config
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewSlogAPI()
	}
	tel := telemetry.NewScopedAPI("app", opts.Telemetry)

	timeout, err := cfg.timeout()
	if err != nil {
		return report.Report{}, err
	}

	srcs, err := sources.Load(cfg.Sources)
	if err != nil {
		return report.Report{}, err
	}

	unlock, err := lockCatalog(ctx, cfg.Catalog)
	if err != nil {
		return report.Report{}, err
	}
	defer func() {
		err := unlock()
		if err != nil {
			tel.ReportWarning(report_app_unlock, err)
		}
	}()

	store := opts.Store
	if store == nil {
		store, err = NewContentStore(ctx, cfg.Assets)
		if err != nil {
			return report.Report{}, err
		}
	}

	clientOpts := fetch.ClientOptions{UserAgent: cfg.UserAgent, Timeout: timeout}
	pageClient := fetch.NewClient(clientOpts, opts.Telemetry)
	imageClient := fetch.NewClient(clientOpts, opts.Telemetry)
	if cfg.DumpHTTP != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpHTTP)
		if err != nil {
			return report.Report{}, fmt.Errorf("prepare http dump: %w", err)
		}
		restyutil.DumpExchanges(pageClient, "page", output)
		restyutil.DumpExchanges(imageClient, "image", output)
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Sources:    srcs,
		Catalog:    catalog.Open(cfg.Catalog, opts.Telemetry),
		Pages:      fetch.NewPages(pageClient),
		Extractor:  extract.NewExtractor(),
		Downloader: assets.NewDownloader(imageClient, store, opts.Telemetry),
		Merger:     catalog.Merger{ImagePrefix: cfg.Assets.ImagePrefix},
		Clock:      opts.Clock,
		ReportPath: cfg.Report,
		Telemetry:  opts.Telemetry,
	})
	rep, err := runner.Run(ctx)
	if err != nil {
		return rep, err
	}

	if cfg.HistoryDB != "" {
		err = appendHistory(ctx, cfg.HistoryDB, rep)
		if err != nil {
			tel.ReportWarning(report_app_history, cfg.HistoryDB, err)
		}
	}
	return rep, nil
}

func lockCatalog(ctx context.Context, catalogPath string) (func() error, error) {
	err := os.MkdirAll(filepath.Dir(catalogPath), 0755)
	if err != nil {
		return nil, err
	}

	lock := flock.New(LockPath(catalogPath))
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	if err != nil {
		return nil, fmt.Errorf("lock catalog: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return lock.Unlock, nil
}

func appendHistory(ctx context.Context, path string, rep report.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Append(ctx, rep)
	return err
}

// NewContentStore returns the S3 store when a bucket is configured, the
// filesystem store under Dir otherwise.
func NewContentStore(ctx context.Context, cfg AssetsConfig) (contentstore.Store, error) {
	if cfg.S3.Bucket != "" {
		return contentstore.NewS3FromEnv(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Region)
	}
	return contentstore.NewFilesystem(cfg.Dir), nil
}
