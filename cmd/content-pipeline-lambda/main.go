package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fabriq-content/internal/app"
	"fabriq-content/internal/report"
	"fabriq-content/internal/telemetry"
	"fabriq-content/lib/contentstore"
	"fabriq-content/lib/fsutil"
	"fabriq-content/lib/osutil"
	libtelemetry "fabriq-content/lib/telemetry"

	"github.com/aws/aws-lambda-go/lambda"
)

// the lambda file system is ephemeral, the catalog and report live in the
// bucket under this prefix between invocations
const dataPrefix = "data"

func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(os.Getenv("PIPELINE_CONFIG"))
	if err != nil {
		return app.Config{}, err
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.Assets.S3.Bucket = bucket
	}

	// only the temp dir is writable
	cfg.Catalog = underTemp(cfg.Catalog)
	cfg.Report = underTemp(cfg.Report)
	cfg.Assets.Dir = underTemp(cfg.Assets.Dir)
	return cfg, nil
}

func underTemp(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(os.TempDir(), path)
}

// restore copies the published document back to path. Nothing published
// yet leaves path as it is.
func restore(ctx context.Context, data contentstore.ReadWriter, path string) error {
	contents, err := data.Get(ctx, filepath.Base(path))
	if errors.Is(err, contentstore.ErrNotFound) {
		slog.Info("no published document to restore", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, contents, 0644)
}

func publish(ctx context.Context, data contentstore.Store, paths ...string) error {
	for _, p := range paths {
		contents, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		err = data.Put(ctx, filepath.Base(p), contents)
		if err != nil {
			return err
		}
	}
	return nil
}

// invoke runs the pipeline once. With a data store the run starts from the
// published catalog and publishes its result.
func invoke(ctx context.Context, cfg app.Config, tel telemetry.API, data contentstore.ReadWriter) (report.Report, error) {
	if data != nil {
		err := restore(ctx, data, cfg.Catalog)
		if err != nil {
			return report.Report{}, fmt.Errorf("restore catalog: %w", err)
		}
	}

	rep, err := app.Run(ctx, app.Options{Config: cfg, Telemetry: tel})
	if err != nil || data == nil {
		return rep, err
	}

	err = publish(ctx, data, cfg.Catalog, cfg.Report)
	if err != nil {
		return rep, fmt.Errorf("publish: %w", err)
	}
	return rep, nil
}

func main() {
	libtelemetry.InitSlog(os.Stderr, os.Getenv("PIPELINE_VERBOSE") != "")

	cfg, err := loadConfig()
	if err != nil {
		osutil.Fatal("failed to read config", err)
	}
	tel := telemetry.NewSlogAPI()

	lambda.Start(func(ctx context.Context) (report.Report, error) {
		var data contentstore.ReadWriter
		if cfg.Assets.S3.Bucket != "" {
			s3, err := contentstore.NewS3FromEnv(ctx, cfg.Assets.S3.Bucket, dataPrefix, cfg.Assets.S3.Region)
			if err != nil {
				return report.Report{}, err
			}
			data = s3
		}
		return invoke(ctx, cfg, tel, data)
	})
}
