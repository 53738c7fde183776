// Package pipeline runs a catalog rebuild over every source, one at a time.
package pipeline

import (
	"context"
	"fmt"

	"fabriq-content/internal/assets"
	"fabriq-content/internal/catalog"
	"fabriq-content/internal/chrono"
	"fabriq-content/internal/extract"
	"fabriq-content/internal/report"
	"fabriq-content/internal/sources"
	"fabriq-content/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("fabriq.internal.pipeline")
	meter  = otel.Meter("fabriq.internal.pipeline")
)

const (
	report_runner_fetch           = "runner.fetch"
	report_runner_extract         = "runner.extract"
	report_runner_persist_catalog = "runner.persist-catalog"
	report_runner_write_report    = "runner.write-report"
	report_runner_sources         = "runner.sources"
)

type Pages interface {
	Get(ctx context.Context, link string) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, doc string, baseURL string) ([]extract.Style, error)
}

type Downloader interface {
	Download(ctx context.Context, link, key string) bool
}

// FetchError wraps any failure to get a source's page.
type FetchError struct {
	Factory string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Factory, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	Sources    []sources.Source
	Catalog    *catalog.Store
	Pages      Pages
	Extractor  Extractor
	Downloader Downloader
	Merger     catalog.Merger
	Clock      chrono.TimeAPI
	// ReportPath is where the report is written, empty skips writing it.
	ReportPath string
	Telemetry  telemetry.API
}

type instruments struct {
	sources  metric.Int64Counter
	styles   metric.Int64Counter
	images   metric.Int64Counter
	warnings metric.Int64Counter
}

func newInstruments() instruments {
	// instruments returned together with an error are still usable
	sources, _ := meter.Int64Counter("pipeline.sources")
	styles, _ := meter.Int64Counter("pipeline.styles")
	images, _ := meter.Int64Counter("pipeline.images")
	warnings, _ := meter.Int64Counter("pipeline.warnings")
	return instruments{sources: sources, styles: styles, images: images, warnings: warnings}
}

// Runner owns the catalog and the report for the duration of a run.
type Runner struct {
	opts  Options
	tel   telemetry.API
	instr instruments
}

func NewRunner(opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardTime()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewSlogAPI()
	}
	return &Runner{
		opts:  opts,
		tel:   telemetry.NewScopedAPI("pipeline", opts.Telemetry),
		instr: newInstruments(),
	}
}

// Run processes every source in order, then writes the catalog and the
// report once. Failures of a single source end up in the report, the
// returned error is reserved for a run that could not be completed. A
// cancelled run persists nothing.
func (r *Runner) Run(ctx context.Context) (report.Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	rep := report.New(r.opts.Clock)
	for _, src := range r.opts.Sources {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "run cancelled")
			return report.Report{}, fmt.Errorf("run abandoned before %s: %w", src.Factory, err)
		}

		result := r.processSource(ctx, src)
		if result.Warning != "" {
			rep.Warn(result.Warning)
			r.instr.warnings.Add(ctx, 1)
		}
		rep.Record(result.Outcome)
		r.instr.sources.Add(ctx, 1, metric.WithAttributes(attribute.String("state", result.State.String())))
	}
	r.tel.ReportCount(report_runner_sources, int64(len(r.opts.Sources)))

	err := r.opts.Catalog.Persist()
	if err != nil {
		span.SetStatus(codes.Error, "failed to persist catalog")
		r.tel.ReportBroken(report_runner_persist_catalog, err)
		return report.Report{}, fmt.Errorf("persist catalog: %w", err)
	}

	final := rep.Finish()
	if r.opts.ReportPath == "" {
		return final, nil
	}
	err = report.Write(r.opts.ReportPath, final)
	if err != nil {
		span.SetStatus(codes.Error, "failed to write report")
		r.tel.ReportBroken(report_runner_write_report, err)
		return final, fmt.Errorf("write report: %w", err)
	}
	return final, nil
}

func (r *Runner) processSource(ctx context.Context, src sources.Source) SourceResult {
	ctx, span := tracer.Start(ctx, "processSource")
	defer span.End()
	span.SetAttributes(
		attribute.String("factory", src.Factory),
		attribute.String("url", src.URL),
	)

	result := SourceResult{
		Outcome: report.Outcome{Factory: src.Factory, URL: src.URL},
	}
	result.enter(StatePending)
	result.enter(StateFetching)

	page, err := r.opts.Pages.Get(ctx, src.URL)
	if err != nil {
		fetchErr := &FetchError{Factory: src.Factory, Err: err}
		span.SetStatus(codes.Error, "failed to fetch page")
		r.tel.ReportWarning(report_runner_fetch, fetchErr)

		result.enter(StateFetchFailed)
		result.Warning = fetchErr.Error()
		return result
	}
	result.enter(StateFetched)

	result.enter(StateExtracting)
	styles, err := r.opts.Extractor.Extract(ctx, page, src.URL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to extract styles")
		r.tel.ReportWarning(report_runner_extract, src.Factory, err)

		result.enter(StateEmpty)
		result.Warning = fmt.Sprintf("%s: %s", src.Factory, err)
		return result
	}
	if len(styles) == 0 {
		result.enter(StateEmpty)
		result.Warning = fmt.Sprintf("%s: no style cards found", src.Factory)
		return result
	}
	result.enter(StateExtracted)

	r.instr.styles.Add(ctx, int64(len(styles)))

	result.enter(StateMerging)
	fetched := make([]catalog.Fetched, 0, len(styles))
	for _, style := range styles {
		f := catalog.Fetched{Style: style}
		key := catalog.ImageKey(src.Factory, style.Slug, assets.ImageExt(style.ImageSourceURL))
		if r.opts.Downloader.Download(ctx, style.ImageSourceURL, key) {
			f.ImageKey = key
			r.instr.images.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "downloaded")))
		} else {
			r.instr.images.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "placeholder")))
		}
		fetched = append(fetched, f)
	}

	entries := r.opts.Merger.Build(src.Factory, fetched)
	r.opts.Merger.Merge(r.opts.Catalog, src.Factory, entries)

	result.enter(StateDone)
	result.Outcome.Parsed = len(styles)
	result.Outcome.Saved = len(entries)
	span.SetAttributes(attribute.Int("saved", len(entries)))
	return result
}
