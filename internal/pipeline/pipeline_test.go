package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fabriq-content/internal/assets"
	"fabriq-content/internal/catalog"
	"fabriq-content/internal/chrono"
	"fabriq-content/internal/extract"
	"fabriq-content/internal/fetch"
	"fabriq-content/internal/report"
	"fabriq-content/internal/sources"
	"fabriq-content/internal/telemetry"
	"fabriq-content/lib/contentstore"

	"github.com/stretchr/testify/require"
)

type response struct {
	status int
	body   string
}

// routes serves canned responses by absolute url, anything else is a
// transport error.
type routes map[string]response

func (r routes) RoundTrip(req *http.Request) (*http.Response, error) {
	res, ok := r[req.URL.String()]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: res.status,
		Status:     http.StatusText(res.status),
		Header:     http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(res.body)),
		Request:    req,
	}, nil
}

type env struct {
	dir         string
	catalogPath string
	reportPath  string
	assets      contentstore.Filesystem
	rec         *telemetry.Recorder
}

func newEnv(t *testing.T) env {
	dir := t.TempDir()
	return env{
		dir:         dir,
		catalogPath: filepath.Join(dir, "data", "styles.json"),
		reportPath:  filepath.Join(dir, "data", "pipeline-report.json"),
		assets:      contentstore.NewFilesystem(filepath.Join(dir, "assets")),
		rec:         &telemetry.Recorder{},
	}
}

func (e env) runner(list []sources.Source, web routes) *Runner {
	client := fetch.NewClient(fetch.ClientOptions{}, e.rec)
	client.SetTransport(web)

	return NewRunner(Options{
		Sources:    list,
		Catalog:    catalog.Open(e.catalogPath, e.rec),
		Pages:      fetch.NewPages(client),
		Extractor:  extract.NewExtractor(),
		Downloader: assets.NewDownloader(client, e.assets, e.rec),
		Clock:      &chrono.StepTime{Start: time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC), Step: time.Second},
		ReportPath: e.reportPath,
		Telemetry:  e.rec,
	})
}

func (e env) seedCatalog(t *testing.T, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(e.catalogPath), 0755))
	require.NoError(t, os.WriteFile(e.catalogPath, []byte(contents), 0644))
}

func (e env) readCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	contents, err := os.ReadFile(e.catalogPath)
	require.NoError(t, err)
	c, _, err := catalog.Decode(contents)
	require.NoError(t, err)
	return c
}

const modelPage = `<html><body>
	<nav><a href="/">Главная</a><a href="/contacts">Контакты</a></nav>
	<a href="/a-model"><img src="a.jpg">Модель А</a>
</body></html>`

func TestRunSingleStyle(t *testing.T) {
	e := newEnv(t)
	r := e.runner(
		[]sources.Source{{Factory: "zov", URL: "http://x/catalog"}},
		routes{
			"http://x/catalog": {status: 200, body: modelPage},
			"http://x/a.jpg":   {status: 200, body: "jpeg bytes"},
		},
	)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []catalog.Entry{{
		Slug:        "модель-а",
		Title:       "Модель А",
		Description: "Стиль из каталога ZOV",
		Image:       "zov/модель-а.jpg",
		Page:        "styles/zov/модель-а.html",
		SourceURL:   "http://x/a-model",
	}}, e.readCatalog(t).Get("zov"))

	require.Equal(t, []report.Outcome{
		{Factory: "zov", URL: "http://x/catalog", Parsed: 1, Saved: 1},
	}, rep.Sources)
	require.Empty(t, rep.Warnings)

	written, err := report.Read(e.reportPath)
	require.NoError(t, err)
	require.Equal(t, rep.Sources, written.Sources)
	require.Equal(t, []string{}, written.Warnings)
	require.True(t, written.FinishedAt.After(written.StartedAt))

	image, err := os.ReadFile(e.assets.Path("zov/модель-а.jpg"))
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(image))
}

func TestRunFetchFailure(t *testing.T) {
	e := newEnv(t)
	before := `{
  "astra": [
    {
      "slug": "old",
      "title": "Old style",
      "description": "Стиль из каталога ASTRA",
      "image": "astra/old.jpg",
      "page": "styles/astra/old.html",
      "sourceUrl": "http://bad/old"
    }
  ]
}
`
	e.seedCatalog(t, before)

	r := e.runner(
		[]sources.Source{{Factory: "astra", URL: "http://bad"}},
		routes{"http://bad": {status: 500, body: "oops"}},
	)
	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(e.catalogPath)
	require.NoError(t, err)
	require.Equal(t, before, string(after))

	require.Equal(t, []report.Outcome{{Factory: "astra", URL: "http://bad"}}, rep.Sources)
	require.Len(t, rep.Warnings, 1)
	require.True(t, strings.HasPrefix(rep.Warnings[0], "astra:"), rep.Warnings[0])
	require.Equal(t, "astra: HTTP 500", rep.Warnings[0])
}

func TestRunContinuesAfterFailures(t *testing.T) {
	e := newEnv(t)
	r := e.runner(
		[]sources.Source{
			{Factory: "down", URL: "http://down/catalog"},
			{Factory: "empty", URL: "http://empty/catalog"},
			{Factory: "zov", URL: "http://x/catalog"},
		},
		routes{
			"http://empty/catalog": {status: 200, body: "<p>under construction</p>"},
			"http://x/catalog":     {status: 200, body: modelPage},
		},
	)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []report.Outcome{
		{Factory: "down", URL: "http://down/catalog"},
		{Factory: "empty", URL: "http://empty/catalog"},
		{Factory: "zov", URL: "http://x/catalog", Parsed: 1, Saved: 1},
	}, rep.Sources)
	require.Len(t, rep.Warnings, 2)
	require.True(t, strings.HasPrefix(rep.Warnings[0], "down: "))
	require.Equal(t, "empty: no style cards found", rep.Warnings[1])

	// the image was not routed, the entry falls back to the placeholder
	c := e.readCatalog(t)
	require.Equal(t, []string{"zov"}, c.Factories())
	require.Equal(t, "zov/модель-а.svg", c.Get("zov")[0].Image)
	require.False(t, e.assets.Exists("zov/модель-а.svg"))
}

func TestRunEmptyKeepsPreviousEntries(t *testing.T) {
	e := newEnv(t)
	before := `{
  "zov": [
    {
      "slug": "loft",
      "title": "Loft",
      "description": "Стиль из каталога ZOV",
      "image": "zov/loft.png",
      "page": "styles/zov/loft.html",
      "sourceUrl": "http://x/loft"
    }
  ],
  "geosideal": []
}
`
	e.seedCatalog(t, before)

	r := e.runner(
		[]sources.Source{{Factory: "zov", URL: "http://x/catalog"}},
		routes{"http://x/catalog": {status: 200, body: `<a href="/about">About</a>`}},
	)
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []report.Outcome{{Factory: "zov", URL: "http://x/catalog"}}, rep.Sources)

	after, err := os.ReadFile(e.catalogPath)
	require.NoError(t, err)
	require.Equal(t, before, string(after))
}

const curatedCatalog = `{
  "zov": [
    {
      "slug": "loft",
      "title": "Loft",
      "description": "Стиль из каталога ZOV",
      "image": "zov/loft.png",
      "page": "styles/zov/loft.html",
      "sourceUrl": "http://x/loft",
      "featured": true
    }
  ],
  "meta": {
    "updatedBy": "editor"
  }
}
`

func TestRunFailedSourceKeepsCuratedDocument(t *testing.T) {
	e := newEnv(t)
	e.seedCatalog(t, curatedCatalog)

	r := e.runner(
		[]sources.Source{{Factory: "zov", URL: "http://x/catalog"}},
		routes{"http://x/catalog": {status: 500}},
	)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(e.catalogPath)
	require.NoError(t, err)
	require.Equal(t, curatedCatalog, string(after))
}

func TestRunKeepsUntouchedFactoriesAndKeys(t *testing.T) {
	e := newEnv(t)
	e.seedCatalog(t, curatedCatalog)

	r := e.runner(
		[]sources.Source{
			{Factory: "zov", URL: "http://x/catalog"},
			{Factory: "astra", URL: "http://astra/catalog"},
		},
		routes{
			"http://x/catalog":     {status: 500},
			"http://astra/catalog": {status: 200, body: modelPage},
		},
	)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(e.catalogPath)
	require.NoError(t, err)
	require.Contains(t, string(after), `"featured": true`)
	require.Contains(t, string(after), `"updatedBy": "editor"`)

	c := e.readCatalog(t)
	require.Equal(t, []string{"zov", "meta", "astra"}, c.Factories())
	require.Equal(t, "loft", c.Get("zov")[0].Slug)
	require.Equal(t, "модель-а", c.Get("astra")[0].Slug)
}

func TestRunReplacesPreviousEntries(t *testing.T) {
	e := newEnv(t)
	e.seedCatalog(t, `{"geosideal": [], "zov": [{"slug": "old-1"}, {"slug": "old-2"}, {"slug": "old-3"}]}`)

	page := `
		<a href="/kitchen/1"><img src="/img/1.png" alt="Kitchen One"></a>
		<a href="/kitchen/2"><img src="/img/2.webp?v=2" alt="Kitchen Two"></a>`
	r := e.runner(
		[]sources.Source{{Factory: "zov", URL: "http://x/catalog"}},
		routes{
			"http://x/catalog":        {status: 200, body: page},
			"http://x/img/1.png":      {status: 200, body: "png"},
			"http://x/img/2.webp?v=2": {status: 404},
		},
	)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	c := e.readCatalog(t)
	require.Equal(t, []string{"geosideal", "zov"}, c.Factories())

	zov := c.Get("zov")
	require.Len(t, zov, 2)
	require.Equal(t, "kitchen-one", zov[0].Slug)
	require.Equal(t, "zov/kitchen-one.png", zov[0].Image)
	require.Equal(t, "kitchen-two", zov[1].Slug)
	require.Equal(t, "zov/kitchen-two.svg", zov[1].Image)
	require.Empty(t, c.Get("geosideal"))
}

func TestRunCancelledPersistsNothing(t *testing.T) {
	e := newEnv(t)
	r := e.runner(
		[]sources.Source{{Factory: "zov", URL: "http://x/catalog"}},
		routes{"http://x/catalog": {status: 200, body: modelPage}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))

	_, err = os.Stat(e.catalogPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(e.reportPath)
	require.True(t, os.IsNotExist(err))
}

func TestRunPersistFailure(t *testing.T) {
	e := newEnv(t)
	// a file where the data directory should be
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "data"), nil, 0644))

	r := e.runner(nil, routes{})
	_, err := r.Run(context.Background())
	require.Error(t, err)
	require.Len(t, e.rec.Reports("broken"), 2)
}

type stubPages map[string]string

func (s stubPages) Get(_ context.Context, link string) (string, error) {
	page, ok := s[link]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

type stubDownloader struct {
	calls []string
}

func (s *stubDownloader) Download(_ context.Context, link, key string) bool {
	s.calls = append(s.calls, key)
	return strings.HasSuffix(link, ".jpg")
}

func TestProcessSourceStates(t *testing.T) {
	e := newEnv(t)
	downloads := &stubDownloader{}
	r := NewRunner(Options{
		Catalog: catalog.Open(e.catalogPath, e.rec),
		Pages: stubPages{
			"http://x/catalog": `<a href="/m1"><img src="m1.jpg">Model 1</a><a href="/m2"><img src="m2.gif">Model 2</a>`,
			"http://x/empty":   `<p></p>`,
		},
		Extractor:  extract.NewExtractor(),
		Downloader: downloads,
		Telemetry:  e.rec,
	})

	done := r.processSource(context.Background(), sources.Source{Factory: "zov", URL: "http://x/catalog"})
	require.Equal(t, StateDone, done.State)
	require.True(t, done.State.Terminal())
	require.Equal(t, report.Outcome{Factory: "zov", URL: "http://x/catalog", Parsed: 2, Saved: 2}, done.Outcome)
	require.Empty(t, done.Warning)
	require.Equal(t, []string{"zov/model-1.jpg", "zov/model-2.gif"}, downloads.calls)
	require.Equal(t, []State{
		StatePending, StateFetching, StateFetched, StateExtracting,
		StateExtracted, StateMerging, StateDone,
	}, done.Path)

	empty := r.processSource(context.Background(), sources.Source{Factory: "zov", URL: "http://x/empty"})
	require.Equal(t, StateEmpty, empty.State)
	require.Equal(t, "zov: no style cards found", empty.Warning)
	require.Equal(t, []State{
		StatePending, StateFetching, StateFetched, StateExtracting, StateEmpty,
	}, empty.Path)

	failed := r.processSource(context.Background(), sources.Source{Factory: "astra", URL: "http://x/missing"})
	require.Equal(t, StateFetchFailed, failed.State)
	require.Equal(t, "astra: not found", failed.Warning)
	require.Equal(t, "fetch_failed", failed.State.String())
	require.Equal(t, []State{StatePending, StateFetching, StateFetchFailed}, failed.Path)

	entries := r.opts.Catalog.Get("zov")
	require.Equal(t, "zov/model-1.jpg", entries[0].Image)
	require.Equal(t, "zov/model-2.svg", entries[1].Image)
}

func TestRunWithoutTelemetry(t *testing.T) {
	e := newEnv(t)
	r := NewRunner(Options{
		Sources:    []sources.Source{{Factory: "astra", URL: "http://x/missing"}},
		Catalog:    catalog.Open(e.catalogPath, nil),
		Pages:      stubPages{},
		Extractor:  extract.NewExtractor(),
		Downloader: &stubDownloader{},
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"astra: not found"}, rep.Warnings)
}
