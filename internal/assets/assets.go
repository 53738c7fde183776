// Package assets downloads style images into a content store.
package assets

import (
	"context"
	"net/url"
	"path"
	"strings"

	"fabriq-content/internal/telemetry"
	"fabriq-content/lib/contentstore"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fabriq.internal.assets")

const (
	report_downloader_download = "downloader.download"
	report_downloader_store    = "downloader.store"
)

// DefaultExt is used when an image url has no extension in its path.
const DefaultExt = "jpg"

type Downloader struct {
	http  *resty.Client
	store contentstore.Store
	tel   telemetry.API
}

func NewDownloader(client *resty.Client, store contentstore.Store, tel telemetry.API) Downloader {
	return Downloader{
		http:  client,
		store: store,
		tel:   telemetry.NewScopedAPI("assets", tel),
	}
}

// Download fetches link and stores the body under key. It never fails the
// caller, false means nothing was stored.
func (d Downloader) Download(ctx context.Context, link, key string) bool {
	if link == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "Download")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", link),
		attribute.String("key", key),
	)

	res, err := d.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		d.tel.ReportDebug(report_downloader_download, link, err)
		return false
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
		d.tel.ReportDebug(report_downloader_download, link, res.Status())
		return false
	}

	err = d.store.Put(ctx, key, res.Body())
	if err != nil {
		span.SetStatus(codes.Error, "failed to store")
		d.tel.ReportWarning(report_downloader_store, key, err)
		return false
	}
	return true
}

// ImageExt returns the extension of the link's path as written, without the
// dot, DefaultExt when there is none.
func ImageExt(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return DefaultExt
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return DefaultExt
	}
	return ext
}
