// Package extract finds catalog style candidates in a page's anchors.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"fabriq-content/lib/htmlutil"
	"fabriq-content/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fabriq.internal.extract")

// MaxStyles caps the candidates taken from a single page.
const MaxStyles = 12

// minTitleLength is exclusive, titles need at least 3 runes.
const minTitleLength = 2

var ErrInvalidBaseURL = errors.New("invalid base url")

// Keywords are matched against href + title, case-insensitively.
var Keywords = []string{
	"catalog", "kitchen", "kuh", "model", "collection", "style",
	"каталог", "кух", "модел", "коллекц", "стил",
}

type Style struct {
	Slug           string
	Title          string
	SourceHref     string
	ImageSourceURL string
}

type Extractor struct {
	relevant textutil.Matcher
	max      int
}

func NewExtractor() Extractor {
	return Extractor{
		relevant: textutil.NewMatcher(Keywords...),
		max:      MaxStyles,
	}
}

// Extract returns at most MaxStyles candidates with unique slugs, in
// document order. No candidates is not an error.
func (e Extractor) Extract(ctx context.Context, doc string, baseURL string) ([]Style, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	base, err := url.Parse(baseURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse base url")
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	styles := []Style{}
	seen := map[string]bool{}
	for _, anchor := range htmlutil.GetAnchors(ctx, parsed.Selection) {
		if len(styles) >= e.max {
			break
		}

		style, ok := e.candidate(base, anchor)
		if !ok || seen[style.Slug] {
			continue
		}
		seen[style.Slug] = true
		styles = append(styles, style)
	}

	span.SetAttributes(attribute.Int("styles", len(styles)))
	return styles, nil
}

func (e Extractor) candidate(base *url.URL, anchor htmlutil.Anchor) (Style, bool) {
	href, ok := resolve(base, anchor.Href)
	if !ok {
		return Style{}, false
	}

	var imageSrc string
	if anchor.Image != nil {
		imageSrc, ok = resolve(base, anchor.Image.Src)
		if !ok {
			return Style{}, false
		}
	}

	title := Title(anchor)
	if title == "" {
		return Style{}, false
	}
	if !e.relevant.Match(href + " " + title) {
		return Style{}, false
	}

	slug := textutil.Slugify(title)
	if slug == "" {
		return Style{}, false
	}

	return Style{
		Slug:           slug,
		Title:          title,
		SourceHref:     href,
		ImageSourceURL: imageSrc,
	}, true
}

// Title prefers the embedded image's alt text over the anchor's own text.
// Either must be longer than two characters once cleaned up.
func Title(anchor htmlutil.Anchor) string {
	if anchor.Image != nil {
		alt := textutil.Cleanup(anchor.Image.Alt)
		if utf8.RuneCountInString(alt) > minTitleLength {
			return alt
		}
	}
	text := textutil.Cleanup(anchor.Text)
	if utf8.RuneCountInString(text) > minTitleLength {
		return text
	}
	return ""
}

func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	link, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	return link.String(), true
}
