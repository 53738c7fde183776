package catalog

import (
	"fmt"
	"path"
	"strings"

	"fabriq-content/internal/extract"
)

// PlaceholderExt is the extension of the fallback image an external
// default-asset mechanism provides for every slug.
const PlaceholderExt = "svg"

// ImageKey is where a style's image lives relative to the asset root.
func ImageKey(factory, slug, ext string) string {
	return path.Join(factory, fmt.Sprintf("%s.%s", slug, ext))
}

// PlaceholderKey is the ImageKey referenced when the download failed.
func PlaceholderKey(factory, slug string) string {
	return ImageKey(factory, slug, PlaceholderExt)
}

// Fetched is a style together with the key its image was stored under,
// empty when the image could not be downloaded.
type Fetched struct {
	Style    extract.Style
	ImageKey string
}

type Merger struct {
	// ImagePrefix is prepended to every image path, ex. `assets/img/styles`.
	ImagePrefix string
}

func Description(factory string) string {
	return fmt.Sprintf("Стиль из каталога %s", strings.ToUpper(factory))
}

func PagePath(factory, slug string) string {
	return fmt.Sprintf("styles/%s/%s.html", factory, slug)
}

// Build turns a factory's fetched styles into catalog entries.
func (m Merger) Build(factory string, fetched []Fetched) []Entry {
	entries := make([]Entry, 0, len(fetched))
	for _, f := range fetched {
		key := f.ImageKey
		if key == "" {
			key = PlaceholderKey(factory, f.Style.Slug)
		}
		entries = append(entries, Entry{
			Slug:        f.Style.Slug,
			Title:       f.Style.Title,
			Description: Description(factory),
			Image:       path.Join(m.ImagePrefix, key),
			Page:        PagePath(factory, f.Style.Slug),
			SourceURL:   f.Style.SourceHref,
		})
	}
	return entries
}

// Merge replaces the factory's entries when there are any and reports
// whether it did. No entries leaves the previous ones in place.
func (m Merger) Merge(store *Store, factory string, entries []Entry) bool {
	if len(entries) == 0 {
		return false
	}
	store.Replace(factory, entries)
	return true
}
