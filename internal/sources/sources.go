// Package sources loads the ordered list of catalog pages the pipeline ingests.
package sources

import (
	"fmt"
	"net/url"
	"os"

	"fabriq-content/lib/configutil"
)

type Source struct {
	Factory string `json:"factory"`
	URL     string `json:"url"`
}

type document struct {
	Sources []Source `json:"sources"`
}

// LoadError means the sources document could not be used at all, the run
// has nothing to process.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load sources %s: %s", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads the sources document at path. Order is preserved.
func Load(path string) ([]Source, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(path, contents)
}

// Parse decodes and validates a sources document, path is only used for errors.
func Parse(path string, contents []byte) ([]Source, error) {
	doc, err := configutil.Decode[document](contents)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	for i, s := range doc.Sources {
		err := validate(s)
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("source %d: %w", i, err)}
		}
	}
	return doc.Sources, nil
}

func validate(s Source) error {
	if s.Factory == "" {
		return fmt.Errorf("missing factory id")
	}
	link, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Factory, err)
	}
	if (link.Scheme != "http" && link.Scheme != "https") || link.Host == "" {
		return fmt.Errorf("%s: url %q is not an absolute http(s) url", s.Factory, s.URL)
	}
	return nil
}
