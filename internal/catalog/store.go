package catalog

import (
	"errors"
	"os"

	"fabriq-content/internal/telemetry"
	"fabriq-content/lib/fsutil"
)

const (
	report_store_open    = "store.open"
	report_store_persist = "store.persist"
)

// Store owns the in-memory catalog of a run and the document it came from.
type Store struct {
	path    string
	catalog *Catalog
	tel     telemetry.API
}

// Open loads the catalog document at path. A missing or unreadable document
// yields an empty catalog instead of an error, a first run or a corrupt file
// must not block ingestion.
func Open(path string, tel telemetry.API) *Store {
	if tel == nil {
		tel = telemetry.NewSlogAPI()
	}
	tel = telemetry.NewScopedAPI("catalog", tel)
	s := &Store{path: path, catalog: New(), tel: tel}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		tel.ReportDebug("no catalog document, starting empty", path)
		return s
	}
	if err != nil {
		tel.ReportWarning(report_store_open, path, err)
		return s
	}

	c, opaque, err := Decode(contents)
	if err != nil {
		tel.ReportWarning(report_store_open, path, err)
		return s
	}
	for _, key := range opaque {
		tel.ReportDebug("keeping value that is not a list of entries as is", path, key)
	}
	s.catalog = c
	return s
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(factory string) []Entry {
	return s.catalog.Get(factory)
}

func (s *Store) Replace(factory string, entries []Entry) {
	s.catalog.Set(factory, entries)
}

func (s *Store) Factories() []string {
	return s.catalog.Factories()
}

// Persist rewrites the whole document atomically.
func (s *Store) Persist() error {
	contents, err := s.catalog.MarshalIndent()
	if err != nil {
		return err
	}
	err = fsutil.WriteFileAtomic(s.path, contents, 0644)
	if err != nil {
		s.tel.ReportBroken(report_store_persist, s.path, err)
		return err
	}
	return nil
}
