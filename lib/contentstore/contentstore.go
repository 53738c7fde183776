// Package contentstore stores downloaded binary assets under slash
// separated keys, either on the local filesystem or in an S3 bucket.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fabriq-content/lib/fsutil"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("content not found")

type Store interface {
	Put(ctx context.Context, key string, body []byte) error
}

// ReadWriter is a Store that can also read back what it holds.
type ReadWriter interface {
	Store
	Get(ctx context.Context, key string) ([]byte, error)
}

// CleanKey normalizes key and rejects keys that would leave the store root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid content key %q", key)
	}
	return cleaned, nil
}

type Filesystem struct {
	root string
}

func NewFilesystem(root string) Filesystem {
	return Filesystem{root: root}
}

func (f Filesystem) Path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f Filesystem) Put(_ context.Context, key string, body []byte) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(f.Path(key), body, 0644)
}

func (f Filesystem) Get(_ context.Context, key string) ([]byte, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(f.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return contents, err
}

// Exists reports whether a key has been written.
func (f Filesystem) Exists(key string) bool {
	_, err := os.Stat(f.Path(key))
	return err == nil
}
