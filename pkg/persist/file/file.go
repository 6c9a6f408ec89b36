// Package file provides a filesystem-backed snapshot store. Each key maps to
// one file in a data directory; writes go through a temp file and rename so a
// crash mid-write never leaves a truncated snapshot behind.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parley-ai/parley/pkg/persist"
)

// Store persists blobs as files under a directory.
// Thread-safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Compile-time interface check.
var _ persist.Store = (*Store)(nil)

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save implements persist.Store.
func (s *Store) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("file: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("file: rename %q: %w", path, err)
	}
	return nil
}

// Load implements persist.Store.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %q: %w", key, err)
	}
	return blob, nil
}

// path maps a key to a file path, replacing separators so keys cannot escape
// the data directory.
func (s *Store) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json")
}
