// Package memory provides an in-memory implementation of the blob storage
// port for tests and dry runs.
package memory

import (
	"sync"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// Store keeps blobs in a map guarded by a read-write mutex.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

var _ ports.BlobStore = (*Store)(nil)

// Exists reports whether a blob is present at path.
func (s *Store) Exists(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[path]
	return ok, nil
}

// Read returns a copy of the blob at path, or NOT_FOUND.
func (s *Store) Read(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "%q", path)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data at path.
func (s *Store) Write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
	return nil
}
