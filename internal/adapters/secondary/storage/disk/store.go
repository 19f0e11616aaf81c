// Package disk provides the local-filesystem implementation of the blob
// storage port.
package disk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// Store persists blobs under a root directory. Key material is written
// with owner-only permissions; everything else is world-readable.
type Store struct {
	root string
}

// New creates a disk store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

var _ ports.BlobStore = (*Store)(nil)

// resolve maps a storage path to a filesystem path, rejecting escapes from
// the root. Relative roots, including ".", are valid.
func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", errors.Wrapf(errors.ErrIO, "empty storage path")
	}
	root := filepath.Clean(s.root)
	full := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", errors.Wrapf(errors.ErrIO, "storage path %q escapes the root", path)
	}
	return full, nil
}

// Exists reports whether a blob is present at path.
func (s *Store) Exists(path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(full)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return false, errors.Wrap(errors.ErrIO, statErr)
}

// Read returns the blob at path, or NOT_FOUND.
func (s *Store) Read(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, readErr := os.ReadFile(full)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, errors.Wrapf(errors.ErrNotFound, "%q", path)
		}
		return nil, errors.Wrap(errors.ErrIO, readErr)
	}
	return data, nil
}

// Write stores data at path, creating parent directories as needed.
func (s *Store) Write(path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(full), 0o755); mkdirErr != nil {
		return errors.Wrap(errors.ErrIO, mkdirErr)
	}
	mode := os.FileMode(0o644)
	if strings.HasSuffix(path, "key.pem") {
		mode = 0o600
	}
	if writeErr := os.WriteFile(full, data, mode); writeErr != nil {
		return errors.Wrap(errors.ErrIO, writeErr)
	}
	return nil
}
