// Package ports defines the interfaces the certificate core consumes and
// exposes at its boundaries.
package ports

// BlobStore is the storage abstraction the core persists credential
// material through. Implementations may be a local filesystem, an object
// store, or an in-memory map; the core treats every call as plain blocking
// I/O. Read reports a missing path with errors.ErrNotFound; any other
// failure is wrapped in errors.ErrIO.
type BlobStore interface {
	Exists(path string) (bool, error)
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
}
