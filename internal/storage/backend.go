package storage

import "errors"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Backend persists named documents. Each document is written independently;
// a failed write never touches any other document.
type Backend interface {
	// Read returns the stored bytes of the named document or ErrNotFound.
	Read(name string) ([]byte, error)

	// Write replaces the named document wholesale.
	Write(name string, data []byte) error

	// Close releases any resources held by the backend.
	Close() error
}

// Open returns the backend registered under kind ("file" or "sqlite"),
// rooted at dataDir.
func Open(kind, dataDir string) (Backend, error) {
	switch kind {
	case "", "file":
		return NewFileBackend(dataDir)
	case "sqlite":
		return OpenSQLite(dataDir)
	default:
		return nil, errors.New("unknown storage backend: " + kind)
	}
}
