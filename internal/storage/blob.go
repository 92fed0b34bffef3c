package storage

import (
	"errors"
	"io"
)

// ErrBadKey rejects empty, absolute or escaping keys.
var ErrBadKey = errors.New("storage: invalid key")

// BlobStore keeps model snapshots and archived reports under
// slash-separated keys such as "models/default.json".
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	// Get fails with an error matching fs.ErrNotExist for unknown keys.
	Get(key string) (io.ReadCloser, error)
	// List returns the keys under prefix, sorted.
	List(prefix string) ([]string, error)
}
