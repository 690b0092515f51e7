package index

import (
	"errors"
	"strings"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// errMissingCollection is returned by backends when the file exists but does
// not hold the requested collection.
var errMissingCollection = errors.New("collection not found")

// backend persists one collection per file.
type backend interface {
	Name() string
	FileName(collection string) string
	Write(path string, meta Meta, entries []Entry) error
	Read(path, collection string) (Meta, []Entry, error)
}

func newBackend(name string) (backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendBolt:
		return boltBackend{}, nil
	case BackendSQLite:
		return sqliteBackend{}, nil
	}
	return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "index backend", "unsupported index backend %q (want %s or %s)", name, BackendBolt, BackendSQLite)
}
