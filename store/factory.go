package store

import (
	"fmt"
	"path/filepath"
)

// NewStore picks a backend. path is the database file for sqlite and the directory
// for jsonl.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(path), nil
	case "sqlite":
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "langlearn.db")
		}
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
