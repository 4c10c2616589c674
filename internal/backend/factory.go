// Package backend selects the persistent store implementation from
// configuration.
package backend

import (
	"fmt"

	"tenge/internal/config"
	"tenge/internal/storage"
	"tenge/internal/storage/memory"
)

// Type represents the configured store backend.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Open creates the store named by cfg.DataBackend. The caller owns the
// returned store and must Close it.
func Open(cfg *config.Config) (storage.Store, error) {
	switch Type(cfg.DataBackend) {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case MemoryBackend:
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}
