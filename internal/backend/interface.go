package backend

import (
	"context"

	"expenses/internal/storage"
)

// BackendResult contains the opened store. The caller closes Store.
type BackendResult struct {
	Store storage.Store
	// Type is the backend actually in use, MemoryBackend after a fallback.
	Type BackendType
	// Degraded reports that the configured store was unavailable and entries
	// will not survive the process.
	Degraded bool
}

// Factory creates stores based on configuration
type Factory interface {
	// CreateBackend opens the configured store, falling back to memory when
	// the store is unavailable.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, RedisBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
