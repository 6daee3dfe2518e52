package backend

import (
	"context"

	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store and its cleanup function
type BackendResult struct {
	Store store.Store
	// EventsEnabled reports whether writes are published to the broker.
	EventsEnabled bool
	Cleanup       CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a record store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// Ledger events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}

// Persistent reports whether records survive a restart.
func (bt BackendType) Persistent() bool {
	return bt == SQLiteBackend || bt == MongoBackend
}
