package backend

import (
	"context"
	"time"

	"kasa/internal/amqp"
	"kasa/internal/source"
	"kasa/internal/storage"
)

// CleanupFunc releases the resources opened by a factory.
type CleanupFunc func() error

// BackendResult holds everything the app needs from the outside world.
// Publisher is nil when no broker is configured or reachable.
type BackendResult struct {
	Source    source.Backend
	Store     storage.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Source SourceType
	Store  StoreType

	// REST source
	APIBaseURL string
	APITimeout time.Duration

	// Memory source seed files
	DataDirectory string

	// SQLite store
	SQLiteDBPath string

	// Optional AMQP event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// SourceType selects where categories and transactions come from.
type SourceType string

const (
	MemorySource SourceType = "memory"
	RESTSource   SourceType = "rest"
)

func (t SourceType) String() string { return string(t) }

func (t SourceType) IsValid() bool {
	switch t {
	case MemorySource, RESTSource:
		return true
	}
	return false
}

// StoreType selects where notification state is persisted.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
)

func (t StoreType) String() string { return string(t) }

func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, SQLiteStore:
		return true
	}
	return false
}
