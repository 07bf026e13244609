package backend

import (
	"context"

	"foro/internal/docstore"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store and the function that releases it together
// with any background consumers started for it.
type Result struct {
	Store   docstore.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type Type

	// SQLite specific
	SQLitePath   string
	AMQPURL      string
	AMQPExchange string

	// Postgres specific
	PostgresURL string

	// Memory specific
	SeedFile string
}

// Type represents the kind of document store
type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Postgres:
		return true
	default:
		return false
	}
}
