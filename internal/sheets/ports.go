package sheets

import (
	"context"
	"errors"

	"coinpath/internal/core"
)

// ErrNotConfigured is returned by a backend constructor when its
// required connection settings are absent. It is not a failure: callers
// select another backend.
var ErrNotConfigured = errors.New("backend not configured")

// Ports for the persistence adapters.
type (
	// Loader reads the full transaction collection.
	Loader interface {
		Load(ctx context.Context) ([]core.Transaction, error)
	}

	// Appender adds a single transaction and returns a backend-specific
	// reference to the stored row.
	Appender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// Replacer overwrites the whole collection.
	Replacer interface {
		Replace(ctx context.Context, txs []core.Transaction) error
	}

	// Backend is the contract every storage variant satisfies.
	Backend interface {
		Name() string
		Loader
		Appender
		Replacer
	}
)
