package backend

import (
	"context"

	"coinpath/internal/ledger"
	"coinpath/internal/sheets/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is the store built for the selected backend.
type Result struct {
	Store *ledger.Store

	// Remote is the Sheets client when the sheets backend is active.
	Remote *google.Client

	// Notice is set when the requested backend could not be used and a
	// local one was selected instead.
	Notice string

	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Type represents the type of backend
type Type string

const (
	CSVBackend    Type = "csv"
	SheetsBackend Type = "sheets"
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
	case CSVBackend, SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
