package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"coinpath/internal/core"
	"coinpath/internal/log"
)

// Store persists transactions to a single CSV file. Every save rewrites the
// whole file; a missing file is an empty collection.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *log.Logger
}

func New(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{path: path, logger: logger.WithComponent("csvfile")}
}

func (s *Store) Name() string { return "csv" }

// Path returns the file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Append loads the collection, adds tx and rewrites the file. The row
// reference is the 1-based data row number.
func (s *Store) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	txs = append(txs, tx)
	if err := s.write(txs); err != nil {
		return "", err
	}
	return fmt.Sprintf("row:%d", len(txs)), nil
}

func (s *Store) Replace(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(txs)
}

func (s *Store) load(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	res, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if res.Skipped > 0 {
		s.logger.Warn("Skipped unreadable rows",
			"path", s.path,
			"skipped", res.Skipped)
	}
	return res.Transactions, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *Store) write(txs []core.Transaction) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".transactions-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, txs); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	s.logger.Debug("Rewrote transaction file",
		"path", s.path,
		"rows", len(txs))
	return nil
}
