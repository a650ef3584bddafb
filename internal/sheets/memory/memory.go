package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"coinpath/internal/core"
	"coinpath/internal/csvfile"
)

// Store keeps transactions in process memory.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(seed ...core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), seed...)}
}

// NewFromFile seeds the store from a transaction CSV. A missing or
// unreadable file yields an empty store.
func NewFromFile(path string) *Store {
	f, err := os.Open(path)
	if err != nil {
		return New()
	}
	defer f.Close()
	res, err := csvfile.Decode(f)
	if err != nil {
		return New()
	}
	return New(res.Transactions...)
}

func (s *Store) Name() string { return "memory" }

// Load returns a copy of the stored transactions.
func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) Replace(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), txs...)
	return nil
}
