package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coinpath/internal/core"
)

// TransactionReplayMessage carries a transaction that was saved locally
// because the remote write failed, so a worker can push it to the remote
// sheet later. The full row travels in the message: the local store has no
// stable ids to look it up by.
type TransactionReplayMessage struct {
	Date      string          `json:"date"`
	Type      string          `json:"type"`
	Mode      string          `json:"mode"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	SavedTo   string          `json:"saved_to"`
	LocalRef  string          `json:"local_ref,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTransactionReplayMessage creates a replay message for tx, which was
// stored on the backend named savedTo under ref.
func NewTransactionReplayMessage(tx core.Transaction, savedTo, ref string) *TransactionReplayMessage {
	return &TransactionReplayMessage{
		Date:      tx.Date.String(),
		Type:      tx.Kind.String(),
		Mode:      tx.Mode,
		Category:  tx.Category,
		Amount:    tx.Amount,
		Notes:     tx.Notes,
		SavedTo:   savedTo,
		LocalRef:  ref,
		Timestamp: time.Now(),
	}
}

// Transaction rebuilds and validates the carried transaction.
func (m *TransactionReplayMessage) Transaction() (core.Transaction, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", m.Date, err)
	}
	kind, err := core.ParseKind(m.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("type %q: %w", m.Type, err)
	}
	tx := core.Transaction{
		Date:     date,
		Kind:     kind,
		Mode:     m.Mode,
		Category: m.Category,
		Amount:   m.Amount,
		Notes:    m.Notes,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionReplayMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionReplayMessageFromJSON creates a message from JSON bytes
func TransactionReplayMessageFromJSON(data []byte) (*TransactionReplayMessage, error) {
	var msg TransactionReplayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
