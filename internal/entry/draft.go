// Package entry models the state of a transaction being entered. A Draft is
// a plain value; every operation returns a new Draft and never mutates its
// input, so a session can be stored, copied or discarded freely.
package entry

import (
	"errors"
	"fmt"
	"strings"

	"coinpath/internal/core"
)

// Keypad keys besides the digits.
const (
	KeyDot       = "."
	KeyBackspace = "back"
	KeyClear     = "clear"
)

const maxFraction = 2

var (
	ErrMissingCategory = errors.New("please select a category")
	ErrUnknownCategory = errors.New("category is not available for this type")
	ErrUnknownMode     = errors.New("unknown payment mode")
	ErrUnknownKey      = errors.New("unknown key")
)

// Taxonomy answers which categories and modes may be chosen.
type Taxonomy interface {
	HasCategory(kind core.Kind, category string) bool
	HasMode(mode string) bool
}

type Draft struct {
	Kind     core.Kind `json:"kind"`
	Category string    `json:"category"`
	Mode     string    `json:"mode"`
	Date     core.Date `json:"-"`
	Notes    string    `json:"notes"`
	Buffer   string    `json:"buffer"` // keypad input, e.g. "12.5"
}

// New starts an expense draft dated d.
func New(d core.Date, mode string) Draft {
	return Draft{Kind: core.Expense, Date: d, Mode: mode}
}

// WithKind switches the kind and drops a category that the new kind does
// not offer.
func WithKind(d Draft, kind core.Kind, tax Taxonomy) Draft {
	d.Kind = kind
	if d.Category != "" && !tax.HasCategory(kind, d.Category) {
		d.Category = ""
	}
	return d
}

func WithCategory(d Draft, category string) Draft {
	d.Category = strings.TrimSpace(category)
	return d
}

func WithMode(d Draft, mode string) Draft {
	d.Mode = strings.TrimSpace(mode)
	return d
}

func WithDate(d Draft, date core.Date) Draft {
	d.Date = date
	return d
}

func WithNotes(d Draft, notes string) Draft {
	d.Notes = notes
	return d
}

// Press applies one keypad key. Keys that would make the buffer invalid
// (a second dot, a third decimal digit, leading zeros) leave it unchanged.
func Press(d Draft, key string) (Draft, error) {
	buf := d.Buffer
	switch {
	case key == KeyClear:
		buf = ""
	case key == KeyBackspace:
		if buf != "" {
			buf = buf[:len(buf)-1]
		}
	case key == KeyDot:
		if !strings.Contains(buf, ".") {
			if buf == "" {
				buf = "0"
			}
			buf += "."
		}
	case len(key) == 1 && key[0] >= '0' && key[0] <= '9':
		if i := strings.IndexByte(buf, '.'); i >= 0 {
			if len(buf)-i-1 < maxFraction {
				buf += key
			}
		} else if buf == "0" {
			buf = key
		} else {
			buf += key
		}
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	d.Buffer = buf
	return d, nil
}

// PressAll applies keys in order, stopping at the first unknown key.
func PressAll(d Draft, keys ...string) (Draft, error) {
	var err error
	for _, k := range keys {
		if d, err = Press(d, k); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Build validates the draft and produces the transaction to store.
func Build(d Draft, tax Taxonomy) (core.Transaction, error) {
	if !d.Kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}
	amount, err := core.ParseAmount(d.Buffer)
	if err != nil {
		return core.Transaction{}, err
	}
	if d.Category == "" {
		return core.Transaction{}, ErrMissingCategory
	}
	if !tax.HasCategory(d.Kind, d.Category) {
		return core.Transaction{}, fmt.Errorf("%w: %s", ErrUnknownCategory, d.Category)
	}
	if !tax.HasMode(d.Mode) {
		return core.Transaction{}, fmt.Errorf("%w: %s", ErrUnknownMode, d.Mode)
	}
	tx := core.Transaction{
		Date:     d.Date,
		Kind:     d.Kind,
		Mode:     d.Mode,
		Category: d.Category,
		Amount:   amount,
		Notes:    strings.TrimSpace(d.Notes),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Reset keeps kind, mode and date for the next entry and clears the rest.
func Reset(d Draft) Draft {
	return Draft{Kind: d.Kind, Mode: d.Mode, Date: d.Date}
}
