package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

// DateLayout is the on-disk and on-wire date format.
const DateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	Transaction struct {
		Date     Date
		Kind     Kind
		Mode     string // payment channel, e.g. Cash, Card
		Category string
		Amount   decimal.Decimal
		Notes    string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCategory = errors.New("empty category")
	ErrNotesTooLong  = errors.New("notes too long (max 500 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// In reports whether the date falls in the given calendar year and month.
// The zero date is never in any month.
func (d Date) In(year, month int) bool {
	if d.IsZero() {
		return false
	}
	return d.Year() == year && int(d.Month()) == month
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseKind accepts "income"/"expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// Signed returns the amount as a contribution to the balance:
// positive for income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Equal reports whether two transactions are identical row for row.
func (t Transaction) Equal(o Transaction) bool {
	return t.Date.Equal(o.Date.Time) &&
		t.Kind == o.Kind &&
		t.Mode == o.Mode &&
		t.Category == o.Category &&
		t.Amount.Equal(o.Amount) &&
		t.Notes == o.Notes
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Notes) > 500 {
		return ErrNotesTooLong
	}
	return nil
}
