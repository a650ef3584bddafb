package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/settings"
)

// ErrLedgerUnreadable is returned when the ledger could not be read from its
// primary backend, so items already present cannot be told apart.
var ErrLedgerUnreadable = errors.New("ledger could not be read; recurring items not applied")

// RecurringResult counts what one pass did with the recurring items.
type RecurringResult struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Added   int `json:"added"`
	Present int `json:"present"`
	NotDue  int `json:"not_due"`
	Failed  int `json:"failed"`
}

// RecurringProcessor materialises recurring items into the ledger.
type RecurringProcessor struct {
	entries *EntryService
	logger  *log.Logger
}

func NewRecurringProcessor(entries *EntryService, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringProcessor{
		entries: entries,
		logger:  logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue applies the items for the month containing now.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, items []settings.RecurringItem, now time.Time) (RecurringResult, error) {
	return p.Apply(ctx, items, now.Year(), int(now.Month()), now)
}

// Apply records every item due in the given month that has no exact match
// in the ledger yet, so repeated runs add nothing new. A degraded read
// aborts the pass before anything is written.
func (p *RecurringProcessor) Apply(ctx context.Context, items []settings.RecurringItem, year, month int, now time.Time) (RecurringResult, error) {
	res := RecurringResult{Year: year, Month: month}
	if month < 1 || month > 12 {
		return res, fmt.Errorf("invalid month %d", month)
	}
	if len(items) == 0 {
		return res, nil
	}

	snap := p.entries.Store().Load(ctx)
	if snap.Degraded {
		p.logger.WarnContext(ctx, "Skipping recurring items on a degraded read",
			log.FieldYear, year,
			log.FieldMonth, month,
			log.FieldBackend, snap.Source)
		return res, fmt.Errorf("%w: %s", ErrLedgerUnreadable, snap.Notice)
	}
	existing := snap.Transactions

	var errs []error
	for _, item := range items {
		if !IsDue(item.Day, year, month, now) {
			res.NotDue++
			continue
		}
		tx := item.Transaction(year, month)
		if ledger.Contains(existing, tx) {
			res.Present++
			continue
		}
		if _, err := p.entries.Record(ctx, tx); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("%s %s day %d: %w", tx.Kind, tx.Category, item.Day, err))
			p.logger.ErrorContext(ctx, "Failed to record recurring transaction",
				log.FieldCategory, tx.Category,
				log.FieldDate, tx.Date.String(),
				log.FieldError, err)
			continue
		}
		existing = append(existing, tx)
		res.Added++
	}

	p.logger.InfoContext(ctx, "Recurring transactions processed",
		log.FieldYear, year,
		log.FieldMonth, month,
		"added", res.Added,
		"present", res.Present,
		"not_due", res.NotDue,
		"failed", res.Failed)

	return res, errors.Join(errs...)
}

// IsDue reports whether an item on day of (year, month) is due at now.
// Past months are fully due, the current month up to today, future months
// not at all.
func IsDue(day, year, month int, now time.Time) bool {
	target := year*12 + month
	current := now.Year()*12 + int(now.Month())
	switch {
	case target < current:
		return true
	case target > current:
		return false
	}
	return day <= now.Day()
}
