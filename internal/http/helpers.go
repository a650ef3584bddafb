package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"coinpath/internal/core"
	"coinpath/internal/ledger"
)

// amount renders a decimal with two fraction digits, e.g. "12.50".
func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// bodyTooLarge reports whether err comes from a body cut off by
// http.MaxBytesReader.
func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// monthOf selects the rows of p, or all of txs when p.Month is 0.
func monthOf(txs []core.Transaction, p MonthParams) []core.Transaction {
	if p.Month == 0 {
		return txs
	}
	return ledger.Monthly(txs, p.Year, p.Month)
}
