// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// typed by users or stored by backends.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to an amount.
//
// A single comma followed by one or two digits is a decimal separator
// (12,34). Otherwise commas must group digits, in threes or in the lakh
// style (1,00,000), ahead of an optional dot fraction. Anything else is
// ambiguous and rejected. Signs are rejected; only strictly positive values
// are allowed.
//
// Examples:
//   ParseAmount("12.34")    -> 12.34, nil
//   ParseAmount("12,34")    -> 12.34, nil
//   ParseAmount("1,000")    -> 1000, nil
//   ParseAmount("1,234.5")  -> 1234.5, nil
//   ParseAmount("1.234,5")  -> 0, ErrInvalidAmount
//   ParseAmount("0")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok || strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseStoredAmount is the lenient counterpart used when decoding rows that a
// backend already persisted: it also accepts a leading sign and exponent
// notation, and leaves positivity checks to the caller.
func ParseStoredAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	s, ok := normalizeSeparators(s)
	if !ok || s == "" {
		return decimal.Zero, false
	}
	s = sign + s
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators rewrites the commas of s to the plain form accepted by
// decimal.NewFromString.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return "", false
	}
	if !hasDot && strings.Count(s, ",") == 1 {
		if i := strings.IndexByte(s, ','); len(s)-i-1 <= 2 {
			return s[:i] + "." + s[i+1:], true
		}
	}

	groups := strings.Split(whole, ",")
	last := len(groups) - 1
	for i, g := range groups {
		if !allDigits(g) {
			return "", false
		}
		switch n := len(g); {
		case i == 0 && (n < 1 || n > 3):
			return "", false
		case i == last && n != 3:
			return "", false
		case i > 0 && i < last && n != 2 && n != 3:
			return "", false
		}
	}
	out := strings.Join(groups, "")
	if hasDot {
		out += "." + frac
	}
	return out, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatAmount renders an amount as a plain decimal number with at most the
// digits it carries, e.g. 50000, 12.5, 0.01.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
