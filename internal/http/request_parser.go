// Package http provides the JSON API over the transaction ledger.
//
// This file implements utilities for parsing and validating HTTP request data:
// month selectors from query strings and transaction entries from JSON or
// form-encoded bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coinpath/internal/core"
	"coinpath/internal/entry"
)

// maxBodyBytes bounds request bodies, CSV imports included.
const maxBodyBytes = 5 << 20

var (
	ErrInvalidYear  = errors.New("invalid year")
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrMissingMonth = errors.New("month is required when year is given")
)

// MonthParams holds parsed year/month values from request parameters.
// Month 0 selects the whole collection.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now as the default. Values that are present but malformed are
// reported instead of silently replaced, and a year without a month is
// refused rather than read as the current month of that year.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return params, fmt.Errorf("%w: %q", ErrInvalidYear, v)
		}
		params.Year = y
		if strings.TrimSpace(query.Get("month")) == "" {
			return params, ErrMissingMonth
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return params, fmt.Errorf("%w: %q", ErrInvalidMonth, v)
		}
		params.Month = m
	}

	return params, nil
}

// ParseMonthFilter is ParseMonthParams for endpoints where the month is
// optional: with neither year nor month given it selects everything.
func ParseMonthFilter(query url.Values, now time.Time) (MonthParams, error) {
	if strings.TrimSpace(query.Get("year")) == "" && strings.TrimSpace(query.Get("month")) == "" {
		return MonthParams{Year: now.Year()}, nil
	}
	return ParseMonthParams(query, now)
}

// ParseKindParam reads the kind query parameter, defaulting to Expense.
func ParseKindParam(query url.Values) (core.Kind, error) {
	v := strings.TrimSpace(query.Get("kind"))
	if v == "" {
		return core.Expense, nil
	}
	return core.ParseKind(v)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		// Numbers stay json.Number so amounts keep every digit typed.
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData, p.err = nil, err
			return err
		}
		if _, err := dec.Token(); err != io.EOF {
			p.jsonData, p.err = nil, errors.New("unexpected data after JSON body")
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseDraft turns a parsed body into an entry draft. The date defaults to
// today and the mode to defaultMode; the amount is taken verbatim so that
// validation happens in one place when the draft is built.
func ParseDraft(p *RequestBodyParser, today core.Date, defaultMode string) (entry.Draft, error) {
	date := today
	if v := p.Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return entry.Draft{}, fmt.Errorf("%w: %q", err, v)
		}
		date = d
	}

	mode := p.Get("mode")
	if mode == "" {
		mode = defaultMode
	}

	d := entry.New(date, mode)
	if v := p.Get("type"); v != "" {
		kind, err := core.ParseKind(v)
		if err != nil {
			return entry.Draft{}, err
		}
		d.Kind = kind
	}
	d = entry.WithCategory(d, p.Get("category"))
	d = entry.WithNotes(d, p.Get("notes"))
	d.Buffer = p.Get("amount")
	return d, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
