// Package settings holds the user-editable preferences: currency, the
// category and mode lists offered at entry, monthly budgets and recurring
// transactions. They live in a YAML file layered over built-in defaults.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/ghodss/yaml"
	"github.com/shopspring/decimal"

	"coinpath/internal/core"
)

type (
	Settings struct {
		Currency   string                     `json:"currency"`
		Modes      []string                   `json:"modes"`
		Categories Categories                 `json:"categories"`
		Budgets    map[string]decimal.Decimal `json:"budgets,omitempty"`
		Recurring  []RecurringItem            `json:"recurring,omitempty"`
	}

	Categories struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}

	// RecurringItem is a fixed transaction materialised once a month on Day.
	RecurringItem struct {
		Day      int             `json:"day"`
		Type     core.Kind       `json:"type"`
		Mode     string          `json:"mode"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Notes    string          `json:"notes,omitempty"`
	}
)

var symbols = map[string]string{"USD": "$", "INR": "₹", "EUR": "€", "GBP": "£"}

// Defaults returns the built-in settings. Budgets and Recurring stay nil so
// a merge never injects entries the user did not write.
func Defaults() Settings {
	return Settings{
		Currency: "USD",
		Modes:    []string{"Cash", "Card", "UPI", "Bank Transfer", "Cheque"},
		Categories: Categories{
			Income: []string{"Salary", "Freelance", "Investment", "Other"},
			Expense: []string{
				"Food", "Rent", "Utilities", "Transport", "Entertainment",
				"Healthcare", "Shopping", "Savings", "Education", "Other",
			},
		},
	}
}

// Load reads path and fills every field left empty from Defaults.
// A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Settings{}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := mergo.Merge(&s, Defaults()); err != nil {
		return nil, fmt.Errorf("merge settings defaults: %w", err)
	}
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the settings as YAML, replacing the file atomically.
func Save(path string, s *Settings) error {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, path)
}

// Validate collects every problem found in the settings.
func (s *Settings) Validate() error {
	var errs []string
	if len(s.Modes) == 0 {
		errs = append(errs, "at least one mode is required")
	}
	for cat, b := range s.Budgets {
		if b.IsNegative() {
			errs = append(errs, fmt.Sprintf("budget for %q must not be negative", cat))
		}
	}
	for i, r := range s.Recurring {
		if r.Day < 1 || r.Day > 28 {
			errs = append(errs, fmt.Sprintf("recurring[%d]: day must be between 1 and 28, got %d", i, r.Day))
		}
		if _, err := core.ParseKind(string(r.Type)); err != nil {
			errs = append(errs, fmt.Sprintf("recurring[%d]: invalid type %q", i, r.Type))
		}
		if strings.TrimSpace(r.Category) == "" {
			errs = append(errs, fmt.Sprintf("recurring[%d]: category is required", i))
		}
		if !r.Amount.IsPositive() {
			errs = append(errs, fmt.Sprintf("recurring[%d]: amount must be greater than zero", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// CategoriesFor lists the categories offered for a kind.
func (s *Settings) CategoriesFor(kind core.Kind) []string {
	switch kind {
	case core.Income:
		return s.Categories.Income
	case core.Expense:
		return s.Categories.Expense
	}
	return nil
}

func (s *Settings) HasCategory(kind core.Kind, category string) bool {
	return contains(s.CategoriesFor(kind), category)
}

func (s *Settings) HasMode(mode string) bool {
	return contains(s.Modes, mode)
}

// Symbol is the display symbol for the currency, or the code itself.
func (s *Settings) Symbol() string {
	if sym, ok := symbols[s.Currency]; ok {
		return sym
	}
	return s.Currency
}

// Format renders an amount with the currency symbol and two decimals.
func (s *Settings) Format(d decimal.Decimal) string {
	return s.Symbol() + d.StringFixed(2)
}

// Transaction materialises a recurring item for the given month.
func (r RecurringItem) Transaction(year, month int) core.Transaction {
	kind, _ := core.ParseKind(string(r.Type))
	return core.Transaction{
		Date:     core.NewDate(year, month, r.Day),
		Kind:     kind,
		Mode:     r.Mode,
		Category: r.Category,
		Amount:   r.Amount,
		Notes:    r.Notes,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
