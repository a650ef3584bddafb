package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.5", true},
		{" 2.50 ", "2.5", true},
		{"50000", "50000", true},
		{"1,000", "1000", true},
		{"12,500.75", "12500.75", true},
		{"1,00,000", "100000", true},
		{"1,234,567", "1234567", true},
		{"1,5", "1.5", true},
		{"1.234,56", "", false},
		{"1,2345", "", false},
		{"12,34,5", "", false},
		{"1,000,00", "", false},
		{"1234,567", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseStoredAmount(t *testing.T) {
	if d, ok := ParseStoredAmount("2500.5"); !ok || d.String() != "2500.5" {
		t.Fatalf("unexpected %s %v", d, ok)
	}
	if d, ok := ParseStoredAmount("-3"); !ok || d.String() != "-3" {
		t.Fatalf("stored amounts keep their sign, got %s %v", d, ok)
	}
	if d, ok := ParseStoredAmount("-1,250.50"); !ok || d.String() != "-1250.5" {
		t.Fatalf("grouped stored amount, got %s %v", d, ok)
	}
	if _, ok := ParseStoredAmount("1.000,5"); ok {
		t.Fatalf("expected failure on mixed separators")
	}
	if _, ok := ParseStoredAmount("n/a"); ok {
		t.Fatalf("expected failure")
	}
	if _, ok := ParseStoredAmount(""); ok {
		t.Fatalf("expected failure on empty")
	}
}
