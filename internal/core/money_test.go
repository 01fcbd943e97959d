package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseDecimalToCents(%q) error = %v, want %v", tc.in, err, ErrInvalidAmount)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.out {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{
		"1.234,56":  123456,
		"1,234.56":  123456,
		"R$ -12,30": 1230,
		"(12.30)":   1230,
		"12":        1200,
		"1,000,000": 100000000,
		"":          0,
		"n/a":       0,
		"0,5":       50,
		"99.999":    10000,
		"2.345.678": 234567800,
	}
	for in, want := range cases {
		if got := ParseAmount(in).Cents; got != want {
			t.Errorf("ParseAmount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	m := Cents(12345)
	if got := m.String(); got != "123.45" {
		t.Errorf("String() = %q, want 123.45", got)
	}
	if got := m.Float(); math.Abs(got-123.45) > 1e-9 {
		t.Errorf("Float() = %v, want 123.45", got)
	}
	if got := FromFloat(19.99).Cents; got != 1999 {
		t.Errorf("FromFloat(19.99) = %d, want 1999", got)
	}
	if got := FromFloat(-19.99).Cents; got != 1999 {
		t.Errorf("FromFloat(-19.99) = %d, want 1999", got)
	}
	if err := (Money{}).Validate(); err == nil {
		t.Error("zero Money should not validate")
	}
}
