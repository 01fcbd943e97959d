package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want Month
	}{
		{"jan", January},
		{"JAN", January},
		{"January", January},
		{" march ", March},
		{"Sep", September},
		{"september", September},
		{"1", January},
		{"12", December},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if err != nil {
				t.Fatalf("ParseMonth(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMonth(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMonthInvalid(t *testing.T) {
	for _, in := range []string{"", "0", "13", "-1", "janu", "foo", "Sept"} {
		_, err := ParseMonth(in)
		if !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q) error = %v, want %v", in, err, ErrInvalidMonth)
			continue
		}
		var me *InvalidMonthError
		if !errors.As(err, &me) {
			t.Errorf("ParseMonth(%q) error is %T, want *InvalidMonthError", in, err)
			continue
		}
		if me.Token != in {
			t.Errorf("Token = %q, want %q", me.Token, in)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	for i := 1; i <= 12; i++ {
		label, err := MonthLabel(i)
		if err != nil {
			t.Fatalf("MonthLabel(%d) error = %v", i, err)
		}
		back, err := ParseMonth(label)
		if err != nil {
			t.Fatalf("ParseMonth(%q) error = %v", label, err)
		}
		if back != Month(i) {
			t.Errorf("round trip of %d gave %v", i, back)
		}
	}
	for _, i := range []int{0, 13} {
		if _, err := MonthLabel(i); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("MonthLabel(%d) error = %v, want %v", i, err, ErrInvalidMonth)
		}
	}
	if got := February.Short(); got != "Feb" {
		t.Errorf("Short() = %q, want Feb", got)
	}
	if got := Month(14).String(); got != "Month(14)" {
		t.Errorf("String() = %q, want Month(14)", got)
	}
}

func TestMonthsFromSlice(t *testing.T) {
	ms := NewMonths()
	got, err := MonthsFromSlice(ms.Slice())
	if err != nil {
		t.Fatalf("MonthsFromSlice() error = %v", err)
	}
	if got != ms {
		t.Errorf("MonthsFromSlice() = %v, want %v", got, ms)
	}

	if _, err := MonthsFromSlice(ms.Slice()[:11]); !errors.Is(err, ErrMonthsLength) {
		t.Errorf("short slice: error = %v, want %v", err, ErrMonthsLength)
	}

	swapped := ms.Slice()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	if _, err := MonthsFromSlice(swapped); !errors.Is(err, ErrMonthsOrder) {
		t.Errorf("swapped slice: error = %v, want %v", err, ErrMonthsOrder)
	}
}

func TestMonthsSet(t *testing.T) {
	ms := NewMonths()
	if err := ms.Set(April, Cents(500), true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	want := MonthValue{Month: April, Value: Cents(500), Paid: true}
	if got := *ms.At(April); got != want {
		t.Errorf("At(April) = %+v, want %+v", got, want)
	}
	if err := ms.Set(Month(0), Cents(1), false); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("Set(0) error = %v, want %v", err, ErrInvalidMonth)
	}
}

func TestNewExpenseMonth(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	em, err := NewExpenseMonth(7, WithClock(now))
	if err != nil {
		t.Fatalf("NewExpenseMonth() error = %v", err)
	}
	if em.Year != 2025 || em.Month != January || em.ExpenseID != 7 {
		t.Errorf("defaults = year %d month %v expense %d, want 2025 January 7", em.Year, em.Month, em.ExpenseID)
	}
	if em.Deleted() {
		t.Error("new row reported as deleted")
	}

	em, err = NewExpenseMonth(7, WithYear(2024), WithMonth(11), WithValue(Cents(9900), true))
	if err != nil {
		t.Fatalf("NewExpenseMonth() error = %v", err)
	}
	if em.Year != 2024 || em.Month != November {
		t.Errorf("got year %d month %v, want 2024 November", em.Year, em.Month)
	}
	if !em.Paid || em.Value != Cents(9900) {
		t.Errorf("got paid %v value %v, want true 99.00", em.Paid, em.Value)
	}

	_, err = NewExpenseMonth(7, WithMonth(13))
	var me *InvalidMonthError
	if !errors.As(err, &me) {
		t.Fatalf("month 13: error = %v, want *InvalidMonthError", err)
	}
	if me.Token != "13" {
		t.Errorf("Token = %q, want 13", me.Token)
	}

	em, err = NewExpenseMonth(7, WithValue(Cents(-5), false))
	if err != nil {
		t.Fatalf("NewExpenseMonth() error = %v", err)
	}
	if !em.Value.IsZero() {
		t.Errorf("negative value kept as %v", em.Value)
	}
}
