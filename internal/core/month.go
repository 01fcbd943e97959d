package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month index, 1 (January) through 12 (December).
type Month int

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// MonthsPerYear is the number of slots every Expense and Income carries.
const MonthsPerYear = 12

var monthNames = [MonthsPerYear]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var (
	ErrMonthsLength = errors.New("month list must have exactly 12 entries")
	ErrMonthsOrder  = errors.New("month list out of calendar order")
)

// InvalidMonthError reports a token that names no calendar month.
type InvalidMonthError struct {
	Token string
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("invalid month %q", e.Token)
}

// Is lets callers match with errors.Is(err, ErrInvalidMonth).
func (e *InvalidMonthError) Is(target error) bool {
	return target == ErrInvalidMonth
}

// ParseMonth accepts a full or three-letter month name (case-insensitive)
// or a 1-based numeric index.
func ParseMonth(token string) (Month, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return 0, &InvalidMonthError{Token: token}
	}
	if n, err := strconv.Atoi(t); err == nil {
		return MonthFromIndex(n)
	}
	for i, name := range monthNames {
		if strings.EqualFold(t, name) || strings.EqualFold(t, name[:3]) {
			return Month(i + 1), nil
		}
	}
	return 0, &InvalidMonthError{Token: token}
}

// MonthFromIndex validates a numeric month index.
func MonthFromIndex(i int) (Month, error) {
	if i < 1 || i > MonthsPerYear {
		return 0, &InvalidMonthError{Token: strconv.Itoa(i)}
	}
	return Month(i), nil
}

// MonthLabel returns the canonical name for a 1-based index.
func MonthLabel(i int) (string, error) {
	m, err := MonthFromIndex(i)
	if err != nil {
		return "", err
	}
	return m.Label(), nil
}

// Valid reports whether m is within 1..12.
func (m Month) Valid() bool {
	return m >= January && m <= December
}

// Label returns the canonical month name, or "" for an invalid month.
func (m Month) Label() string {
	if !m.Valid() {
		return ""
	}
	return monthNames[m-1]
}

// Short returns the three-letter month abbreviation.
func (m Month) Short() string {
	if !m.Valid() {
		return ""
	}
	return monthNames[m-1][:3]
}

func (m Month) String() string {
	if l := m.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("Month(%d)", int(m))
}

// MonthValue is one ledger slot: the amount owed in a month and whether it was settled.
type MonthValue struct {
	Month Month
	Value Money
	Paid  bool
}

// Months holds exactly one MonthValue per calendar month, in order.
type Months [MonthsPerYear]MonthValue

// NewMonths returns twelve zero-valued, unpaid slots labelled January..December.
func NewMonths() Months {
	var ms Months
	for i := range ms {
		ms[i].Month = Month(i + 1)
	}
	return ms
}

// MonthsFromSlice converts a persisted month list. A list that is not exactly
// twelve calendar-ordered entries is a contract violation and is rejected.
func MonthsFromSlice(in []MonthValue) (Months, error) {
	var ms Months
	if len(in) != MonthsPerYear {
		return ms, fmt.Errorf("%w: got %d", ErrMonthsLength, len(in))
	}
	for i, mv := range in {
		if mv.Month != Month(i+1) {
			return ms, fmt.Errorf("%w: slot %d holds %v", ErrMonthsOrder, i+1, mv.Month)
		}
		ms[i] = mv
	}
	return ms, nil
}

// At returns the slot for month m. m must be valid.
func (ms *Months) At(m Month) *MonthValue {
	return &ms[m-1]
}

// Set stores value and paid flag for month m.
func (ms *Months) Set(m Month, value Money, paid bool) error {
	if !m.Valid() {
		return &InvalidMonthError{Token: strconv.Itoa(int(m))}
	}
	ms[m-1] = MonthValue{Month: m, Value: value, Paid: paid}
	return nil
}

// Slice returns a copy of the slots as a slice for persistence layers.
func (ms Months) Slice() []MonthValue {
	out := make([]MonthValue, MonthsPerYear)
	copy(out, ms[:])
	return out
}

// ExpenseMonth is the row-level representation of a month slot as stored
// for bill statements.
type ExpenseMonth struct {
	ID        int64
	ExpenseID int64
	Year      int
	Month     Month
	Paid      bool
	Value     Money
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// ExpenseMonthOption customizes NewExpenseMonth.
type ExpenseMonthOption func(*expenseMonthInput)

type expenseMonthInput struct {
	year  int
	month int
	paid  bool
	value Money
	now   time.Time
}

func WithYear(year int) ExpenseMonthOption {
	return func(in *expenseMonthInput) { in.year = year }
}

func WithMonth(month int) ExpenseMonthOption {
	return func(in *expenseMonthInput) { in.month = month }
}

func WithValue(value Money, paid bool) ExpenseMonthOption {
	return func(in *expenseMonthInput) {
		in.value = value
		in.paid = paid
	}
}

// WithClock overrides the creation timestamp, mainly for tests.
func WithClock(now time.Time) ExpenseMonthOption {
	return func(in *expenseMonthInput) { in.now = now }
}

// NewExpenseMonth builds a ledger row. Year defaults to the current year and
// month defaults to January; an out-of-range month is an InvalidMonthError.
func NewExpenseMonth(expenseID int64, opts ...ExpenseMonthOption) (ExpenseMonth, error) {
	in := expenseMonthInput{month: int(January), now: time.Now()}
	for _, opt := range opts {
		opt(&in)
	}
	if in.year == 0 {
		in.year = in.now.Year()
	}
	m, err := MonthFromIndex(in.month)
	if err != nil {
		return ExpenseMonth{}, err
	}
	if in.value.Cents < 0 {
		in.value = Money{}
	}
	return ExpenseMonth{
		ExpenseID: expenseID,
		Year:      in.year,
		Month:     m,
		Paid:      in.paid,
		Value:     in.value,
		CreatedAt: in.now,
		UpdatedAt: in.now,
	}, nil
}

// Deleted reports whether the row was soft-deleted.
func (em ExpenseMonth) Deleted() bool {
	return em.DeletedAt != nil
}
