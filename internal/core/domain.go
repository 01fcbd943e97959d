package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Fixed    ExpenseType = "FIXED"
	Variable ExpenseType = "VARIABLE"
)

const (
	Pix          BillType = "PIX"
	BankSlip     BillType = "BANK_SLIP"
	CreditCard   BillType = "CREDIT_CARD"
	AccountDebit BillType = "ACCOUNT_DEBIT"
)

type (
	ExpenseType string

	BillType string

	SupplierRef struct {
		ID   int64
		Name string
	}

	BankRef struct {
		ID   int64
		Name string
		Code string
	}

	GroupRef struct {
		ID   int64
		Name string
	}

	IncomeSourceRef struct {
		ID   int64
		Name string
	}

	// ChildExpense is one purchase grouped under a credit-card parent. It has
	// no Children field, so the hierarchy cannot grow past two levels.
	ChildExpense struct {
		ID          int64
		ParentID    int64
		Supplier    SupplierRef
		Type        ExpenseType
		Description string
		Months      Months
	}

	// Expense is a recurring charge tracked across the twelve months of its
	// Bill's year. When Children is non-empty the parent's own Months are
	// ignored by Calculate.
	Expense struct {
		ID          int64
		BillID      int64
		Supplier    SupplierRef
		Type        ExpenseType
		Description string
		Months      Months
		Children    []ChildExpense
	}

	Income struct {
		ID          int64
		Source      IncomeSourceRef
		Year        int
		Description string
		Months      Months
	}

	// Bill is one bank/payment-type statement for a year. It owns its Expenses.
	Bill struct {
		ID       int64
		Year     int
		Type     BillType
		Bank     BankRef
		Group    GroupRef
		NameCode string
		Expenses []Expense
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidBillType  = errors.New("invalid bill type")
	ErrInvalidType      = errors.New("invalid expense type")
	ErrEmptySupplier    = errors.New("empty supplier")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyBank        = errors.New("empty bank")
	ErrNestedChildren   = errors.New("child expense cannot have children")
	ErrParentMismatch   = errors.New("child expense belongs to another parent")
	ErrEmptyDescription = errors.New("empty description")
)

func (t BillType) IsValid() bool {
	switch t {
	case Pix, BankSlip, CreditCard, AccountDebit:
		return true
	default:
		return false
	}
}

func (t ExpenseType) IsValid() bool {
	return t == Fixed || t == Variable
}

// ParseBillType accepts the enum name in any case, with dashes or spaces for underscores.
func ParseBillType(s string) (BillType, error) {
	t := BillType(strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillType, s)
	}
	return t, nil
}

func validateYear(year int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func validateMonths(ms Months) error {
	for i, mv := range ms {
		if mv.Month != Month(i+1) {
			return fmt.Errorf("%w: slot %d holds %v", ErrMonthsOrder, i+1, mv.Month)
		}
		if mv.Value.Cents < 0 {
			return fmt.Errorf("%w: negative value in %s", ErrInvalidAmount, mv.Month)
		}
	}
	return nil
}

func (c ChildExpense) Validate() error {
	if strings.TrimSpace(c.Supplier.Name) == "" {
		return ErrEmptySupplier
	}
	if c.Type != "" && !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return validateMonths(c.Months)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Supplier.Name) == "" {
		return ErrEmptySupplier
	}
	if e.Type != "" && !e.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	if err := validateMonths(e.Months); err != nil {
		return err
	}
	for i, c := range e.Children {
		if e.ID != 0 && c.ParentID != 0 && c.ParentID != e.ID {
			return fmt.Errorf("child %d: %w", i, ErrParentMismatch)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	return nil
}

func (in Income) Validate() error {
	if strings.TrimSpace(in.Source.Name) == "" {
		return ErrEmptySource
	}
	if err := validateYear(in.Year); err != nil {
		return err
	}
	return validateMonths(in.Months)
}

func (b Bill) Validate() error {
	if err := validateYear(b.Year); err != nil {
		return err
	}
	if !b.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidBillType, b.Type)
	}
	if strings.TrimSpace(b.Bank.Name) == "" {
		return ErrEmptyBank
	}
	for i, e := range b.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %d: %w", i, err)
		}
	}
	return nil
}

// NewExpense returns an expense with labelled, empty months.
func NewExpense(supplier string, t ExpenseType) Expense {
	return Expense{
		Supplier: SupplierRef{Name: supplier},
		Type:     t,
		Months:   NewMonths(),
	}
}

// NewChildExpense returns a child with labelled, empty months.
func NewChildExpense(supplier string, t ExpenseType) ChildExpense {
	return ChildExpense{
		Supplier: SupplierRef{Name: supplier},
		Type:     t,
		Months:   NewMonths(),
	}
}

// AsChild converts a standalone expense into a child of parent. It fails if
// the expense already groups children of its own.
func (e Expense) AsChild(parentID int64) (ChildExpense, error) {
	if len(e.Children) > 0 {
		return ChildExpense{}, ErrNestedChildren
	}
	return ChildExpense{
		ID:          e.ID,
		ParentID:    parentID,
		Supplier:    e.Supplier,
		Type:        e.Type,
		Description: e.Description,
		Months:      e.Months,
	}, nil
}

// Title is the display name used by reports and grouping.
func (b Bill) Title() string {
	if b.NameCode != "" {
		return b.NameCode
	}
	return fmt.Sprintf("%s %s %d", b.Bank.Name, b.Type, b.Year)
}
