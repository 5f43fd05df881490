package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
	Income TransactionType = "income"
	Salary TransactionType = "salary"
)

const (
	PaymentFull    PaymentType = "full"
	PaymentMinimum PaymentType = "minimum"
	PaymentCustom  PaymentType = "custom"
)

// MinimumPaymentPercent is the share of the outstanding card balance owed
// when paying the minimum statement amount.
const MinimumPaymentPercent = 15

type (
	TransactionType string

	PaymentType string

	Money struct {
		Cents int64
	}

	// Account is the single balance/credit record for a user.
	Account struct {
		ID           int64
		UserID       int64
		Balance      Money
		CreditLimit  Money
		CreditUsed   Money
		CreditDueDay int // day of month, 1-31
	}

	// Transaction is one append-only ledger row.
	Transaction struct {
		ID          int64
		AccountID   int64
		Type        TransactionType
		Amount      Money
		Category    string
		Description string
		CreatedAt   time.Time
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownType        = errors.New("unknown transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDueDay      = errors.New("due day must be between 1 and 31")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrCreditLimit        = errors.New("credit limit exceeded")
	ErrPaymentExceedsDebt = errors.New("payment exceeds outstanding card balance")
)

// Valid reports whether t is one of the four recognized ledger types.
func (t TransactionType) Valid() bool {
	switch t {
	case Debit, Credit, Income, Salary:
		return true
	default:
		return false
	}
}

// IsExpense reports whether t counts toward expense aggregates.
func (t TransactionType) IsExpense() bool {
	return t == Debit || t == Credit
}

// IsIncome reports whether t counts toward income aggregates.
func (t TransactionType) IsIncome() bool {
	return t == Income || t == Salary
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CreditAvailable returns the remaining revolving credit.
func (a Account) CreditAvailable() Money {
	return Money{Cents: a.CreditLimit.Cents - a.CreditUsed.Cents}
}

// CreditPercentUsed returns the card utilization as a percentage.
// A zero credit limit yields 0.
func (a Account) CreditPercentUsed() float64 {
	if a.CreditLimit.Cents == 0 {
		return 0
	}
	return 100 * float64(a.CreditUsed.Cents) / float64(a.CreditLimit.Cents)
}

// CheckInvariants verifies 0 <= credit_used <= credit_limit and the due day range.
func (a Account) CheckInvariants() error {
	if a.CreditUsed.Cents < 0 || a.CreditUsed.Cents > a.CreditLimit.Cents {
		return ErrCreditLimit
	}
	if a.CreditDueDay < 1 || a.CreditDueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrUnknownType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 100 {
		return errors.New("description too long (max 100 characters)")
	}
	return nil
}

// MinimumPayment returns the minimum statement payment for an outstanding
// card balance: 15% of the balance, half-up rounded, never above the balance.
func MinimumPayment(used Money) Money {
	min := (used.Cents*MinimumPaymentPercent + 50) / 100
	if min > used.Cents {
		min = used.Cents
	}
	return Money{Cents: min}
}
