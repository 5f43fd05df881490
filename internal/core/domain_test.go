package core

import (
	"testing"
	"time"
)

func TestTransactionTypeValid(t *testing.T) {
	for _, tt := range []TransactionType{Debit, Credit, Income, Salary} {
		if !tt.Valid() {
			t.Fatalf("%s should be valid", tt)
		}
	}
	for _, tt := range []TransactionType{"", "transfer", "DEBIT", "withdrawal"} {
		if tt.Valid() {
			t.Fatalf("%q should be invalid", tt)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Debit,
		Amount:      Money{Cents: 1250},
		Category:    "Food",
		Description: "Lunch",
		CreatedAt:   time.Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Amount: Money{Cents: 100}, Category: "c"},
		{Type: Debit, Amount: Money{Cents: 0}, Category: "c"},
		{Type: Debit, Amount: Money{Cents: -50}, Category: "c"},
		{Type: Debit, Amount: Money{Cents: 100}, Category: "   "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountInvariants(t *testing.T) {
	a := Account{CreditLimit: Money{Cents: 500000}, CreditUsed: Money{Cents: 4500}, CreditDueDay: 15}
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	over := a
	over.CreditUsed = Money{Cents: 500001}
	if err := over.CheckInvariants(); err == nil {
		t.Fatalf("expected error for used > limit")
	}

	neg := a
	neg.CreditUsed = Money{Cents: -1}
	if err := neg.CheckInvariants(); err == nil {
		t.Fatalf("expected error for negative used")
	}

	badDay := a
	badDay.CreditDueDay = 32
	if err := badDay.CheckInvariants(); err == nil {
		t.Fatalf("expected error for due day 32")
	}
}

func TestCreditPercentUsed(t *testing.T) {
	a := Account{CreditLimit: Money{Cents: 500000}, CreditUsed: Money{Cents: 125000}}
	if got := a.CreditPercentUsed(); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	zero := Account{}
	if got := zero.CreditPercentUsed(); got != 0 {
		t.Fatalf("zero limit should yield 0, got %v", got)
	}
}

func TestMinimumPayment(t *testing.T) {
	cases := []struct {
		used int64
		want int64
	}{
		{10000, 1500}, // plain 15%
		{4500, 675},
		{3, 0},    // 0.45 cents rounds down
		{7, 1},    // 1.05 cents rounds up
		{0, 0},    // nothing owed
		{1, 0},    // 0.15 cents
	}
	for _, tc := range cases {
		got := MinimumPayment(Money{Cents: tc.used})
		if got.Cents != tc.want {
			t.Fatalf("used=%d expected %d, got %d", tc.used, tc.want, got.Cents)
		}
		if got.Cents > tc.used {
			t.Fatalf("minimum payment %d exceeds balance %d", got.Cents, tc.used)
		}
	}
}
