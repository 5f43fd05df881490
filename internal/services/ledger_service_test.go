package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)


func newServiceFixture(t *testing.T) (*LedgerService, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}

	ctx := context.Background()
	if _, err := repo.Bootstrap(ctx, storage.BootstrapParams{
		Username:       "admin",
		PasswordHash:   "x",
		InitialBalance: core.Money{Cents: 50000},
		CreditLimit:    core.Money{Cents: 100000},
		CreditDueDay:   15,
	}); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	user, err := repo.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	account, err := repo.GetAccountByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetAccountByUserID() error = %v", err)
	}

	// No AMQP client: publishing must degrade to a warning, never an error.
	svc := NewLedgerService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	return svc, account.ID
}

func TestRecordTransactionWithoutQueue(t *testing.T) {
	svc, accountID := newServiceFixture(t)
	ctx := context.Background()

	id, err := svc.RecordTransaction(ctx, accountID, core.Debit,
		core.Money{Cents: 1200}, "Food", "groceries")
	if err != nil {
		t.Fatalf("RecordTransaction() error = %v", err)
	}
	if id == 0 {
		t.Error("RecordTransaction() returned id 0")
	}

	summary, err := svc.Summary(ctx, accountID, time.Now())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Balance.Cents != 48800 {
		t.Errorf("balance = %d, want 48800", summary.Balance.Cents)
	}
}

func TestServiceEndToEndBillCycle(t *testing.T) {
	svc, accountID := newServiceFixture(t)
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, accountID, core.Credit,
		core.Money{Cents: 4500}, "Shopping", ""); err != nil {
		t.Fatalf("card purchase error = %v", err)
	}

	result, err := svc.PayCreditBill(ctx, accountID, core.PaymentFull, core.Money{})
	if err != nil {
		t.Fatalf("PayCreditBill() error = %v", err)
	}
	if result.NewCreditUsed.Cents != 0 || result.NewBalance.Cents != 45500 {
		t.Errorf("result = %+v, want usage 0 balance 45500", result)
	}

	if err := svc.ResetStatement(ctx, accountID); err != nil {
		t.Fatalf("ResetStatement() error = %v", err)
	}

	overview, err := svc.CardOverview(ctx, accountID, time.Now())
	if err != nil {
		t.Fatalf("CardOverview() error = %v", err)
	}
	if overview.Used.Cents != 0 {
		t.Errorf("card usage after reset = %d, want 0", overview.Used.Cents)
	}
}
