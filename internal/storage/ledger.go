// Ledger update protocol: every mutation here pairs an append-only
// transactions insert with the matching accounts mutation inside one SQL
// transaction. On any failure the whole pair rolls back; partial state is
// never visible.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
)

// SettledMarker is appended to card transactions when a statement is reset.
const SettledMarker = "[statement paid]"

const insertTransactionSQL = `
	INSERT INTO transactions (account_id, type, amount_cents, category, description, created_at, sync_status)
	VALUES (?, ?, ?, ?, ?, ?, 'pending')`

// RecordTransaction appends a ledger row and applies the matching account
// mutation: debit lowers the balance, credit raises the card usage, income
// and salary raise the balance. Returns the new ledger row ID.
func (r *SQLiteRepository) RecordTransaction(ctx context.Context, accountID int64, txType core.TransactionType, amount core.Money, category, description string) (int64, error) {
	entry := core.Transaction{
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Category:    category,
		Description: description,
	}
	// Rejected before any write
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertTransactionSQL,
		accountID, string(txType), amount.Cents, category, description, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert ledger row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger row id: %w", err)
	}

	var mut sql.Result
	switch {
	case txType == core.Debit:
		mut, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance_cents = balance_cents - ? WHERE id = ?`,
			amount.Cents, accountID)
	case txType == core.Credit:
		// Guard keeps credit_used <= credit_limit even under concurrent writers.
		mut, err = tx.ExecContext(ctx,
			`UPDATE accounts SET credit_used_cents = credit_used_cents + ?
			 WHERE id = ? AND credit_used_cents + ? <= credit_limit_cents`,
			amount.Cents, accountID, amount.Cents)
	default: // income, salary
		mut, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`,
			amount.Cents, accountID)
	}
	if err != nil {
		return 0, fmt.Errorf("apply account mutation: %w", err)
	}

	n, err := mut.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("account mutation result: %w", err)
	}
	if n == 0 {
		if txType == core.Credit {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`, accountID).Scan(&exists); err != nil {
				return 0, fmt.Errorf("check account: %w", err)
			}
			if exists {
				return 0, core.ErrCreditLimit
			}
		}
		return 0, core.ErrAccountNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", id,
		"account_id", accountID,
		"transaction_type", string(txType),
		"amount_cents", amount.Cents,
		"category", category)

	return id, nil
}

// AdjustBalance applies a direct signed balance change and records it as a
// synthetic ledger row (income when positive, debit when negative) under the
// "Adjustment" category. Returns the new balance.
func (r *SQLiteRepository) AdjustBalance(ctx context.Context, accountID int64, deltaCents int64, description string) (core.Money, error) {
	if deltaCents == 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	if description == "" {
		description = "Manual adjustment"
	}

	txType := core.Income
	if deltaCents < 0 {
		txType = core.Debit
	}
	amount := core.Money{Cents: deltaCents}.Abs()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Money{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`,
		deltaCents, accountID)
	if err != nil {
		return core.Money{}, fmt.Errorf("adjust balance: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Money{}, fmt.Errorf("adjustment result: %w", err)
	} else if n == 0 {
		return core.Money{}, core.ErrAccountNotFound
	}

	if _, err := tx.ExecContext(ctx, insertTransactionSQL,
		accountID, string(txType), amount.Cents, "Adjustment", description, time.Now().UTC()); err != nil {
		return core.Money{}, fmt.Errorf("insert adjustment row: %w", err)
	}

	var newBalance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM accounts WHERE id = ?`, accountID).Scan(&newBalance); err != nil {
		return core.Money{}, fmt.Errorf("read new balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Money{}, fmt.Errorf("commit adjustment: %w", err)
	}

	slog.InfoContext(ctx, "Balance adjusted",
		"account_id", accountID,
		"delta_cents", deltaCents,
		"new_balance_cents", newBalance)

	return core.Money{Cents: newBalance}, nil
}

// PayCreditBill moves money from the balance onto the card debt. The payment
// amount derives from the payment type: the full outstanding balance, the
// 15% minimum, or an explicit amount for anything else. A payment larger
// than the spendable balance is rejected with core.ErrInsufficientFunds; one
// larger than the outstanding debt with core.ErrPaymentExceedsDebt.
func (r *SQLiteRepository) PayCreditBill(ctx context.Context, accountID int64, paymentType core.PaymentType, explicit core.Money) (core.PaymentResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.PaymentResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance, used, limit int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents, credit_used_cents, credit_limit_cents FROM accounts WHERE id = ?`,
		accountID).Scan(&balance, &used, &limit)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentResult{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.PaymentResult{}, fmt.Errorf("read account: %w", err)
	}

	var payment int64
	var description string
	switch paymentType {
	case core.PaymentFull:
		payment = used
		description = "Full statement payment"
	case core.PaymentMinimum:
		payment = core.MinimumPayment(core.Money{Cents: used}).Cents
		description = "Minimum statement payment"
	default:
		payment = explicit.Cents
		if payment < 0 {
			payment = 0
		}
		description = "Partial statement payment"
	}

	if payment > used {
		return core.PaymentResult{}, core.ErrPaymentExceedsDebt
	}
	if payment > balance {
		return core.PaymentResult{}, core.ErrInsufficientFunds
	}

	if payment == 0 {
		// Nothing owed or nothing requested; no writes, state unchanged.
		return core.PaymentResult{
			NewBalance:      core.Money{Cents: balance},
			NewCreditUsed:   core.Money{Cents: used},
			CreditAvailable: core.Money{Cents: limit - used},
		}, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - ?, credit_used_cents = credit_used_cents - ? WHERE id = ?`,
		payment, payment, accountID); err != nil {
		return core.PaymentResult{}, fmt.Errorf("apply payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertTransactionSQL,
		accountID, string(core.Debit), payment, "Card Payment", description, time.Now().UTC()); err != nil {
		return core.PaymentResult{}, fmt.Errorf("insert payment row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.PaymentResult{}, fmt.Errorf("commit payment: %w", err)
	}

	slog.InfoContext(ctx, "Credit bill paid",
		"account_id", accountID,
		"payment_type", string(paymentType),
		"amount_cents", payment)

	return core.PaymentResult{
		PaidAmount:      core.Money{Cents: payment},
		NewBalance:      core.Money{Cents: balance - payment},
		NewCreditUsed:   core.Money{Cents: used - payment},
		CreditAvailable: core.Money{Cents: limit - (used - payment)},
	}, nil
}

// ResetStatement zeroes the card usage and annotates every prior card
// transaction not already marked as settled. Rows are relabeled, never
// deleted. Calling it again is a no-op.
func (r *SQLiteRepository) ResetStatement(ctx context.Context, accountID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET credit_used_cents = 0 WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("reset card usage: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reset result: %w", err)
	} else if n == 0 {
		return core.ErrAccountNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET description = description || ' ' || ?
		 WHERE account_id = ? AND type = 'credit' AND description NOT LIKE '%' || ? || '%'`,
		SettledMarker, accountID, SettledMarker); err != nil {
		return fmt.Errorf("mark settled transactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statement reset: %w", err)
	}

	slog.InfoContext(ctx, "Statement reset", "account_id", accountID)
	return nil
}
