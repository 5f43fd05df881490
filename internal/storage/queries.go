package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"financas/internal/core"
)

// GetUserByUsername returns the stored user for login verification.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update password result: %w", err)
	} else if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Balance.Cents, &a.CreditLimit.Cents, &a.CreditUsed.Cents, &a.CreditDueDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

const selectAccountSQL = `
	SELECT id, user_id, balance_cents, credit_limit_cents, credit_used_cents, credit_due_day
	FROM accounts`

func (r *SQLiteRepository) GetAccountByUserID(ctx context.Context, userID int64) (core.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccountSQL+` WHERE user_id = ?`, userID))
}

func (r *SQLiteRepository) GetAccountByID(ctx context.Context, id int64) (core.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccountSQL+` WHERE id = ?`, id))
}

// UpdateCardSettings applies the non-nil fields of settings. A new limit
// below the current usage would break the usage invariant and is rejected
// with core.ErrCreditLimit.
func (r *SQLiteRepository) UpdateCardSettings(ctx context.Context, accountID int64, settings core.CardSettings) (core.Account, error) {
	if settings.DueDay != nil && (*settings.DueDay < 1 || *settings.DueDay > 31) {
		return core.Account{}, core.ErrInvalidDueDay
	}
	if settings.CreditLimit != nil && settings.CreditLimit.Cents < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if settings.CreditLimit != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET credit_limit_cents = ?
			 WHERE id = ? AND credit_used_cents <= ?`,
			settings.CreditLimit.Cents, accountID, settings.CreditLimit.Cents)
		if err != nil {
			return core.Account{}, fmt.Errorf("update credit limit: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return core.Account{}, fmt.Errorf("update limit result: %w", err)
		} else if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`, accountID).Scan(&exists); err != nil {
				return core.Account{}, fmt.Errorf("check account: %w", err)
			}
			if exists {
				return core.Account{}, core.ErrCreditLimit
			}
			return core.Account{}, core.ErrAccountNotFound
		}
	}

	if settings.DueDay != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET credit_due_day = ? WHERE id = ?`,
			*settings.DueDay, accountID)
		if err != nil {
			return core.Account{}, fmt.Errorf("update due day: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return core.Account{}, fmt.Errorf("update due day result: %w", err)
		} else if n == 0 {
			return core.Account{}, core.ErrAccountNotFound
		}
	}

	account, err := scanAccount(tx.QueryRowContext(ctx, selectAccountSQL+` WHERE id = ?`, accountID))
	if err != nil {
		return core.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Account{}, fmt.Errorf("commit card settings: %w", err)
	}
	return account, nil
}

// localWindow returns the UTC instants bounding the local calendar day and
// month containing now. Timestamps are stored in UTC, so the boundaries are
// computed in local time first and converted.
func localWindow(now time.Time) (dayStart, dayEnd, monthStart, monthEnd time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	dayStart = time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
	dayEnd = time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC()
	monthStart = time.Date(y, m, 1, 0, 0, 0, 0, loc).UTC()
	monthEnd = time.Date(y, m+1, 1, 0, 0, 0, 0, loc).UTC()
	return
}

// Summary derives the dashboard aggregates for the local day and month
// containing now. All sums come from the ledger rows.
func (r *SQLiteRepository) Summary(ctx context.Context, accountID int64, now time.Time) (core.Summary, error) {
	account, err := r.GetAccountByID(ctx, accountID)
	if err != nil {
		return core.Summary{}, err
	}

	dayStart, dayEnd, monthStart, monthEnd := localWindow(now)

	var today, monthExpenses, monthIncome int64
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type IN ('debit', 'credit') AND created_at >= ? AND created_at < ? THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type IN ('debit', 'credit') AND created_at >= ? AND created_at < ? THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type IN ('income', 'salary') AND created_at >= ? AND created_at < ? THEN amount_cents END), 0)
		FROM transactions WHERE account_id = ?`,
		dayStart, dayEnd, monthStart, monthEnd, monthStart, monthEnd, accountID,
	).Scan(&today, &monthExpenses, &monthIncome)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary aggregates: %w", err)
	}

	return core.Summary{
		Balance:         account.Balance,
		CreditLimit:     account.CreditLimit,
		CreditUsed:      account.CreditUsed,
		CreditAvailable: account.CreditAvailable(),
		TodayExpenses:   core.Money{Cents: today},
		MonthExpenses:   core.Money{Cents: monthExpenses},
		MonthIncome:     core.Money{Cents: monthIncome},
		MonthBalance:    core.Money{Cents: monthIncome - monthExpenses},
	}, nil
}

// CardOverview derives the card screen: account card fields, days until the
// due date, the ten most recent card transactions and thirty days of
// spending grouped by category.
func (r *SQLiteRepository) CardOverview(ctx context.Context, accountID int64, now time.Time) (core.CardOverview, error) {
	account, err := r.GetAccountByID(ctx, accountID)
	if err != nil {
		return core.CardOverview{}, err
	}

	recent, err := r.listTransactions(ctx, accountID, "credit", 10)
	if err != nil {
		return core.CardOverview{}, err
	}

	since := now.AddDate(0, 0, -30).UTC()
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM transactions
		WHERE account_id = ? AND type = 'credit' AND created_at >= ?
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC`,
		accountID, since)
	if err != nil {
		return core.CardOverview{}, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []core.CategorySpend
	for rows.Next() {
		var cs core.CategorySpend
		if err := rows.Scan(&cs.Category, &cs.Total.Cents, &cs.Count); err != nil {
			return core.CardOverview{}, fmt.Errorf("scan category spend: %w", err)
		}
		breakdown = append(breakdown, cs)
	}
	if err := rows.Err(); err != nil {
		return core.CardOverview{}, fmt.Errorf("category breakdown rows: %w", err)
	}

	return core.CardOverview{
		Limit:              account.CreditLimit,
		Used:               account.CreditUsed,
		Available:          account.CreditAvailable(),
		DueDay:             account.CreditDueDay,
		DaysUntilDue:       core.DaysUntilDue(now, account.CreditDueDay),
		PercentUsed:        account.CreditPercentUsed(),
		RecentTransactions: recent,
		CategoryBreakdown:  breakdown,
	}, nil
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, accountID int64, txType string, limit int) ([]core.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount_cents, category, description, created_at
		FROM transactions WHERE account_id = ?`
	args := []any{accountID}
	if txType != "" {
		query += ` AND type = ?`
		args = append(args, txType)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transaction rows: %w", err)
	}
	return out, nil
}

// ListTransactions returns the most recent ledger rows, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.listTransactions(ctx, accountID, "", limit)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, type, amount_cents, category, description, created_at
		FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, sql.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, icon, kind FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name, &c.Icon, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category rows: %w", err)
	}
	return out, nil
}

// GetPendingSyncTransactions returns up to limit ledger rows awaiting the
// spreadsheet mirror, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, type, amount_cents, category, description, created_at
		FROM transactions WHERE sync_status = 'pending'
		ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending sync rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	return nil
}
