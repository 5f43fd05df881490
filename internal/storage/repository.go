package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the database handle. It is constructed once by the
// hosting process and injected into everything that needs storage; there is
// no package-level singleton.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite supports a single writer; funneling everything through one
	// connection serializes the ledger's read-modify-write transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// BootstrapParams holds the first-run provisioning values. Defaults come
// from configuration, not compiled-in constants.
type BootstrapParams struct {
	Username       string
	PasswordHash   string
	InitialBalance core.Money
	CreditLimit    core.Money
	CreditDueDay   int
}

// Bootstrap provisions the admin user and its account on first run.
// It is idempotent: existing users and accounts are left untouched.
func (r *SQLiteRepository) Bootstrap(ctx context.Context, p BootstrapParams) (bool, error) {
	if p.CreditDueDay < 1 || p.CreditDueDay > 31 {
		return false, core.ErrInvalidDueDay
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, p.Username).Scan(&userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
			p.Username, p.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("create user: %w", err)
		}
		userID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("user id: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("look up user: %w", err)
	}

	var accountID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE user_id = ?`, userID).Scan(&accountID)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (user_id, balance_cents, credit_limit_cents, credit_used_cents, credit_due_day)
			 VALUES (?, ?, ?, 0, ?)`,
			userID, p.InitialBalance.Cents, p.CreditLimit.Cents, p.CreditDueDay)
		if err != nil {
			return false, fmt.Errorf("create account: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("look up account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit bootstrap: %w", err)
	}

	if created {
		slog.InfoContext(ctx, "Provisioned account",
			"username", p.Username,
			"initial_balance_cents", p.InitialBalance.Cents,
			"credit_limit_cents", p.CreditLimit.Cents,
			"credit_due_day", p.CreditDueDay)
	}

	return created, nil
}
