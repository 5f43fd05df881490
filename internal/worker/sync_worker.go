// Package worker mirrors ledger rows from SQLite to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/sheets"
	"financas/internal/storage"
)

// SyncWorker pushes pending ledger rows to the spreadsheet mirror.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.LedgerAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, appender sheets.LedgerAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one queued mirror request. The full row is
// re-read from the database; the message only names it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	transaction, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.mirrorTransaction(ctx, transaction.ID, transaction); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}

	return nil
}

// ProcessPendingTransactions sweeps rows that never got a queue message,
// for example because the publisher was down when they were recorded.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, transaction := range pending {
		if err := w.mirrorTransaction(ctx, transaction.ID, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction",
				"transaction_id", transaction.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains a larger pending backlog once at worker startup
// to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup", "count", len(pending))

	synced := 0
	failed := 0
	for _, transaction := range pending {
		if err := w.mirrorTransaction(ctx, transaction.ID, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"transaction_id", transaction.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, id int64, transaction core.Transaction) error {
	ref, err := w.appender.Append(ctx, transaction)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"transaction_id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The row reached the sheet; only the local flag failed.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		"transaction_id", id,
		"row_ref", ref,
		"amount_cents", transaction.Amount.Cents)

	return nil
}
