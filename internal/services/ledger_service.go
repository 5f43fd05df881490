package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/storage"
)

// LedgerService orchestrates ledger operations across SQLite and AMQP.
// Writes land in SQLite first; the spreadsheet mirror is queued afterwards
// and never blocks or fails a request.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// RecordTransaction appends a ledger row and queues its spreadsheet mirror.
func (s *LedgerService) RecordTransaction(ctx context.Context, accountID int64, txType core.TransactionType, amount core.Money, category, description string) (int64, error) {
	id, err := s.storage.RecordTransaction(ctx, accountID, txType, amount, category, description)
	if err != nil {
		return 0, err
	}

	if err := s.publishSyncMessage(ctx, id); err != nil {
		// The pending sweep in the worker picks the row up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", id, "error", err)
	}

	return id, nil
}

// AdjustBalance applies a direct balance change. The synthetic ledger row it
// creates reaches the mirror through the worker's pending sweep.
func (s *LedgerService) AdjustBalance(ctx context.Context, accountID int64, deltaCents int64, description string) (core.Money, error) {
	return s.storage.AdjustBalance(ctx, accountID, deltaCents, description)
}

func (s *LedgerService) PayCreditBill(ctx context.Context, accountID int64, paymentType core.PaymentType, explicit core.Money) (core.PaymentResult, error) {
	return s.storage.PayCreditBill(ctx, accountID, paymentType, explicit)
}

func (s *LedgerService) ResetStatement(ctx context.Context, accountID int64) error {
	return s.storage.ResetStatement(ctx, accountID)
}

func (s *LedgerService) Summary(ctx context.Context, accountID int64, now time.Time) (core.Summary, error) {
	return s.storage.Summary(ctx, accountID, now)
}

func (s *LedgerService) CardOverview(ctx context.Context, accountID int64, now time.Time) (core.CardOverview, error) {
	return s.storage.CardOverview(ctx, accountID, now)
}

func (s *LedgerService) UpdateCardSettings(ctx context.Context, accountID int64, settings core.CardSettings) (core.Account, error) {
	return s.storage.UpdateCardSettings(ctx, accountID, settings)
}

func (s *LedgerService) ListTransactions(ctx context.Context, accountID int64, limit int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, accountID, limit)
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.storage.ListCategories(ctx)
}

func (s *LedgerService) GetAccountByUserID(ctx context.Context, userID int64) (core.Account, error) {
	return s.storage.GetAccountByUserID(ctx, userID)
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
