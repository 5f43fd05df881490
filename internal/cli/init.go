// Package cli consolidates the initialization shared by cmd/financas and
// cmd/financas-worker.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"financas/internal/auth"
	"financas/internal/config"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"
)

// SetupLogger initializes structured logging and sets it as the default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	logger := applog.New(cfg)
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are ignored
// as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration or exits on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStorage opens the SQLite repository or exits on failure.
func InitStorage(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ProvisionAccount ensures the admin user and account exist, hashing the
// configured password on first run. Exits on failure.
func ProvisionAccount(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository, cfg *config.Config) {
	if _, err := repo.GetUserByUsername(ctx, cfg.AdminUsername); err == nil {
		return
	} else if !errors.Is(err, core.ErrUserNotFound) {
		logger.Error("Failed to look up admin user", "error", err)
		os.Exit(1)
	}

	if cfg.AdminPassword == "" {
		logger.Error("ADMIN_PASSWORD must be set on first run")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		logger.Error("Failed to hash admin password", "error", err)
		os.Exit(1)
	}

	created, err := repo.Bootstrap(ctx, storage.BootstrapParams{
		Username:       cfg.AdminUsername,
		PasswordHash:   hash,
		InitialBalance: core.Money{Cents: cfg.InitialBalanceCents},
		CreditLimit:    core.Money{Cents: cfg.CreditLimitCents},
		CreditDueDay:   cfg.CreditDueDay,
	})
	if err != nil {
		logger.Error("Failed to provision account", "error", err)
		os.Exit(1)
	}
	if created {
		logger.Info("First-run account provisioned", "username", cfg.AdminUsername)
	}
}
