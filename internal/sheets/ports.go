// Package sheets holds the outbound ports for the spreadsheet mirror.
package sheets

import (
	"context"

	"financas/internal/core"
)

// LedgerAppender mirrors a ledger row to an external spreadsheet.
type LedgerAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
