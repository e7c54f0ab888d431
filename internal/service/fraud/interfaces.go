package fraud

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// Service defines the fraud rule engine interface
type Service interface {
	// Evaluate runs every rule against the transaction and returns the
	// triggered flags in deterministic order. Read-only; no side effects.
	Evaluate(ctx context.Context, tx ledger.Transaction) ([]ledger.Flag, error)
}

// StateView is the read-only view of shared state the rules evaluate
// against. The ingestion loop guarantees the transaction's user and merchant
// exist before evaluation, so a miss here is a programming fault.
type StateView interface {
	// UserBaseline returns the user's current baseline amount.
	UserBaseline(id string) (decimal.Decimal, error)
	// MerchantFlagCount returns the merchant's accumulated fraud-flag count.
	MerchantFlagCount(name string) (int, error)
	// TransactionsSince returns the user's transactions with timestamp not
	// before cutoff, in append order.
	TransactionsSince(userID string, cutoff time.Time) []ledger.Transaction
}
