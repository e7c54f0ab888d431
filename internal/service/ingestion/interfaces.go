package ingestion

import (
	"context"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// TransactionSource produces the next transaction or signals end-of-stream
// with io.EOF. A validation-class error marks a malformed record the loop
// skips; any other error is fatal for the run.
type TransactionSource interface {
	Next(ctx context.Context) (ledger.Transaction, error)
}

// Alert pairs a flagged transaction with its ordered flag set.
type Alert struct {
	Transaction ledger.Transaction
	Flags       []ledger.Flag
}

// AlertSink receives one alert per transaction that triggered at least one
// flag. Formatting is the sink's concern.
type AlertSink interface {
	Publish(ctx context.Context, alert Alert) error
}

// Store is the slice of the state store the ingestion loop mutates.
type Store interface {
	UpsertUser(id string) ledger.User
	UpsertMerchant(name string) ledger.Merchant
	Append(tx ledger.Transaction)
	IncrementMerchantFlagCount(name string) error
}
