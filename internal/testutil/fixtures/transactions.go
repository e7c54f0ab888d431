package fixtures

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// TransactionBuilder builds test Transaction entities
type TransactionBuilder struct {
	t         *testing.T
	userID    string
	amount    decimal.Decimal
	timestamp time.Time
	merchant  string
}

// NewTransactionBuilder creates a new TransactionBuilder with defaults
func NewTransactionBuilder(t *testing.T) *TransactionBuilder {
	t.Helper()
	return &TransactionBuilder{
		t:         t,
		userID:    "u1",
		amount:    decimal.NewFromInt(100),
		timestamp: time.Date(2024, 3, 14, 12, 0, 0, 0, time.Local),
		merchant:  "Acme Stores",
	}
}

// WithUser sets the user identifier
func (b *TransactionBuilder) WithUser(id string) *TransactionBuilder {
	b.userID = id
	return b
}

// WithAmount sets the amount from an integer value
func (b *TransactionBuilder) WithAmount(amount int64) *TransactionBuilder {
	b.amount = decimal.NewFromInt(amount)
	return b
}

// WithAmountString sets the amount from a decimal string
func (b *TransactionBuilder) WithAmountString(amount string) *TransactionBuilder {
	d, err := decimal.NewFromString(amount)
	require.NoError(b.t, err)
	b.amount = d
	return b
}

// WithTimestamp sets the transaction timestamp
func (b *TransactionBuilder) WithTimestamp(ts time.Time) *TransactionBuilder {
	b.timestamp = ts
	return b
}

// WithMerchant sets the merchant name
func (b *TransactionBuilder) WithMerchant(name string) *TransactionBuilder {
	b.merchant = name
	return b
}

// Build creates the transaction
func (b *TransactionBuilder) Build() ledger.Transaction {
	b.t.Helper()
	tx, err := ledger.NewTransaction(b.userID, b.amount, b.timestamp, b.merchant)
	require.NoError(b.t, err)
	return tx
}
