package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction as delivered by the
// source. Immutable once created; the history never mutates or removes one.
type Transaction struct {
	ID           uuid.UUID
	UserID       string
	Amount       decimal.Decimal
	Timestamp    time.Time
	MerchantName string
}

// NewTransaction creates a transaction with a fresh identifier.
// Amounts are expected to be non-negative but are deliberately not validated;
// the high-amount rule handles outliers. Empty user or merchant keys only
// arise from malformed input and are rejected here.
func NewTransaction(userID string, amount decimal.Decimal, timestamp time.Time, merchantName string) (Transaction, error) {
	if userID == "" {
		return Transaction{}, fmt.Errorf("user id is required")
	}
	if merchantName == "" {
		return Transaction{}, fmt.Errorf("merchant name is required")
	}
	if timestamp.IsZero() {
		return Transaction{}, fmt.Errorf("timestamp is required")
	}

	return Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       amount,
		Timestamp:    timestamp,
		MerchantName: merchantName,
	}, nil
}

// TimeOfDay returns the transaction's local time-of-day as an offset from
// midnight. Used by the odd-time rule.
func (t Transaction) TimeOfDay() time.Duration {
	h, m, s := t.Timestamp.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s at %s (%s)", t.UserID, t.Amount.String(), t.MerchantName, t.Timestamp.Format("2006-01-02 15:04:05"))
}
