package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a payee keyed by name. FraudFlagCount is the number of flagged
// transactions seen at this merchant; it only ever increases, so once the
// fraudulent-merchant threshold is crossed the merchant stays flagged.
type Merchant struct {
	ID             uuid.UUID
	Name           string
	FraudFlagCount int
	CreatedAt      time.Time
}

// NewMerchant creates a merchant with a zero fraud-flag count.
func NewMerchant(name string, now time.Time) Merchant {
	return Merchant{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
	}
}
