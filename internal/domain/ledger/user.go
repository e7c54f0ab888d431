package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a transacting customer. Users are created on first sighting and
// never deleted. Baseline is the median transaction amount over a trailing
// window, derived by the baseline recalculator; it starts at zero and is
// only mutated through the store.
type User struct {
	ID        string
	Baseline  decimal.Decimal
	CreatedAt time.Time
}

// NewUser creates a user with a zero baseline.
func NewUser(id string, now time.Time) User {
	return User{
		ID:        id,
		Baseline:  decimal.Zero,
		CreatedAt: now,
	}
}
