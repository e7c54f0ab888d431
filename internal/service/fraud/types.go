package fraud

import (
	"time"

	"github.com/shopspring/decimal"
)

// Thresholds carries the fixed rule parameters. All rules are hand-coded
// thresholds; there is no learning and no runtime rule mutation.
type Thresholds struct {
	// HighAmountFactor f flags amounts above baseline*f or below baseline/f.
	HighAmountFactor decimal.Decimal

	// Odd-time window bounds as offsets from local midnight, exclusive on
	// both ends.
	OddTimeStart time.Duration
	OddTimeEnd   time.Duration

	// Cross-merchant velocity: BurstMax prior transactions within
	// BurstWindow, or HourlyMax within HourlyWindow.
	BurstWindow  time.Duration
	BurstMax     int
	HourlyWindow time.Duration
	HourlyMax    int

	// Same-merchant velocity: SameMerchantMax prior transactions with one
	// merchant within SameMerchantWindow.
	SameMerchantWindow time.Duration
	SameMerchantMax    int

	// FraudulentMerchantThreshold is the flag count at which a merchant is
	// considered fraudulent. The count never decreases, so the rule fires
	// forever after the threshold is crossed.
	FraudulentMerchantThreshold int
}

// DefaultThresholds returns the reference rule parameters.
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		HighAmountFactor:            decimal.NewFromInt(10),
		OddTimeStart:                2 * time.Hour,
		OddTimeEnd:                  6 * time.Hour,
		BurstWindow:                 60 * time.Second,
		BurstMax:                    3,
		HourlyWindow:                60 * time.Minute,
		HourlyMax:                   5,
		SameMerchantWindow:          24 * time.Hour,
		SameMerchantMax:             10,
		FraudulentMerchantThreshold: 10,
	}
}
