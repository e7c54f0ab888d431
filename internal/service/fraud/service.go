package fraud

import (
	"context"
	"time"

	"github.com/davidleathers/guardian-watch/internal/domain/errors"
	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// service implements the Service interface
type service struct {
	view       StateView
	thresholds *Thresholds
	clock      ledger.Clock
}

// NewService creates a new rule engine over the given state view. A nil
// thresholds falls back to the reference defaults; a nil clock to system
// time.
func NewService(view StateView, thresholds *Thresholds, clock ledger.Clock) Service {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if clock == nil {
		clock = ledger.RealClock{}
	}

	return &service{
		view:       view,
		thresholds: thresholds,
		clock:      clock,
	}
}

// Evaluate runs each rule independently against the current state and
// assembles the result in fixed order: HIGH_AMOUNT, ODD_TIME,
// TOO_MANY_SAME_MERCHANT, TOO_MANY_ACROSS_MERCHANT, FRAUDULENT_MERCHANT.
// A same-merchant hit suppresses the across-merchant flag for the same
// transaction; they never co-occur.
func (s *service) Evaluate(ctx context.Context, tx ledger.Transaction) ([]ledger.Flag, error) {
	highAmount, err := s.isHighAmount(tx)
	if err != nil {
		return nil, err
	}
	oddTime := s.isOddTime(tx)
	sameMerchant := s.isTooManySameMerchant(tx)
	acrossMerchant := s.isTooManyAcrossMerchant(tx)
	fraudulentMerchant, err := s.isFraudulentMerchant(tx)
	if err != nil {
		return nil, err
	}

	var flags []ledger.Flag
	if highAmount {
		flags = append(flags, ledger.FlagHighAmount)
	}
	if oddTime {
		flags = append(flags, ledger.FlagOddTime)
	}
	if sameMerchant {
		flags = append(flags, ledger.FlagTooManySameMerchant)
	}
	if acrossMerchant && !sameMerchant {
		flags = append(flags, ledger.FlagTooManyAcrossMerchant)
	}
	if fraudulentMerchant {
		flags = append(flags, ledger.FlagFraudulentMerchant)
	}
	return flags, nil
}

// isHighAmount compares the amount against the user's baseline. A zero
// baseline degenerates both bounds to zero, so any positive amount flags;
// this is the stated behavior for users without history, not a defect.
func (s *service) isHighAmount(tx ledger.Transaction) (bool, error) {
	baseline, err := s.view.UserBaseline(tx.UserID)
	if err != nil {
		return false, errors.NewInternalError("rule evaluation on unknown user").WithCause(err)
	}

	upper := baseline.Mul(s.thresholds.HighAmountFactor)
	lower := baseline.Div(s.thresholds.HighAmountFactor)
	return tx.Amount.GreaterThan(upper) || tx.Amount.LessThan(lower), nil
}

// isOddTime checks whether the transaction's local time-of-day falls
// strictly inside the configured night window.
func (s *service) isOddTime(tx ledger.Transaction) bool {
	tod := tx.TimeOfDay()
	return tod > s.thresholds.OddTimeStart && tod < s.thresholds.OddTimeEnd
}

// isTooManyAcrossMerchant checks the user's recent transaction velocity
// regardless of merchant. Windows trail wall-clock now, not the
// transaction's own timestamp.
func (s *service) isTooManyAcrossMerchant(tx ledger.Transaction) bool {
	now := s.clock.Now()

	if s.countPrior(tx, now.Add(-s.thresholds.BurstWindow), "") >= s.thresholds.BurstMax {
		return true
	}
	return s.countPrior(tx, now.Add(-s.thresholds.HourlyWindow), "") >= s.thresholds.HourlyMax
}

// isTooManySameMerchant checks the user's recent velocity with the
// transaction's own merchant.
func (s *service) isTooManySameMerchant(tx ledger.Transaction) bool {
	cutoff := s.clock.Now().Add(-s.thresholds.SameMerchantWindow)
	return s.countPrior(tx, cutoff, tx.MerchantName) >= s.thresholds.SameMerchantMax
}

func (s *service) isFraudulentMerchant(tx ledger.Transaction) (bool, error) {
	count, err := s.view.MerchantFlagCount(tx.MerchantName)
	if err != nil {
		return false, errors.NewInternalError("rule evaluation on unknown merchant").WithCause(err)
	}
	return count >= s.thresholds.FraudulentMerchantThreshold, nil
}

// countPrior counts the user's transactions since cutoff, excluding the
// transaction under evaluation: the ingestion loop appends before
// evaluating, so the window query includes it. An empty merchant matches
// any merchant.
func (s *service) countPrior(tx ledger.Transaction, cutoff time.Time, merchant string) int {
	count := 0
	for _, prior := range s.view.TransactionsSince(tx.UserID, cutoff) {
		if prior.ID == tx.ID {
			continue
		}
		if merchant != "" && prior.MerchantName != merchant {
			continue
		}
		count++
	}
	return count
}
