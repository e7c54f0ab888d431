package fraud_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/davidleathers/guardian-watch/internal/domain/errors"
	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
	"github.com/davidleathers/guardian-watch/internal/infrastructure/repository"
	"github.com/davidleathers/guardian-watch/internal/service/fraud"
	"github.com/davidleathers/guardian-watch/internal/testutil/fixtures"
)

var evalNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.Local)

// harness wires a real store behind the engine, with the clock frozen at
// evalNow. Priors are appended the way the ingestion loop would append them.
type harness struct {
	store *repository.Store
	svc   fraud.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &ledger.MockClock{CurrentTime: evalNow}
	store := repository.NewStore(clock)
	return &harness{
		store: store,
		svc:   fraud.NewService(store, fraud.DefaultThresholds(), clock),
	}
}

// ingest mirrors the loop: user and merchant exist before evaluation, the
// transaction is in the history when the rules run.
func (h *harness) ingest(tx ledger.Transaction) {
	h.store.UpsertUser(tx.UserID)
	h.store.UpsertMerchant(tx.MerchantName)
	h.store.Append(tx)
}

func TestService_Evaluate_HighAmount(t *testing.T) {
	tests := []struct {
		name     string
		baseline int64
		amount   string
		want     bool
	}{
		{name: "zero baseline, any positive amount", baseline: 0, amount: "0.01", want: true},
		{name: "zero baseline, zero amount", baseline: 0, amount: "0", want: false},
		{name: "well above ten times baseline", baseline: 200, amount: "5000", want: true},
		{name: "exactly ten times baseline", baseline: 200, amount: "2000", want: false},
		{name: "just above ten times baseline", baseline: 200, amount: "2000.01", want: true},
		{name: "exactly a tenth of baseline", baseline: 200, amount: "20", want: false},
		{name: "just below a tenth of baseline", baseline: 200, amount: "19.99", want: true},
		{name: "amount equal to baseline", baseline: 200, amount: "200", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tx := fixtures.NewTransactionBuilder(t).
				WithAmountString(tt.amount).
				WithTimestamp(evalNow).
				Build()
			h.ingest(tx)
			require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(tt.baseline)))

			flags, err := h.svc.Evaluate(context.Background(), tx)
			require.NoError(t, err)

			if tt.want {
				assert.Equal(t, []ledger.Flag{ledger.FlagHighAmount}, flags)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestService_Evaluate_OddTime(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "exactly 02:00:00", at: time.Date(2024, 3, 14, 2, 0, 0, 0, time.Local), want: false},
		{name: "one second past 02:00", at: time.Date(2024, 3, 14, 2, 0, 1, 0, time.Local), want: true},
		{name: "middle of the window", at: time.Date(2024, 3, 14, 4, 30, 0, 0, time.Local), want: true},
		{name: "one second before 06:00", at: time.Date(2024, 3, 14, 5, 59, 59, 0, time.Local), want: true},
		{name: "exactly 06:00:00", at: time.Date(2024, 3, 14, 6, 0, 0, 0, time.Local), want: false},
		{name: "midday", at: time.Date(2024, 3, 14, 12, 0, 0, 0, time.Local), want: false},
		{name: "late evening", at: time.Date(2024, 3, 14, 23, 30, 0, 0, time.Local), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tx := fixtures.NewTransactionBuilder(t).
				WithAmount(100).
				WithTimestamp(tt.at).
				Build()
			h.ingest(tx)
			// Baseline matches the amount so the high-amount rule stays quiet.
			require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))

			flags, err := h.svc.Evaluate(context.Background(), tx)
			require.NoError(t, err)

			if tt.want {
				assert.Equal(t, []ledger.Flag{ledger.FlagOddTime}, flags)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestService_Evaluate_TooManyAcrossMerchant(t *testing.T) {
	tests := []struct {
		name       string
		priors     int
		priorAge   time.Duration
		wantAcross bool
	}{
		{name: "three priors inside burst window", priors: 3, priorAge: 30 * time.Second, wantAcross: true},
		{name: "two priors inside burst window", priors: 2, priorAge: 30 * time.Second, wantAcross: false},
		{name: "five priors inside hourly window", priors: 5, priorAge: 10 * time.Minute, wantAcross: true},
		{name: "four priors inside hourly window", priors: 4, priorAge: 10 * time.Minute, wantAcross: false},
		{name: "five priors outside hourly window", priors: 5, priorAge: 2 * time.Hour, wantAcross: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			// Priors spread across distinct merchants so the same-merchant
			// rule never enters the picture.
			for i := 0; i < tt.priors; i++ {
				prior := fixtures.NewTransactionBuilder(t).
					WithAmount(100).
					WithTimestamp(evalNow.Add(-tt.priorAge)).
					WithMerchant("Merchant " + string(rune('A'+i))).
					Build()
				h.ingest(prior)
			}

			tx := fixtures.NewTransactionBuilder(t).
				WithAmount(100).
				WithTimestamp(evalNow).
				WithMerchant("Merchant Z").
				Build()
			h.ingest(tx)
			require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))

			flags, err := h.svc.Evaluate(context.Background(), tx)
			require.NoError(t, err)

			if tt.wantAcross {
				assert.Equal(t, []ledger.Flag{ledger.FlagTooManyAcrossMerchant}, flags)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestService_Evaluate_TooManySameMerchant(t *testing.T) {
	tests := []struct {
		name   string
		priors int
		want   bool
	}{
		{name: "ten priors with the merchant", priors: 10, want: true},
		{name: "nine priors with the merchant", priors: 9, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			// Two hours old: inside the 24h same-merchant window, outside
			// both cross-merchant windows.
			for i := 0; i < tt.priors; i++ {
				prior := fixtures.NewTransactionBuilder(t).
					WithAmount(100).
					WithTimestamp(evalNow.Add(-2 * time.Hour)).
					Build()
				h.ingest(prior)
			}

			tx := fixtures.NewTransactionBuilder(t).
				WithAmount(100).
				WithTimestamp(evalNow).
				Build()
			h.ingest(tx)
			require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))

			flags, err := h.svc.Evaluate(context.Background(), tx)
			require.NoError(t, err)

			if tt.want {
				assert.Equal(t, []ledger.Flag{ledger.FlagTooManySameMerchant}, flags)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

// When both velocity rules hold, only the same-merchant flag appears.
func TestService_Evaluate_SameMerchantSuppressesAcross(t *testing.T) {
	h := newHarness(t)

	// Ten recent priors with one merchant trip both the same-merchant rule
	// and the hourly cross-merchant rule.
	for i := 0; i < 10; i++ {
		prior := fixtures.NewTransactionBuilder(t).
			WithAmount(100).
			WithTimestamp(evalNow.Add(-10 * time.Minute)).
			Build()
		h.ingest(prior)
	}

	tx := fixtures.NewTransactionBuilder(t).
		WithAmount(100).
		WithTimestamp(evalNow).
		Build()
	h.ingest(tx)
	require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))

	flags, err := h.svc.Evaluate(context.Background(), tx)
	require.NoError(t, err)

	assert.Contains(t, flags, ledger.FlagTooManySameMerchant)
	assert.NotContains(t, flags, ledger.FlagTooManyAcrossMerchant)
}

func TestService_Evaluate_FraudulentMerchant(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  bool
	}{
		{name: "count at threshold", count: 10, want: true},
		{name: "count above threshold", count: 25, want: true},
		{name: "count below threshold", count: 9, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			tx := fixtures.NewTransactionBuilder(t).
				WithAmount(100).
				WithTimestamp(evalNow).
				Build()
			h.ingest(tx)
			require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))
			for i := 0; i < tt.count; i++ {
				require.NoError(t, h.store.IncrementMerchantFlagCount(tx.MerchantName))
			}

			flags, err := h.svc.Evaluate(context.Background(), tx)
			require.NoError(t, err)

			if tt.want {
				assert.Equal(t, []ledger.Flag{ledger.FlagFraudulentMerchant}, flags)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

// Several rules firing together come back in a fixed order.
func TestService_Evaluate_DeterministicOrder(t *testing.T) {
	h := newHarness(t)

	// 03:00 local, amount far above baseline, merchant already over the
	// fraud threshold.
	tx := fixtures.NewTransactionBuilder(t).
		WithAmountString("9999").
		WithTimestamp(time.Date(2024, 3, 14, 3, 0, 0, 0, time.Local)).
		Build()
	h.ingest(tx)
	require.NoError(t, h.store.SetUserBaseline(tx.UserID, decimal.NewFromInt(100)))
	for i := 0; i < 10; i++ {
		require.NoError(t, h.store.IncrementMerchantFlagCount(tx.MerchantName))
	}

	flags, err := h.svc.Evaluate(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, []ledger.Flag{
		ledger.FlagHighAmount,
		ledger.FlagOddTime,
		ledger.FlagFraudulentMerchant,
	}, flags)
}

func TestService_Evaluate_UnknownUser(t *testing.T) {
	h := newHarness(t)

	// Bypass ingest on purpose: the creation-before-evaluation contract is
	// violated, which is a programming fault, not a recoverable condition.
	tx := fixtures.NewTransactionBuilder(t).WithTimestamp(evalNow).Build()

	_, err := h.svc.Evaluate(context.Background(), tx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
