package baseline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
	"github.com/davidleathers/guardian-watch/internal/metrics"
)

// Store is the slice of the state store the recalculator needs.
type Store interface {
	AllUserIDs() []string
	TransactionsSince(userID string, cutoff time.Time) []ledger.Transaction
	SetUserBaseline(id string, baseline decimal.Decimal) error
}

// Service recomputes every user's baseline (median transaction amount over a
// trailing window) on a fixed period: once immediately on Start, then once
// per interval. It runs concurrently with ingestion against the same store.
type Service struct {
	store        Store
	clock        ledger.Clock
	logger       *slog.Logger
	metrics      *metrics.Registry
	interval     time.Duration
	windowMonths int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a recalculator. A nil clock defaults to system time.
func NewService(store Store, interval time.Duration, windowMonths int, clock ledger.Clock, logger *slog.Logger, reg *metrics.Registry) *Service {
	if clock == nil {
		clock = ledger.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:        store,
		clock:        clock,
		logger:       logger,
		metrics:      reg,
		interval:     interval,
		windowMonths: windowMonths,
	}
}

// Start launches the background cycle. Calling Start on a running service is
// a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	// Each run owns the done channel of its own generation; reading s.done
	// from inside the goroutine could observe a later Start's channel.
	go s.run(ctx, s.done)
}

// Stop prevents any further cycle from starting and waits for an in-flight
// cycle to complete. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// First cycle runs immediately; the stop signal is only checked between
	// cycles, never mid-cycle.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle recomputes the baseline for every known user. Users with no
// transactions inside the window keep their current baseline.
func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()
	cutoff := s.clock.Now().AddDate(0, -s.windowMonths, 0)

	updated := 0
	for _, id := range s.store.AllUserIDs() {
		window := s.store.TransactionsSince(id, cutoff)
		if len(window) == 0 {
			continue
		}

		median := Median(window)
		if err := s.store.SetUserBaseline(id, median); err != nil {
			s.logger.Error("failed to update baseline", "user_id", id, "error", err)
			continue
		}
		updated++
		s.logger.Debug("updated baseline", "user_id", id, "baseline", median.String())
	}

	s.metrics.RecordBaselineCycle(ctx, time.Since(start), updated)
}

// Median returns the median transaction amount: the window is sorted by
// amount ascending; an even count averages the two central amounts, an odd
// count takes the single central one. The input slice is not modified.
func Median(txs []ledger.Transaction) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}
	sort.Slice(amounts, func(i, j int) bool {
		return amounts[i].LessThan(amounts[j])
	})

	n := len(amounts)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 0 {
		return amounts[n/2-1].Add(amounts[n/2]).Div(decimal.NewFromInt(2))
	}
	return amounts[n/2]
}
