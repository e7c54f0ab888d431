package repository

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/davidleathers/guardian-watch/internal/domain/errors"
	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// Store holds the users, merchants and transaction history shared by the
// ingestion loop and the baseline recalculator. Each collection carries its
// own lock so a long-running median computation over the history never
// stalls user or merchant updates on the ingestion path.
//
// All lookups are key-indexed. The history is append-only and kept in
// insertion order per user; entries may be out of chronological order when
// the source delivers them that way.
type Store struct {
	usersMu sync.RWMutex
	users   map[string]*ledger.User

	merchantsMu sync.RWMutex
	merchants   map[string]*ledger.Merchant

	historyMu sync.RWMutex
	history   map[string][]ledger.Transaction

	clock ledger.Clock
}

// NewStore creates an empty store. A nil clock defaults to system time.
func NewStore(clock ledger.Clock) *Store {
	if clock == nil {
		clock = ledger.RealClock{}
	}
	return &Store{
		users:     make(map[string]*ledger.User),
		merchants: make(map[string]*ledger.Merchant),
		history:   make(map[string][]ledger.Transaction),
		clock:     clock,
	}
}

// UpsertUser returns the existing user or creates one with a zero baseline.
func (s *Store) UpsertUser(id string) ledger.User {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if u, ok := s.users[id]; ok {
		return *u
	}
	u := ledger.NewUser(id, s.clock.Now())
	s.users[id] = &u
	return u
}

// UpsertMerchant returns the existing merchant or creates one with a zero
// fraud-flag count.
func (s *Store) UpsertMerchant(name string) ledger.Merchant {
	s.merchantsMu.Lock()
	defer s.merchantsMu.Unlock()

	if m, ok := s.merchants[name]; ok {
		return *m
	}
	m := ledger.NewMerchant(name, s.clock.Now())
	s.merchants[name] = &m
	return m
}

// Append adds a transaction to the user's history. Never rejects.
func (s *Store) Append(tx ledger.Transaction) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history[tx.UserID] = append(s.history[tx.UserID], tx)
}

// TransactionsSince returns the user's transactions with timestamp not
// before cutoff, in append order. The result is a copy taken under the read
// lock: a concurrent Append may or may not be included, but a returned entry
// is never torn.
func (s *Store) TransactionsSince(userID string, cutoff time.Time) []ledger.Transaction {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	var out []ledger.Transaction
	for _, tx := range s.history[userID] {
		if !tx.Timestamp.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

// UserBaseline returns the user's current baseline amount.
func (s *Store) UserBaseline(id string) (decimal.Decimal, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return decimal.Zero, apperrors.ErrUserNotFound
	}
	return u.Baseline, nil
}

// SetUserBaseline atomically replaces the user's baseline amount.
func (s *Store) SetUserBaseline(id string, baseline decimal.Decimal) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Baseline = baseline
	return nil
}

// MerchantFlagCount returns the merchant's accumulated fraud-flag count.
func (s *Store) MerchantFlagCount(name string) (int, error) {
	s.merchantsMu.RLock()
	defer s.merchantsMu.RUnlock()

	m, ok := s.merchants[name]
	if !ok {
		return 0, apperrors.ErrMerchantNotFound
	}
	return m.FraudFlagCount, nil
}

// IncrementMerchantFlagCount atomically bumps the merchant's fraud-flag
// count by one. The count is monotonic; there is no decrement.
func (s *Store) IncrementMerchantFlagCount(name string) error {
	s.merchantsMu.Lock()
	defer s.merchantsMu.Unlock()

	m, ok := s.merchants[name]
	if !ok {
		return apperrors.ErrMerchantNotFound
	}
	m.FraudFlagCount++
	return nil
}

// AllUserIDs returns a snapshot of every known user identifier. Used by the
// baseline recalculator to drive a cycle.
func (s *Store) AllUserIDs() []string {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids
}
