// Package store holds the in-memory normalized collections of trips and
// expenses. It is the single owner of this state: the sync engine is the only
// component that mutates it, everything else reads derived views from it.
package store

import (
	"sort"
	"sync"

	"budgetfy/internal/core"
)

// Store keeps trips keyed by id and expenses bucketed per trip id.
// Buckets preserve insertion order; fetching a bucket is independent of the
// total expense count across trips. All mutations are total: they validate
// nothing and never fail, because they only ever receive canonical records
// from the sync engine.
type Store struct {
	mu        sync.RWMutex
	trips     map[string]core.Trip
	tripOrder []string
	expenses  map[string][]core.Expense
}

func New() *Store {
	return &Store{
		trips:    make(map[string]core.Trip),
		expenses: make(map[string][]core.Expense),
	}
}

// UpsertTrip inserts the trip or replaces it in place, keeping its position
// in the listing order.
func (s *Store) UpsertTrip(t core.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trips[t.ID]; !exists {
		s.tripOrder = append(s.tripOrder, t.ID)
	}
	s.trips[t.ID] = t
}

// RemoveTrip removes the trip and its expense bucket. Removing an unknown id
// is a no-op.
func (s *Store) RemoveTrip(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trips[id]; !exists {
		delete(s.expenses, id)
		return
	}
	delete(s.trips, id)
	delete(s.expenses, id)
	for i, tid := range s.tripOrder {
		if tid == id {
			s.tripOrder = append(s.tripOrder[:i], s.tripOrder[i+1:]...)
			break
		}
	}
}

// GetTrip returns the trip for id, if present.
func (s *Store) GetTrip(id string) (core.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trips[id]
	return t, ok
}

// ListTrips returns all trips in insertion order.
func (s *Store) ListTrips() []core.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Trip, 0, len(s.tripOrder))
	for _, id := range s.tripOrder {
		out = append(out, s.trips[id])
	}
	return out
}

// UpsertExpense appends the expense to its trip's bucket, or replaces it in
// place when an expense with the same id is already there. Out-of-order
// arrival of concurrent creates is harmless: append order is whatever order
// the remote acknowledged them in.
func (s *Store) UpsertExpense(tripID string, e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.expenses[tripID]
	for i := range bucket {
		if bucket[i].ID == e.ID {
			bucket[i] = e
			return
		}
	}
	s.expenses[tripID] = append(bucket, e)
}

// InsertExpenseAt puts the expense back into its trip's bucket at the given
// position, clamped to the bucket bounds. Used to undo an optimistic removal
// without disturbing insertion order. If an expense with the same id is
// already present it is replaced in place instead.
func (s *Store) InsertExpenseAt(tripID string, index int, e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.expenses[tripID]
	for i := range bucket {
		if bucket[i].ID == e.ID {
			bucket[i] = e
			return
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(bucket) {
		index = len(bucket)
	}
	bucket = append(bucket, core.Expense{})
	copy(bucket[index+1:], bucket[index:])
	bucket[index] = e
	s.expenses[tripID] = bucket
}

// RemoveExpense removes the expense by id from its trip's bucket.
// Repeating the removal is idempotent.
func (s *Store) RemoveExpense(tripID, expenseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.expenses[tripID]
	for i := range bucket {
		if bucket[i].ID == expenseID {
			s.expenses[tripID] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// ListExpenses returns the expenses of one trip in insertion order.
// Unknown trip ids yield an empty slice, never an error.
func (s *Store) ListExpenses(tripID string) []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.expenses[tripID]
	out := make([]core.Expense, len(bucket))
	copy(out, bucket)
	return out
}

// ReplaceExpensesForTrip swaps a trip's entire bucket with a fresh fetch
// result.
func (s *Store) ReplaceExpensesForTrip(tripID string, expenses []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := make([]core.Expense, len(expenses))
	copy(bucket, expenses)
	s.expenses[tripID] = bucket
}

// ListAllExpenses returns every expense across all buckets: known trips in
// insertion order first, then any remaining buckets in sorted key order so
// the result is deterministic.
func (s *Store) ListAllExpenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Expense
	seen := make(map[string]struct{}, len(s.tripOrder))
	for _, id := range s.tripOrder {
		out = append(out, s.expenses[id]...)
		seen[id] = struct{}{}
	}
	var rest []string
	for id := range s.expenses {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		out = append(out, s.expenses[id]...)
	}
	return out
}

// Reset clears both collections atomically. Used on sign-out only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trips = make(map[string]core.Trip)
	s.tripOrder = nil
	s.expenses = make(map[string][]core.Expense)
}
