// Package aggregate derives read-only summaries from the store: per-trip
// totals, category breakdowns, and the overall total across trips. All
// summing happens in the base currency; the conversion to the display
// currency and the rounding to two decimals are each applied exactly once,
// at the end, so per-group totals and the grand total cannot drift apart.
package aggregate

import (
	"sort"

	"budgetfy/internal/core"
	"budgetfy/internal/currency"
	"budgetfy/internal/store"
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// TotalForTrip sums one trip's expenses in the base currency, converts the
// sum once, and rounds once. Unknown trips total zero.
func (s *Service) TotalForTrip(tripID string, target currency.Currency) float64 {
	return total(s.store.ListExpenses(tripID), target)
}

// OverallTotal sums every expense across all trips.
func (s *Service) OverallTotal(target currency.Currency) float64 {
	return total(s.store.ListAllExpenses(), target)
}

func total(expenses []core.Expense, target currency.Currency) float64 {
	var sum float64
	for _, e := range expenses {
		sum += e.Amount
	}
	return core.RoundDisplay(currency.Convert(sum, target.Rate))
}

// TotalsByCategory groups one trip's expenses by their exact category string
// and returns per-category converted totals, largest first. Categories are
// case-sensitive: "Food" and "food" are distinct groups.
func (s *Service) TotalsByCategory(tripID string, target currency.Currency) []core.CategoryTotal {
	return groupByCategory(s.store.ListExpenses(tripID), target)
}

// OverallTotalsByCategory groups every expense across all trips.
func (s *Service) OverallTotalsByCategory(target currency.Currency) []core.CategoryTotal {
	return groupByCategory(s.store.ListAllExpenses(), target)
}

func groupByCategory(expenses []core.Expense, target currency.Currency) []core.CategoryTotal {
	sums := make(map[string]float64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount
	}

	out := make([]core.CategoryTotal, 0, len(sums))
	for cat, sum := range sums {
		out = append(out, core.CategoryTotal{
			Category: cat,
			Total:    core.RoundDisplay(currency.Convert(sum, target.Rate)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Overview bundles a trip's total and category breakdown in one pass over
// the same snapshot of the bucket.
func (s *Service) Overview(tripID string, target currency.Currency) core.TripOverview {
	expenses := s.store.ListExpenses(tripID)
	return core.TripOverview{
		TripID:     tripID,
		Total:      total(expenses, target),
		ByCategory: groupByCategory(expenses, target),
	}
}
