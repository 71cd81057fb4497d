// Package budget tracks per-trip spending limits. Budgets are stored in the
// base currency and compared against base-currency totals, so a change of
// display currency never moves the progress bar.
package budget

import (
	"context"
	"errors"
	"fmt"

	"budgetfy/internal/aggregate"
	"budgetfy/internal/core"
	"budgetfy/internal/currency"
)

// ErrNoBudget reports that a trip has no budget set.
var ErrNoBudget = errors.New("no budget set")

// Repository persists budgets across restarts.
type Repository interface {
	SaveBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, tripID string) (core.Budget, error)
	DeleteBudget(ctx context.Context, tripID string) error
}

type Tracker struct {
	repo Repository
	agg  *aggregate.Service
}

func NewTracker(repo Repository, agg *aggregate.Service) *Tracker {
	return &Tracker{repo: repo, agg: agg}
}

// Set stores the trip's budget, overwriting any previous value.
func (t *Tracker) Set(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := t.repo.SaveBudget(ctx, b); err != nil {
		return fmt.Errorf("save budget for trip %s: %w", b.TripID, err)
	}
	return nil
}

// Get returns the trip's budget, or ErrNoBudget.
func (t *Tracker) Get(ctx context.Context, tripID string) (core.Budget, error) {
	return t.repo.GetBudget(ctx, tripID)
}

// Clear removes the trip's budget. Clearing an unset budget is a no-op.
func (t *Tracker) Clear(ctx context.Context, tripID string) error {
	if err := t.repo.DeleteBudget(ctx, tripID); err != nil {
		return fmt.Errorf("delete budget for trip %s: %w", tripID, err)
	}
	return nil
}

// Status is a budget together with the spending measured against it.
type Status struct {
	Budget   core.Budget `json:"budget"`
	Spent    float64     `json:"spent"`
	Progress float64     `json:"progress"`
}

// Progress returns spent/budget clamped to [0, 1]. Unset or non-positive
// budgets report zero progress.
func (t *Tracker) Progress(ctx context.Context, tripID string) (float64, error) {
	st, err := t.Status(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return st.Progress, nil
}

// Status reports the budget, the base-currency total spent, and the progress
// ratio in one call.
func (t *Tracker) Status(ctx context.Context, tripID string) (Status, error) {
	base := currency.Currency{ID: core.BaseCurrency, Symbol: currency.SymbolFor(core.BaseCurrency), Rate: 1}
	spent := t.agg.TotalForTrip(tripID, base)

	b, err := t.repo.GetBudget(ctx, tripID)
	if errors.Is(err, ErrNoBudget) {
		return Status{Budget: core.Budget{TripID: tripID}, Spent: spent}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load budget for trip %s: %w", tripID, err)
	}

	st := Status{Budget: b, Spent: spent}
	if b.Amount > 0 {
		st.Progress = spent / b.Amount
		if st.Progress > 1 {
			st.Progress = 1
		}
	}
	return st, nil
}
