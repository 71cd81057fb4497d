// Package sync bridges optimistic local mutation and the remote document
// store. Every operation runs pending -> fulfilled/rejected; the entity
// store is mutated only from fulfillment paths, with canonical records
// (server-assigned ids, normalized timestamps).
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"budgetfy/internal/core"
	"budgetfy/internal/remote"
	"budgetfy/internal/store"
)

// Publisher emits best-effort entity-change events. A nil publisher is
// valid; failures never fail the operation that triggered them.
type Publisher interface {
	PublishEntityChange(ctx context.Context, kind, collection, id, tripID string) error
}

type Engine struct {
	store     *store.Store
	remote    remote.Client
	publisher Publisher
	track     *tracker
	now       func() time.Time
}

func NewEngine(st *store.Store, rc remote.Client, pub Publisher) *Engine {
	return &Engine{
		store:     st,
		remote:    rc,
		publisher: pub,
		track:     newTracker(time.Now),
		now:       time.Now,
	}
}

// SetClock overrides the wall clock used for substituted timestamps. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.track.now = now
}

// Operations returns the lifecycle status of every operation seen so far.
func (e *Engine) Operations() []Status {
	return e.track.snapshot()
}

// CreateTrip validates the trip, inserts it remotely and applies the
// canonical record to the store. The store is untouched on rejection.
func (e *Engine) CreateTrip(ctx context.Context, data core.Trip) (core.Trip, error) {
	if err := data.Validate(); err != nil {
		return core.Trip{}, err
	}

	// Creates have no entity id yet; a fresh op id keeps them visible in the
	// lifecycle registry without serializing independent creates.
	opID := uuid.NewString()
	_ = e.track.begin(OpCreateTrip, opID)

	res, err := e.remote.Insert(ctx, remote.CollectionTrips, map[string]any{
		"place":   data.Place,
		"country": data.Country,
		"userId":  data.UserID,
	})
	if err != nil {
		e.track.finish(OpCreateTrip, opID, err)
		return core.Trip{}, fmt.Errorf("create trip: %w", err)
	}

	canonical := core.Trip{
		ID:        res.ID,
		Place:     data.Place,
		Country:   data.Country,
		UserID:    data.UserID,
		CreatedAt: NormalizeTimestamp(res.ServerTimestamp, e.now),
	}
	e.store.UpsertTrip(canonical)
	e.track.finish(OpCreateTrip, opID, nil)
	e.publish(ctx, "trip.created", remote.CollectionTrips, canonical.ID, canonical.ID)

	slog.InfoContext(ctx, "Trip created", "trip_id", canonical.ID, "place", canonical.Place)
	return canonical, nil
}

// FetchTripsForUser replaces the user's local trip set with the remote
// result: fetched trips are upserted, and local trips of that user missing
// from the response are dropped along with their buckets, so a trip deleted
// by another session converges here too. Other users' trips are untouched.
// On failure the store is left unchanged.
func (e *Engine) FetchTripsForUser(ctx context.Context, userID string) ([]core.Trip, error) {
	if err := e.track.begin(OpFetchTrips, userID); err != nil {
		return nil, err
	}

	docs, err := e.remote.QueryByField(ctx, remote.CollectionTrips, "userId", userID)
	if err != nil {
		e.track.finish(OpFetchTrips, userID, err)
		return nil, fmt.Errorf("fetch trips for %s: %w", userID, err)
	}

	trips := make([]core.Trip, 0, len(docs))
	fetched := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		t := e.docToTrip(doc)
		trips = append(trips, t)
		fetched[t.ID] = struct{}{}
	}
	for _, t := range e.store.ListTrips() {
		if t.UserID != userID {
			continue
		}
		if _, ok := fetched[t.ID]; !ok {
			e.store.RemoveTrip(t.ID)
		}
	}
	for _, t := range trips {
		e.store.UpsertTrip(t)
	}
	e.track.finish(OpFetchTrips, userID, nil)

	slog.InfoContext(ctx, "Trips fetched", "user_id", userID, "count", len(trips))
	return trips, nil
}

// DeleteTrip cascades: every expense document referencing the trip is
// deleted remotely, then the trip document, and only then is the store
// mutated. The cascade set comes from the remote, not the local bucket: the
// remote is the system of record, and the bucket may be stale or never
// fetched in this session. A failure part-way leaves the store untouched;
// already-deleted documents are tolerated so a retry converges.
func (e *Engine) DeleteTrip(ctx context.Context, id string) error {
	if err := e.track.begin(OpDeleteTrip, id); err != nil {
		return err
	}

	docs, err := e.remote.QueryByField(ctx, remote.CollectionExpenses, "tripId", id)
	if err != nil {
		e.track.finish(OpDeleteTrip, id, err)
		return fmt.Errorf("query expenses for trip %s: %w", id, err)
	}
	for _, doc := range docs {
		if err := e.deleteRemote(ctx, remote.CollectionExpenses, doc.ID); err != nil {
			e.track.finish(OpDeleteTrip, id, err)
			return fmt.Errorf("cascade delete expense %s: %w", doc.ID, err)
		}
	}
	if err := e.deleteRemote(ctx, remote.CollectionTrips, id); err != nil {
		e.track.finish(OpDeleteTrip, id, err)
		return fmt.Errorf("delete trip %s: %w", id, err)
	}

	e.store.RemoveTrip(id)
	e.track.finish(OpDeleteTrip, id, nil)
	e.publish(ctx, "trip.deleted", remote.CollectionTrips, id, id)

	slog.InfoContext(ctx, "Trip deleted", "trip_id", id, "cascaded_expenses", len(docs))
	return nil
}

// CreateExpense validates the expense against the store's referential
// invariant, inserts it remotely and applies the canonical record.
func (e *Engine) CreateExpense(ctx context.Context, data core.Expense) (core.Expense, error) {
	if err := data.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, ok := e.store.GetTrip(data.TripID); !ok {
		return core.Expense{}, fmt.Errorf("%w: %s", ErrUnknownTrip, data.TripID)
	}

	opID := uuid.NewString()
	_ = e.track.begin(OpCreateExpense, opID)

	date := NormalizeTimestamp(data.Date, e.now)
	res, err := e.remote.Insert(ctx, remote.CollectionExpenses, map[string]any{
		"title":       data.Title,
		"amount":      data.Amount,
		"category":    data.Category,
		"description": data.Description,
		"tripId":      data.TripID,
		"userId":      data.UserID,
		"date":        date,
	})
	if err != nil {
		e.track.finish(OpCreateExpense, opID, err)
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	canonical := core.Expense{
		ID:          res.ID,
		Title:       data.Title,
		Amount:      data.Amount,
		Category:    data.Category,
		Description: data.Description,
		TripID:      data.TripID,
		UserID:      data.UserID,
		CreatedAt:   NormalizeTimestamp(res.ServerTimestamp, e.now),
		Date:        date,
	}
	e.store.UpsertExpense(canonical.TripID, canonical)
	e.track.finish(OpCreateExpense, opID, nil)
	e.publish(ctx, "expense.created", remote.CollectionExpenses, canonical.ID, canonical.TripID)

	slog.InfoContext(ctx, "Expense created",
		"expense_id", canonical.ID,
		"trip_id", canonical.TripID,
		"amount", canonical.Amount,
		"category", canonical.Category)
	return canonical, nil
}

// FetchExpensesForTrip replaces the trip's bucket with the remote result.
// On failure the bucket is left unchanged.
func (e *Engine) FetchExpensesForTrip(ctx context.Context, tripID string) ([]core.Expense, error) {
	if err := e.track.begin(OpFetchExpenses, tripID); err != nil {
		return nil, err
	}

	docs, err := e.remote.QueryByField(ctx, remote.CollectionExpenses, "tripId", tripID)
	if err != nil {
		e.track.finish(OpFetchExpenses, tripID, err)
		return nil, fmt.Errorf("fetch expenses for %s: %w", tripID, err)
	}

	expenses := make([]core.Expense, 0, len(docs))
	for _, doc := range docs {
		expenses = append(expenses, e.docToExpense(doc, tripID))
	}
	e.store.ReplaceExpensesForTrip(tripID, expenses)
	e.track.finish(OpFetchExpenses, tripID, nil)

	slog.InfoContext(ctx, "Expenses fetched", "trip_id", tripID, "count", len(expenses))
	return e.store.ListExpenses(tripID), nil
}

// DeleteExpense removes optimistically: the store drops the expense first so
// the common case is responsive, and a remote failure rolls the record back
// in with a surfaced error. An already-deleted remote document counts as
// success, making retries idempotent.
func (e *Engine) DeleteExpense(ctx context.Context, tripID, expenseID string) error {
	if err := e.track.begin(OpDeleteExpense, expenseID); err != nil {
		return err
	}

	var snapshot *core.Expense
	position := -1
	for i, exp := range e.store.ListExpenses(tripID) {
		if exp.ID == expenseID {
			s := exp
			snapshot = &s
			position = i
			break
		}
	}

	e.store.RemoveExpense(tripID, expenseID)

	if err := e.deleteRemote(ctx, remote.CollectionExpenses, expenseID); err != nil {
		if snapshot != nil {
			// Reinsert at the original position so a failed delete leaves the
			// bucket order exactly as it was.
			e.store.InsertExpenseAt(tripID, position, *snapshot)
		}
		e.track.finish(OpDeleteExpense, expenseID, err)
		slog.WarnContext(ctx, "Expense delete rolled back",
			"expense_id", expenseID, "trip_id", tripID, "error", err)
		return fmt.Errorf("delete expense %s: %w", expenseID, err)
	}

	e.track.finish(OpDeleteExpense, expenseID, nil)
	e.publish(ctx, "expense.deleted", remote.CollectionExpenses, expenseID, tripID)

	slog.InfoContext(ctx, "Expense deleted", "expense_id", expenseID, "trip_id", tripID)
	return nil
}

// SignOut clears the local trip and expense collections atomically. Remote
// state is untouched; it is the system of record.
func (e *Engine) SignOut(ctx context.Context) {
	e.store.Reset()
	slog.InfoContext(ctx, "Local state cleared on sign-out")
}

// deleteRemote treats a not-found document as already deleted.
func (e *Engine) deleteRemote(ctx context.Context, collection, id string) error {
	err := e.remote.DeleteByID(ctx, collection, id)
	if err == nil || isNotFound(err) {
		return nil
	}
	return err
}

func (e *Engine) publish(ctx context.Context, kind, collection, id, tripID string) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishEntityChange(ctx, kind, collection, id, tripID); err != nil {
		// Events are best-effort; the mutation already succeeded.
		slog.WarnContext(ctx, "Failed to publish entity change",
			"kind", kind, "id", id, "error", err)
	}
}

func (e *Engine) docToTrip(doc remote.Document) core.Trip {
	return core.Trip{
		ID:        doc.ID,
		Place:     fieldString(doc.Fields, "place"),
		Country:   fieldString(doc.Fields, "country"),
		UserID:    fieldString(doc.Fields, "userId"),
		CreatedAt: e.docCreatedAt(doc),
	}
}

func (e *Engine) docToExpense(doc remote.Document, tripID string) core.Expense {
	return core.Expense{
		ID:          doc.ID,
		Title:       fieldString(doc.Fields, "title"),
		Amount:      fieldFloat(doc.Fields, "amount"),
		Category:    fieldString(doc.Fields, "category"),
		Description: fieldString(doc.Fields, "description"),
		TripID:      tripID,
		UserID:      fieldString(doc.Fields, "userId"),
		CreatedAt:   e.docCreatedAt(doc),
		Date:        NormalizeTimestamp(doc.Fields["date"], e.now),
	}
}

// docCreatedAt prefers the provider's server timestamp and falls back to a
// createdAt field that survived a JSON round trip.
func (e *Engine) docCreatedAt(doc remote.Document) string {
	if doc.CreatedAt != nil {
		return NormalizeTimestamp(doc.CreatedAt, e.now)
	}
	return NormalizeTimestamp(doc.Fields["createdAt"], e.now)
}

func fieldString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func fieldFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
