package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetfy/internal/core"
	"budgetfy/internal/remote"
	"budgetfy/internal/remote/memory"
	"budgetfy/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *memory.Store) {
	t.Helper()
	st := store.New()
	rc := memory.New()
	eng := NewEngine(st, rc, nil)
	eng.SetClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) })
	return eng, st, rc
}

func TestCreateTripValidationSkipsRemote(t *testing.T) {
	eng, st, rc := newTestEngine(t)

	_, err := eng.CreateTrip(context.Background(), core.Trip{Place: "", Country: "India", UserID: "u1"})
	require.ErrorIs(t, err, core.ErrEmptyPlace)
	assert.Zero(t, rc.Count(remote.CollectionTrips), "validation failures must not reach the remote")
	assert.Empty(t, st.ListTrips())
}

func TestCreateTripAppliesCanonicalRecord(t *testing.T) {
	eng, st, _ := newTestEngine(t)

	trip, err := eng.CreateTrip(context.Background(), core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, trip.ID, "id is server-assigned")
	_, parseErr := time.Parse(time.RFC3339, trip.CreatedAt)
	assert.NoError(t, parseErr, "createdAt must be canonical RFC3339")

	trips := st.ListTrips()
	require.Len(t, trips, 1)
	assert.Equal(t, trip, trips[0])
}

func TestCreateTripRemoteFailureLeavesStore(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	rc.FailWith(memory.ErrUnavailable, "insert")

	_, err := eng.CreateTrip(context.Background(), core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))
	assert.Empty(t, st.ListTrips())
}

func TestCreateExpenseUnknownTrip(t *testing.T) {
	eng, _, rc := newTestEngine(t)

	_, err := eng.CreateExpense(context.Background(), core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: "ghost", UserID: "u1",
	})
	require.ErrorIs(t, err, ErrUnknownTrip)
	assert.Zero(t, rc.Count(remote.CollectionExpenses))
}

func TestCreateAndFetchExpenses(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)

	exp, err := eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 1000, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)
	assert.NotEmpty(t, exp.Date, "absent date is substituted with wall clock")

	// A fresh bucket fetch replaces local state with the remote truth.
	st.ReplaceExpensesForTrip(trip.ID, nil)
	fetched, err := eng.FetchExpensesForTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, exp.ID, fetched[0].ID)
	assert.Equal(t, float64(1000), fetched[0].Amount)
	assert.Equal(t, trip.ID, fetched[0].TripID)
}

func TestFetchTripsForUserIsolatesUsers(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	ctx := context.Background()

	mine, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	other, err := eng.CreateTrip(ctx, core.Trip{Place: "Paris", Country: "France", UserID: "u2"})
	require.NoError(t, err)

	trips, err := eng.FetchTripsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 1, "fetch returns only the requested user's trips")
	assert.Equal(t, mine.ID, trips[0].ID)

	// The other user's local trip is untouched by u1's fetch.
	_, ok := st.GetTrip(other.ID)
	assert.True(t, ok)
}

func TestFetchTripsDropsRemotelyDeleted(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	keep, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	gone, err := eng.CreateTrip(ctx, core.Trip{Place: "Paris", Country: "France", UserID: "u1"})
	require.NoError(t, err)
	_, err = eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: gone.ID, UserID: "u1",
	})
	require.NoError(t, err)

	// Another session deletes the trip document out from under us.
	require.NoError(t, rc.DeleteByID(ctx, remote.CollectionTrips, gone.ID))

	trips, err := eng.FetchTripsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, keep.ID, trips[0].ID)

	_, ok := st.GetTrip(gone.ID)
	assert.False(t, ok, "a local trip absent from the response must be dropped")
	assert.Empty(t, st.ListExpenses(gone.ID), "its bucket goes with it")
}

func TestFetchFailureLeavesBucket(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	_, err = eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	rc.FailWith(memory.ErrUnavailable, "query")
	_, err = eng.FetchExpensesForTrip(ctx, trip.ID)
	require.Error(t, err)
	assert.Len(t, st.ListExpenses(trip.ID), 1, "rejected fetch must not touch the bucket")
}

func TestDeleteExpenseOptimisticRollback(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	exp, err := eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	rc.FailWith(memory.ErrUnavailable, "delete")
	err = eng.DeleteExpense(ctx, trip.ID, exp.ID)
	require.Error(t, err)
	require.Len(t, st.ListExpenses(trip.ID), 1, "failed delete must roll the expense back in")
	assert.Equal(t, exp.ID, st.ListExpenses(trip.ID)[0].ID)

	// The failure self-heals: a retry succeeds once the remote recovers.
	rc.FailWith(nil, "delete")
	require.NoError(t, eng.DeleteExpense(ctx, trip.ID, exp.ID))
	assert.Empty(t, st.ListExpenses(trip.ID))
	assert.Zero(t, rc.Count(remote.CollectionExpenses))
}

func TestDeleteExpenseRollbackKeepsPosition(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	var ids []string
	for _, title := range []string{"Lunch", "Taxi", "Hotel"} {
		exp, err := eng.CreateExpense(ctx, core.Expense{
			Title: title, Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
		})
		require.NoError(t, err)
		ids = append(ids, exp.ID)
	}

	// Fail the delete of the middle expense; the rollback must not move it.
	rc.FailWith(memory.ErrUnavailable, "delete")
	require.Error(t, eng.DeleteExpense(ctx, trip.ID, ids[1]))

	bucket := st.ListExpenses(trip.ID)
	require.Len(t, bucket, 3)
	for i, exp := range bucket {
		assert.Equal(t, ids[i], exp.ID, "rollback must restore the original order")
	}
}

func TestDeleteExpenseIdempotent(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	exp, err := eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	require.NoError(t, eng.DeleteExpense(ctx, trip.ID, exp.ID))
	// Second delete: remote reports not-found, which counts as success.
	require.NoError(t, eng.DeleteExpense(ctx, trip.ID, exp.ID))
	assert.Empty(t, st.ListExpenses(trip.ID))
}

func TestDeleteTripCascades(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	for _, title := range []string{"Lunch", "Taxi"} {
		_, err = eng.CreateExpense(ctx, core.Expense{
			Title: title, Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
		})
		require.NoError(t, err)
	}

	require.NoError(t, eng.DeleteTrip(ctx, trip.ID))
	assert.Zero(t, rc.Count(remote.CollectionExpenses), "expense docs deleted before the trip doc")
	assert.Zero(t, rc.Count(remote.CollectionTrips))
	assert.Empty(t, st.ListTrips())
	assert.Empty(t, st.ListExpenses(trip.ID))
}

func TestDeleteTripCascadesUnfetchedExpenses(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	_, err = eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	// A fresh session: trips are fetched again but the expense bucket never is.
	eng.SignOut(ctx)
	_, err = eng.FetchTripsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, st.ListExpenses(trip.ID))

	require.NoError(t, eng.DeleteTrip(ctx, trip.ID))
	assert.Zero(t, rc.Count(remote.CollectionExpenses),
		"cascade must cover expense documents this session never fetched")
	assert.Zero(t, rc.Count(remote.CollectionTrips))
}

func TestDeleteTripFailureLeavesStore(t *testing.T) {
	eng, st, rc := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	_, err = eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	rc.FailWith(memory.ErrUnavailable, "delete")
	require.Error(t, eng.DeleteTrip(ctx, trip.ID))

	assert.Len(t, st.ListTrips(), 1, "store mutates only after the full cascade succeeds")
	assert.Len(t, st.ListExpenses(trip.ID), 1)
}

// blockingClient parks QueryByField until released, to hold an op pending.
type blockingClient struct {
	remote.Client
	release chan struct{}
}

func (b *blockingClient) QueryByField(ctx context.Context, collection, field, value string) ([]remote.Document, error) {
	<-b.release
	return b.Client.QueryByField(ctx, collection, field, value)
}

func TestSameEntityOpsAreDeduplicated(t *testing.T) {
	st := store.New()
	bc := &blockingClient{Client: memory.New(), release: make(chan struct{})}
	eng := NewEngine(st, bc, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := eng.FetchExpensesForTrip(ctx, "t1")
		done <- err
	}()

	// Wait until the first fetch is pending, then issue a duplicate.
	require.Eventually(t, func() bool {
		for _, op := range eng.Operations() {
			if op.Kind == OpFetchExpenses && op.Entity == "t1" && op.State == StatePending {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	_, err := eng.FetchExpensesForTrip(ctx, "t1")
	require.ErrorIs(t, err, ErrOpInFlight)

	close(bc.release)
	require.NoError(t, <-done)

	// Settled: the same op can run again.
	_, err = eng.FetchExpensesForTrip(ctx, "t1")
	require.NoError(t, err)
}

func TestOperationsLifecycle(t *testing.T) {
	eng, _, rc := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)

	rc.FailWith(memory.ErrUnavailable, "query")
	_, err = eng.FetchTripsForUser(ctx, "u1")
	require.Error(t, err)

	var sawFulfilled, sawRejected bool
	for _, op := range eng.Operations() {
		switch {
		case op.Kind == OpCreateTrip && op.State == StateFulfilled:
			sawFulfilled = true
		case op.Kind == OpFetchTrips && op.State == StateRejected:
			sawRejected = true
			assert.NotEmpty(t, op.Error)
		}
	}
	assert.True(t, sawFulfilled)
	assert.True(t, sawRejected)
}

func TestSignOutClearsStore(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	ctx := context.Background()

	trip, err := eng.CreateTrip(ctx, core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	_, err = eng.CreateExpense(ctx, core.Expense{
		Title: "Lunch", Amount: 100, Category: "Food", TripID: trip.ID, UserID: "u1",
	})
	require.NoError(t, err)

	eng.SignOut(ctx)
	assert.Empty(t, st.ListTrips())
	assert.Empty(t, st.ListAllExpenses())
}

func TestPublisherFailureDoesNotFailOp(t *testing.T) {
	st := store.New()
	eng := NewEngine(st, memory.New(), failingPublisher{})

	_, err := eng.CreateTrip(context.Background(), core.Trip{Place: "Goa", Country: "India", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, st.ListTrips(), 1)
}

type failingPublisher struct{}

func (failingPublisher) PublishEntityChange(context.Context, string, string, string, string) error {
	return errors.New("broker down")
}
