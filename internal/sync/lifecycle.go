package sync

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// OpKind names the remote operations the engine performs.
type OpKind string

const (
	OpCreateTrip    OpKind = "create_trip"
	OpFetchTrips    OpKind = "fetch_trips"
	OpDeleteTrip    OpKind = "delete_trip"
	OpCreateExpense OpKind = "create_expense"
	OpFetchExpenses OpKind = "fetch_expenses"
	OpDeleteExpense OpKind = "delete_expense"
)

// OpState is the three-phase lifecycle of a single operation.
type OpState string

const (
	StatePending   OpState = "pending"
	StateFulfilled OpState = "fulfilled"
	StateRejected  OpState = "rejected"
)

// ErrOpInFlight reports a second operation of the same kind on the same
// entity while the first one is still pending. The store must never
// double-apply a mutation kind, so the caller retries after the first
// settles.
var ErrOpInFlight = errors.New("operation already in flight for this entity")

// Status is the externally visible record of one operation.
type Status struct {
	Kind      OpKind    `json:"kind"`
	Entity    string    `json:"entity"`
	State     OpState   `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type opKey struct {
	kind   OpKind
	entity string
}

// tracker serializes operations per (kind, entity) and remembers the last
// outcome of each.
type tracker struct {
	mu       sync.Mutex
	inflight map[opKey]struct{}
	statuses map[opKey]Status
	now      func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	if now == nil {
		now = time.Now
	}
	return &tracker{
		inflight: make(map[opKey]struct{}),
		statuses: make(map[opKey]Status),
		now:      now,
	}
}

// begin marks the operation pending, rejecting duplicates for the same
// entity.
func (t *tracker) begin(kind OpKind, entity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := opKey{kind: kind, entity: entity}
	if _, busy := t.inflight[key]; busy {
		return ErrOpInFlight
	}
	t.inflight[key] = struct{}{}
	t.statuses[key] = Status{Kind: kind, Entity: entity, State: StatePending, UpdatedAt: t.now()}
	return nil
}

// finish settles the operation as fulfilled or rejected.
func (t *tracker) finish(kind OpKind, entity string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := opKey{kind: kind, entity: entity}
	delete(t.inflight, key)

	st := Status{Kind: kind, Entity: entity, State: StateFulfilled, UpdatedAt: t.now()}
	if err != nil {
		st.State = StateRejected
		st.Error = err.Error()
	}
	t.statuses[key] = st
}

// snapshot returns all recorded statuses in a stable order.
func (t *tracker) snapshot() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Status, 0, len(t.statuses))
	for _, st := range t.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}
