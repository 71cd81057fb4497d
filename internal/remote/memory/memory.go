// Package memory is an in-process document store. It is the default backend
// and the test double for the sync engine: it assigns ids and server
// timestamps the way the real collaborator would, and can be told to fail.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetfy/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	docs map[string][]remote.Document // keyed by collection, insertion order

	// Failure injection for tests: when set, the matching operation fails
	// with the given error until cleared.
	failInsert error
	failQuery  error
	failDelete error

	now func() time.Time
}

var _ remote.Client = (*Store)(nil)

func New() *Store {
	return &Store{
		docs: make(map[string][]remote.Document),
		now:  time.Now,
	}
}

// Insert stores a copy of fields under a fresh uuid and stamps it with the
// current wall-clock in the provider's seconds-epoch shape.
func (s *Store) Insert(_ context.Context, collection string, fields map[string]any) (remote.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failInsert != nil {
		return remote.InsertResult{}, &remote.Error{Op: "insert", Transient: true, Err: s.failInsert}
	}

	now := s.now().UTC()
	ts := &remote.Timestamp{Seconds: now.Unix(), Nanos: int64(now.Nanosecond())}

	doc := remote.Document{
		ID:        uuid.NewString(),
		Fields:    cloneFields(fields),
		CreatedAt: ts,
	}
	s.docs[collection] = append(s.docs[collection], doc)

	return remote.InsertResult{ID: doc.ID, ServerTimestamp: ts}, nil
}

// QueryByField returns all documents whose field equals value, in insertion
// order.
func (s *Store) QueryByField(_ context.Context, collection, field, value string) ([]remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failQuery != nil {
		return nil, &remote.Error{Op: "query", Transient: true, Err: s.failQuery}
	}

	var out []remote.Document
	for _, doc := range s.docs[collection] {
		if v, ok := doc.Fields[field]; ok && v == value {
			out = append(out, remote.Document{
				ID:        doc.ID,
				Fields:    cloneFields(doc.Fields),
				CreatedAt: doc.CreatedAt,
			})
		}
	}
	return out, nil
}

// DeleteByID removes the document. Deleting an unknown id is a permanent
// not-found failure, matching the collaborator's behavior.
func (s *Store) DeleteByID(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete != nil {
		return &remote.Error{Op: "delete", Transient: true, Err: s.failDelete}
	}

	docs := s.docs[collection]
	for i := range docs {
		if docs[i].ID == id {
			s.docs[collection] = append(docs[:i], docs[i+1:]...)
			return nil
		}
	}
	return &remote.Error{Op: "delete", Transient: false, Err: remote.ErrNotFound}
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[collection])
}

// FailWith makes the named operations fail with err until called again with
// nil. Zero-value store never fails.
func (s *Store) FailWith(err error, ops ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		switch op {
		case "insert":
			s.failInsert = err
		case "query":
			s.failQuery = err
		case "delete":
			s.failDelete = err
		}
	}
}

// SetClock overrides the wall clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ErrUnavailable is a convenience error for failure injection in tests.
var ErrUnavailable = errors.New("remote unavailable")
