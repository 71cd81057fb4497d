// Package remote defines the consumed contract of the document-style
// persistence collaborator. The collaborator is the system of record; the
// sync engine is the only caller.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logical collections of the document store.
const (
	CollectionTrips    = "trips"
	CollectionExpenses = "expenses"
)

// Timestamp is the provider-specific server-time shape: a seconds-based
// epoch wrapper. It never enters the entity store as-is; the sync engine
// normalizes it to RFC3339 first.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanos"`
}

// Time converts the wrapper to a wall-clock time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, t.Nanos).UTC()
}

// Document is a schemaless record as the provider returns it. CreatedAt is
// nil when the provider did not report a server timestamp.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt *Timestamp
}

// InsertResult carries the server-assigned id and server timestamp of a
// successful insert.
type InsertResult struct {
	ID              string
	ServerTimestamp *Timestamp
}

// Client is the document store port.
//
// All three operations may fail with an *Error carrying the
// transient-vs-permanent distinction; callers surface it but never hide it.
type (
	Client interface {
		Insert(ctx context.Context, collection string, fields map[string]any) (InsertResult, error)
		QueryByField(ctx context.Context, collection, field, value string) ([]Document, error)
		DeleteByID(ctx context.Context, collection, id string) error
	}
)

// ErrNotFound reports a delete of a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Error wraps a collaborator failure with its operation and whether a retry
// could plausibly succeed.
type Error struct {
	Op        string // "insert", "query", "delete"
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("remote %s (%s): %v", e.Op, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a remote failure worth retrying.
func IsTransient(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Transient
}
