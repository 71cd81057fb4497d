package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetfy/internal/remote"
)

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	s := New()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	res, err := s.Insert(context.Background(), remote.CollectionTrips, map[string]any{
		"place": "Goa", "country": "India", "userId": "u1",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected a server-assigned id")
	}
	if res.ServerTimestamp == nil || res.ServerTimestamp.Seconds != fixed.Unix() {
		t.Fatalf("unexpected server timestamp: %+v", res.ServerTimestamp)
	}
}

func TestQueryByField(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Insert(ctx, remote.CollectionExpenses, map[string]any{"tripId": "t1", "title": "a"})
	_, _ = s.Insert(ctx, remote.CollectionExpenses, map[string]any{"tripId": "t2", "title": "b"})
	_, _ = s.Insert(ctx, remote.CollectionExpenses, map[string]any{"tripId": "t1", "title": "c"})

	docs, err := s.QueryByField(ctx, remote.CollectionExpenses, "tripId", "t1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].Fields["title"] != "a" || docs[1].Fields["title"] != "c" {
		t.Fatalf("unexpected result: %v", docs)
	}
}

func TestDeleteByID(t *testing.T) {
	s := New()
	ctx := context.Background()
	res, _ := s.Insert(ctx, remote.CollectionTrips, map[string]any{"userId": "u1"})

	if err := s.DeleteByID(ctx, remote.CollectionTrips, res.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := s.DeleteByID(ctx, remote.CollectionTrips, res.ID)
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if remote.IsTransient(err) {
		t.Fatal("not-found must be permanent")
	}
}

func TestFailureInjection(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.FailWith(ErrUnavailable, "insert", "query", "delete")

	if _, err := s.Insert(ctx, remote.CollectionTrips, nil); !remote.IsTransient(err) {
		t.Fatalf("expected transient insert failure, got %v", err)
	}
	if _, err := s.QueryByField(ctx, remote.CollectionTrips, "userId", "u1"); !remote.IsTransient(err) {
		t.Fatalf("expected transient query failure, got %v", err)
	}
	if err := s.DeleteByID(ctx, remote.CollectionTrips, "x"); !remote.IsTransient(err) {
		t.Fatalf("expected transient delete failure, got %v", err)
	}

	s.FailWith(nil, "insert", "query", "delete")
	if _, err := s.Insert(ctx, remote.CollectionTrips, nil); err != nil {
		t.Fatalf("failure should be cleared: %v", err)
	}
}
