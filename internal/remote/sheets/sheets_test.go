package sheets

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"budgetfy/internal/remote"
)

func TestDecodeRow(t *testing.T) {
	row := []any{"abc-123", "1717243200", `{"tripId":"t1","title":"Lunch","amount":1000}`}
	doc, ok := decodeRow(row)
	if !ok {
		t.Fatal("expected row to decode")
	}
	if doc.ID != "abc-123" {
		t.Fatalf("id = %q", doc.ID)
	}
	if doc.CreatedAt == nil || doc.CreatedAt.Seconds != 1717243200 {
		t.Fatalf("created at = %+v", doc.CreatedAt)
	}
	if doc.Fields["tripId"] != "t1" || doc.Fields["amount"] != float64(1000) {
		t.Fatalf("fields = %v", doc.Fields)
	}
}

func TestDecodeRowMalformed(t *testing.T) {
	cases := [][]any{
		nil,
		{"id-only"},
		{"id", "ts"},
		{"", "1717243200", `{}`},
		{"id", "1717243200", `not-json`},
	}
	for i, row := range cases {
		if _, ok := decodeRow(row); ok {
			t.Fatalf("case %d: malformed row should be skipped", i)
		}
	}
}

func TestDecodeRowWithoutTimestamp(t *testing.T) {
	doc, ok := decodeRow([]any{"id", "oops", `{"a":"b"}`})
	if !ok {
		t.Fatal("row should still decode")
	}
	if doc.CreatedAt != nil {
		t.Fatalf("expected nil timestamp, got %+v", doc.CreatedAt)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, true},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"network", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("query", tc.err)
			if remote.IsTransient(err) != tc.transient {
				t.Fatalf("transient = %v; want %v", remote.IsTransient(err), tc.transient)
			}
		})
	}
}
