package sync

import (
	"log/slog"
	"strings"
	"time"

	"budgetfy/internal/remote"
)

// NormalizeTimestamp maps any provider timestamp shape onto a single
// canonical RFC3339 UTC string before it enters the entity store.
//
// Accepted shapes: the provider's seconds-epoch wrapper (struct or pointer),
// the same wrapper after a JSON round trip (map with "seconds"/"nanos"),
// a bare epoch-seconds number, and an already-normalized RFC3339 string.
// Normalizing an already-normalized value is a no-op. The current wall clock
// is substituted when the source value is completely absent; an unparseable
// string is logged and then treated the same way.
func NormalizeTimestamp(v any, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}

	switch ts := v.(type) {
	case nil:
		// fall through to wall clock below
	case *remote.Timestamp:
		if ts != nil {
			return ts.Time().Format(time.RFC3339)
		}
	case remote.Timestamp:
		return ts.Time().Format(time.RFC3339)
	case map[string]any:
		secs, ok := numField(ts, "seconds")
		if !ok {
			break
		}
		nanos, _ := numField(ts, "nanos")
		return time.Unix(secs, nanos).UTC().Format(time.RFC3339)
	case float64:
		return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
	case int64:
		return time.Unix(ts, 0).UTC().Format(time.RFC3339)
	case string:
		s := strings.TrimSpace(ts)
		if s == "" {
			break
		}
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			// Already canonical; keep the exact representation.
			return s
		}
		// An unparseable string is discarded rather than stored as-is, but
		// never silently: the substitution loses information.
		slog.Warn("Discarding unparseable timestamp", "value", s)
	}

	return now().UTC().Format(time.RFC3339)
}

func numField(m map[string]any, key string) (int64, bool) {
	switch n := m[key].(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
