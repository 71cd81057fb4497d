package sync

import (
	"errors"

	"budgetfy/internal/remote"
)

// ErrUnknownTrip reports an expense operation referencing a trip the store
// does not hold. Caught before any remote call.
var ErrUnknownTrip = errors.New("unknown trip")

func isNotFound(err error) bool {
	return errors.Is(err, remote.ErrNotFound)
}
