// Package session provides the per-user dialogue state used by the multi-step
// chat flows. A session is keyed by the originating user id and scoped to one
// flow; losing it mid-dialogue is acceptable and surfaces as "session expired".
package session

import "context"

// Store holds at most one in-progress session per user for a given flow.
// Implementations must expire entries after their TTL.
type Store[T any] interface {
	// Get returns the session for userID; ok is false when none exists or it
	// has expired.
	Get(ctx context.Context, userID int64) (value T, ok bool, err error)

	// Put creates or replaces the session for userID and resets its TTL.
	Put(ctx context.Context, userID int64, value T) error

	// Delete discards the session for userID. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, userID int64) error
}
