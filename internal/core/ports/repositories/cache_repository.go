package repositories

import "context"

// IdempotencyStore remembers request keys that were already accepted.
type IdempotencyStore interface {
	// SetIdempotency claims key and returns false if it was already claimed.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request failed, so it can be retried.
	ReleaseIdempotency(ctx context.Context, key string) error
}
