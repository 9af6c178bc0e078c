package port

import "context"

type IdempotencyStore interface {
	// Reserve claims key, returns false if it is already held
	Reserve(ctx context.Context, key string) (bool, error)

	// Release frees key so the request can be retried
	Release(ctx context.Context, key string) error
}
