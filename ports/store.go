package ports

import (
	"context"
	"time"
)

// NonceStore keeps the single live sign-in nonce of each address
type NonceStore interface {
	// Issue generates a fresh nonce for address, replacing any previous one.
	Issue(ctx context.Context, address string, ttl time.Duration) (string, error)

	// Consume atomically deletes the nonce for address if it equals nonce.
	// It reports false, leaving the store untouched, when the nonce is absent,
	// expired or different.
	Consume(ctx context.Context, address, nonce string) (bool, error)
}
