package repository

import (
	"context"
	"time"
)

// TokenStash is a short-lived server-side copy of the correlation token,
// written at checkout creation and keyed by the checkout reference carried in
// a browser cookie. It lets the resolver recover the token when the gateway
// drops it from the callback, without guessing from the most recent PENDING
// row.
type TokenStash interface {
	Put(ctx context.Context, checkoutRef, token string, ttl time.Duration) error
	// Get returns domain.ErrNotFound when the ref is unknown or expired.
	Get(ctx context.Context, checkoutRef string) (string, error)
}
