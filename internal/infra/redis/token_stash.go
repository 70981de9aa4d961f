package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.TokenStash = (*TokenStash)(nil)

const stashPrefix = "checkout:token:"

// TokenStash keeps a short-lived server-side copy of each checkout's
// correlation token, keyed by the checkout reference the browser carries.
type TokenStash struct {
	cli *redis.Client
}

func NewTokenStash(c *Client) *TokenStash {
	return &TokenStash{cli: c.cli}
}

func (s *TokenStash) Put(ctx context.Context, checkoutRef, token string, ttl time.Duration) error {
	if checkoutRef == "" || token == "" {
		return domain.ErrInvalidArgument
	}
	return s.cli.Set(ctx, stashPrefix+checkoutRef, token, ttl).Err()
}

func (s *TokenStash) Get(ctx context.Context, checkoutRef string) (string, error) {
	v, err := s.cli.Get(ctx, stashPrefix+checkoutRef).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return v, nil
}
