// Package redis keeps idempotency keys in Redis so retries across instances are recognised.
package redis

import (
	"context"
	"fmt"
	"time"

	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// IdempotencyStore claims keys with SETNX.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore uses the default 24h key lifetime when ttl is zero.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotencyKeyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

var _ portsrepo.IdempotencyStore = (*IdempotencyStore)(nil)

func (s *IdempotencyStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming idempotency key: %w", err)
	}
	return ok, nil
}

func (s *IdempotencyStore) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
