package memory

import (
	"context"
	"sync"
	"time"

	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
)

// IdempotencyStore keeps claimed keys in process memory until they expire.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]time.Time
}

// NewIdempotencyStore returns a store whose keys expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, keys: make(map[string]time.Time)}
}

var _ portsrepo.IdempotencyStore = (*IdempotencyStore)(nil)

func (s *IdempotencyStore) SetIdempotency(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(s.ttl)
	return true, nil
}

func (s *IdempotencyStore) ReleaseIdempotency(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
