package locks

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps locks in process memory. It only guards phases run by the same process.
type MemoryStore struct {
	mu    sync.Mutex
	held  map[string]Lock
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{held: map[string]Lock{}, clock: time.Now}
}

func (s *MemoryStore) Acquire(_ context.Context, resource, owner string, ttl time.Duration) (*Lock, bool, error) {
	resource, owner = strings.TrimSpace(resource), strings.TrimSpace(owner)
	if resource == "" || owner == "" {
		return nil, false, errMissingArgs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if cur, ok := s.live(resource, now); ok && cur.Owner != owner {
		return &cur, false, nil
	}
	lock := Lock{Resource: resource, Owner: owner, ExpiresAt: now.Add(normalizeTTL(ttl)).UTC()}
	s.held[resource] = lock
	return &lock, true, nil
}

func (s *MemoryStore) Release(_ context.Context, resource, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.held[resource]; !ok || cur.Owner != owner {
		return false, nil
	}
	delete(s.held, resource)
	return true, nil
}

func (s *MemoryStore) Holder(_ context.Context, resource string) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.live(resource, s.clock())
	if !ok {
		return nil, nil
	}
	return &cur, nil
}

func (s *MemoryStore) live(resource string, now time.Time) (Lock, bool) {
	cur, ok := s.held[resource]
	if !ok {
		return Lock{}, false
	}
	if !now.Before(cur.ExpiresAt) {
		delete(s.held, resource)
		return Lock{}, false
	}
	return cur, true
}
