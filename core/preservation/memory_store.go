package preservation

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	bySubject map[string][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySubject: map[string][]Event{}}
}

func (s *MemoryStore) Append(ctx context.Context, ev Event) error {
	if ev.Subject == "" {
		return ErrNoSubject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySubject[ev.Subject] = append(s.bySubject[ev.Subject], ev)
	return nil
}

func (s *MemoryStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.bySubject[subject]...), nil
}
