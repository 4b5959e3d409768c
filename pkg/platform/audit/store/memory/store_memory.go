package memory

import (
	"context"
	"slices"
	"sync"

	"rctrack/pkg/domain"
	audit "rctrack/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.UserID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.UserID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.UserID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

// ListByUser returns a user's events in emission order.
func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListRecent returns the most recent N events across all users, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	var all []audit.Event
	for _, userEvents := range s.events {
		all = append(all, userEvents...)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(all, func(a, b audit.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
