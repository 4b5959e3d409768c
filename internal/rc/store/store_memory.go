package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
	"rctrack/pkg/platform/sentinel"
)

// Sentinel errors re-exported for callers that only import this package.
var (
	ErrNotFound              = sentinel.ErrNotFound
	ErrDuplicateRegistration = sentinel.ErrAlreadyUsed
)

// InMemory is a process-local entry repository used when no database is configured
// and in tests.
type InMemory struct {
	mu      sync.RWMutex
	entries map[domain.EntryID]*memEntry
	regNos  map[string]domain.EntryID
	seq     uint64
}

type memEntry struct {
	entry models.Entry
	seq   uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[domain.EntryID]*memEntry),
		regNos:  make(map[string]domain.EntryID),
	}
}

func (s *InMemory) Create(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NormalizeRegNo(entry.VehicleRegNo)
	if _, taken := s.regNos[key]; taken {
		return fmt.Errorf("registration %s: %w", key, ErrDuplicateRegistration)
	}
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s: %w", entry.ID, sentinel.ErrAlreadyUsed)
	}
	s.seq++
	s.entries[entry.ID] = &memEntry{entry: clone(entry), seq: s.seq}
	s.regNos[key] = entry.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e := clone(&m.entry)
	return &e, nil
}

// FindAll returns matching entries, newest first. Entries created at the same
// instant keep reverse insertion order.
func (s *InMemory) FindAll(_ context.Context, filter models.Filter) ([]*models.Entry, error) {
	s.mu.RLock()
	matched := make([]*memEntry, 0, len(s.entries))
	for _, m := range s.entries {
		if filter.Matches(&m.entry) {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*models.Entry, len(matched))
	for i, m := range matched {
		e := clone(&m.entry)
		out[i] = &e
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *InMemory) Update(_ context.Context, id domain.EntryID, patch models.Patch) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	oldKey := models.NormalizeRegNo(m.entry.VehicleRegNo)
	if patch.VehicleRegNo != nil {
		newKey := models.NormalizeRegNo(*patch.VehicleRegNo)
		if owner, taken := s.regNos[newKey]; taken && owner != id {
			return nil, fmt.Errorf("registration %s: %w", newKey, ErrDuplicateRegistration)
		}
	}

	m.entry.Apply(patch)
	newKey := models.NormalizeRegNo(m.entry.VehicleRegNo)
	if newKey != oldKey {
		delete(s.regNos, oldKey)
		s.regNos[newKey] = id
	}
	e := clone(&m.entry)
	return &e, nil
}

func (s *InMemory) Delete(_ context.Context, id domain.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.regNos, models.NormalizeRegNo(m.entry.VehicleRegNo))
	delete(s.entries, id)
	return nil
}

func clone(e *models.Entry) models.Entry {
	c := *e
	if e.PDFURL != nil {
		url := *e.PDFURL
		c.PDFURL = &url
	}
	return c
}
