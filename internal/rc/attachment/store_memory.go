package attachment

import (
	"bytes"
	"context"
	"io"
	"sync"

	"rctrack/pkg/platform/sentinel"
)

// InMemory keeps attachments in a map. Used by tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[string][]byte)}
}

func (s *InMemory) Put(_ context.Context, name string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()
	return nil
}

func (s *InMemory) Get(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[name]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *InMemory) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
	return nil
}

// Has reports whether name is stored.
func (s *InMemory) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[name]
	return ok
}

// Len returns the number of stored objects.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
