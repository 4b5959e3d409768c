package store

import (
	"context"
	"sync"
	"time"

	"rctrack/internal/ratelimit/models"
)

// InMemory keeps a sliding window of request timestamps per key. Counters are
// per process; a multi-replica deployment limits each replica independently.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records one request for key when the policy still has room.
func (s *InMemory) Allow(_ context.Context, key string, policy models.Policy) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.windowFor(key, policy.Window)
	sw.evict(now)

	if len(sw.timestamps) < policy.Limit {
		sw.timestamps = append(sw.timestamps, now)
		return &models.Result{
			Allowed:   true,
			Limit:     policy.Limit,
			Remaining: policy.Limit - len(sw.timestamps),
			ResetAt:   sw.timestamps[0].Add(policy.Window),
		}, nil
	}

	resetAt := now.Add(policy.Window)
	if len(sw.timestamps) > 0 {
		resetAt = sw.timestamps[0].Add(policy.Window)
	}
	retry := int(resetAt.Sub(now).Seconds())
	if retry < 1 {
		retry = 1
	}
	return &models.Result{
		Allowed:    false,
		Limit:      policy.Limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}, nil
}

// Sweep drops windows with no live timestamps and returns how many were removed.
func (s *InMemory) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, sw := range s.windows {
		sw.evict(now)
		if len(sw.timestamps) == 0 {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *InMemory) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (sw *slidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// windowFor must be called while holding s.mu.
func (s *InMemory) windowFor(key string, window time.Duration) *slidingWindow {
	if sw := s.windows[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{window: window}
	s.windows[key] = sw
	return sw
}
