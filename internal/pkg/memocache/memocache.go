// Package memocache provides a process-wide whole-value cache with a
// time-based revalidation window. The cached value is replaced
// wholesale on refresh; concurrent readers never observe a partial
// update. The clock is injectable for tests.
package memocache

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Store caches one value of type T for a fixed TTL and refreshes it
// through the supplied fetch function when stale.
type Store[T any] struct {
	ttl   time.Duration
	clock Clock

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
	// inflight is non-nil while a refresh runs and is closed when it
	// finishes. The lock is never held across the fetch itself.
	inflight chan struct{}
}

// New creates a store with the given TTL. A nil clock uses time.Now.
func New[T any](ttl time.Duration, clock Clock) *Store[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Store[T]{ttl: ttl, clock: clock}
}

// GetOrRefresh returns the cached value when fresh, otherwise runs
// fetch and replaces the value wholesale. Only one caller fetches at a
// time: concurrent callers get the stale value immediately when one
// exists, or wait for the in-flight refresh when the cache is cold.
// When fetch fails and a stale value exists, the stale value is
// returned alongside the error so callers can choose to keep serving
// it.
func (s *Store[T]) GetOrRefresh(ctx context.Context, fetch func(ctx context.Context) (T, error)) (T, error) {
	for {
		s.mu.Lock()
		if s.valid && s.clock().Sub(s.fetchedAt) < s.ttl {
			v := s.value
			s.mu.Unlock()
			return v, nil
		}

		if done := s.inflight; done != nil {
			if s.valid {
				stale := s.value
				s.mu.Unlock()
				return stale, nil
			}
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
			continue
		}

		done := make(chan struct{})
		s.inflight = done
		stale := s.value
		hasStale := s.valid
		s.mu.Unlock()

		v, err := fetch(ctx)

		s.mu.Lock()
		s.inflight = nil
		if err == nil {
			s.value = v
			s.fetchedAt = s.clock()
			s.valid = true
		}
		s.mu.Unlock()
		close(done)

		if err != nil {
			if hasStale {
				return stale, err
			}
			var zero T
			return zero, err
		}
		return v, nil
	}
}

// Invalidate discards the cached value so the next read refetches.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.valid = false
}
