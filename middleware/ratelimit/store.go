package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store is a process-local counter-with-reset limiter. It is a
// defense-in-depth layer only: entries are not shared across server
// instances, so any security-sensitive limit must also be enforced
// against the durable store.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	done chan struct{}
	once sync.Once
}

type entry struct {
	count   int
	resetAt time.Time
}

func NewStore(sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	s := &Store{
		data: make(map[string]*entry),
		done: make(chan struct{}),
	}

	go s.sweep(sweepInterval)

	return s
}

// Check counts one request against key's window and reports whether it
// is allowed. Windows are a counter with a hard reset timestamp, so a
// burst straddling a boundary can briefly see up to 2x the limit; that
// trade keeps Check O(1).
func (s *Store) Check(key string, window time.Duration, maxRequests int) Result {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{resetAt: now.Add(window)}
		s.data[key] = e
	}

	if e.count >= maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: maxRequests - e.count,
		ResetAt:   e.resetAt,
	}
}

// Reset forgets key entirely.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Stop ends the background sweep.
func (s *Store) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.data {
				if now.After(e.resetAt) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}
