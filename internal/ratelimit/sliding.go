package ratelimit

import (
	"sync"
	"time"
)

// SlidingLimiter is an in-memory sliding-window rate limiter. Each key maps
// to an ordered slice of request timestamps; a request is allowed only while
// the count of timestamps inside the trailing window is below the limit, and
// the timestamp is recorded only when the request is allowed.
//
// A background goroutine sweeps the map once per window length, dropping
// expired timestamps and evicting keys with no remaining history so memory
// stays bounded by recent traffic.
type SlidingLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string][]time.Time
	done    chan struct{}
	closed  bool
}

// NewSlidingLimiter creates a sliding-window limiter allowing limit requests
// per window for each key. It starts the background sweep goroutine.
func NewSlidingLimiter(limit int, window time.Duration) *SlidingLimiter {
	s := &SlidingLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Allow checks whether a request from the given key should be allowed.
func (s *SlidingLimiter) Allow(key string) (bool, Info) {
	now := time.Now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	valid := trimExpired(s.entries[key], cutoff)

	allowed := len(valid) < s.limit
	if allowed {
		valid = append(valid, now)
	}
	if len(valid) == 0 {
		delete(s.entries, key)
	} else {
		s.entries[key] = valid
	}

	info := Info{
		Limit:     s.limit,
		Remaining: s.limit - len(valid),
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}

	// ResetAt approximates when the window rolls over: the oldest retained
	// timestamp plus the window length, not the exact instant each slot frees.
	if len(valid) > 0 {
		info.ResetAt = valid[0].Add(s.window)
	} else {
		info.ResetAt = now.Add(s.window)
	}

	if !allowed {
		info.RetryAfter = info.ResetAt.Sub(now)
		if info.RetryAfter < 0 {
			info.RetryAfter = 0
		}
	}

	return allowed, info
}

// Reset clears all history for the key immediately.
func (s *SlidingLimiter) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Close stops the background sweep goroutine. Safe to call more than once.
func (s *SlidingLimiter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// sweepLoop re-filters every key once per window length.
func (s *SlidingLimiter) sweepLoop() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired timestamps and removes empty keys.
func (s *SlidingLimiter) sweep() {
	cutoff := time.Now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, stamps := range s.entries {
		valid := trimExpired(stamps, cutoff)
		if len(valid) == 0 {
			delete(s.entries, key)
		} else {
			s.entries[key] = valid
		}
	}
}

// trimExpired returns the suffix of stamps newer than cutoff. Timestamps are
// appended in order, so a single scan for the first live entry suffices.
func trimExpired(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	// Copy the survivors so the backing array of the old slice can be freed.
	valid := make([]time.Time, len(stamps)-i)
	copy(valid, stamps[i:])
	return valid
}
