package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketEntry holds a token bucket and its last access time for cleanup.
type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// BucketLimiter is an in-memory token-bucket limiter backed by
// golang.org/x/time/rate. Each unique key gets its own bucket refilled at
// limit-per-window with the configured burst. Unlike the sliding window it
// tolerates short bursts above the steady rate, which suits API clients with
// spiky access patterns. A background goroutine periodically evicts entries
// that have not been accessed within 2x the cleanup interval.
type BucketLimiter struct {
	rate            rate.Limit
	burst           int
	limit           int // requests per window, for Info.Limit
	cleanupInterval time.Duration

	mu      sync.Mutex
	entries map[string]*bucketEntry
	done    chan struct{}
	closed  bool
}

// NewBucketLimiter creates a token-bucket limiter allowing limit requests per
// window with the given burst size and cleanup interval. It starts a
// background goroutine for eviction.
func NewBucketLimiter(limit int, window time.Duration, burst int, cleanupInterval time.Duration) *BucketLimiter {
	b := &BucketLimiter{
		rate:            rate.Every(window / time.Duration(limit)),
		burst:           burst,
		limit:           limit,
		cleanupInterval: cleanupInterval,
		entries:         make(map[string]*bucketEntry),
		done:            make(chan struct{}),
	}
	go b.cleanup()
	return b
}

// Allow checks whether a request from the given key should be allowed.
func (b *BucketLimiter) Allow(key string) (bool, Info) {
	b.mu.Lock()
	e, exists := b.entries[key]
	if !exists {
		e = &bucketEntry{
			limiter: rate.NewLimiter(b.rate, b.burst),
		}
		b.entries[key] = e
	}
	e.lastSeen = time.Now()
	b.mu.Unlock()

	allowed := e.limiter.Allow()

	now := time.Now()
	tokens := e.limiter.TokensAt(now)
	remaining := int(math.Max(0, math.Floor(tokens)))

	// Reset time: how long until the bucket is full again
	tokensNeeded := float64(b.burst) - tokens
	var resetAt time.Time
	if tokensNeeded > 0 {
		resetDuration := time.Duration(tokensNeeded / float64(b.rate) * float64(time.Second))
		resetAt = now.Add(resetDuration)
	} else {
		resetAt = now
	}

	info := Info{
		Limit:     b.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}

	if !allowed {
		// Time until the next token becomes available
		reservation := e.limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()
		info.RetryAfter = delay
	}

	return allowed, info
}

// Reset discards the key's bucket; the next Allow starts with a full burst.
func (b *BucketLimiter) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}

// Close stops the background cleanup goroutine.
func (b *BucketLimiter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

// cleanup periodically evicts entries that have not been accessed within
// 2x the cleanup interval.
func (b *BucketLimiter) cleanup() {
	ticker := time.NewTicker(b.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.evictStale()
		}
	}
}

// evictStale removes entries older than 2x the cleanup interval.
func (b *BucketLimiter) evictStale() {
	cutoff := time.Now().Add(-2 * b.cleanupInterval)
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, e := range b.entries {
		if e.lastSeen.Before(cutoff) {
			delete(b.entries, key)
		}
	}
}
