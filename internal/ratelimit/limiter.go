// Package ratelimit provides per-client rate limiting for HTTP requests.
// Two strategies are available: a sliding-window counter that tracks exact
// request timestamps per key, and a token bucket backed by golang.org/x/time.
// Both are in-memory and per-process; separate instances of the service keep
// independent counters. That is a known limitation, not a bug.
//
// The package includes HTTP middleware that sets standard rate limit
// response headers and answers denied requests with the service envelope.
package ratelimit

import "time"

// Limiter defines the rate limiting contract. Implementations must be safe
// for concurrent use: request handlers, Reset calls, and the background
// sweep all touch the same state.
type Limiter interface {
	// Allow checks whether a request identified by key should be allowed.
	// A denied request leaves no trace in the limiter's state. Returns
	// whether the request is allowed and rate information for populating
	// response headers.
	Allow(key string) (allowed bool, info Info)

	// Reset clears all recorded history for key. The next Allow call for
	// that key starts a fresh window.
	Reset(key string)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Requests left in the current window
	ResetAt    time.Time     // Approximate end of the current window
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}
