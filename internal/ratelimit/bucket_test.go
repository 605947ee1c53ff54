package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBucketLimiter(t *testing.T) {
	limiter := NewBucketLimiter(60, time.Minute, 10, 5*time.Minute)
	defer limiter.Close()

	assert.NotNil(t, limiter)
}

func TestBucketLimiter_Allow_UnderLimit(t *testing.T) {
	limiter := NewBucketLimiter(60, time.Minute, 10, 5*time.Minute)
	defer limiter.Close()

	allowed, info := limiter.Allow("192.0.2.1")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.True(t, info.Remaining >= 0)
	assert.False(t, info.ResetAt.IsZero())
}

func TestBucketLimiter_Allow_ExceedsBurst(t *testing.T) {
	// Burst of 3, rate of 60/min -- 4th rapid request should be denied
	limiter := NewBucketLimiter(60, time.Minute, 3, 5*time.Minute)
	defer limiter.Close()

	key := "192.0.2.1"

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(key)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := limiter.Allow(key)
	assert.False(t, allowed)
	assert.True(t, info.RetryAfter > 0)
}

func TestBucketLimiter_Reset(t *testing.T) {
	limiter := NewBucketLimiter(60, time.Minute, 2, 5*time.Minute)
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		limiter.Allow("key1")
	}
	allowed, _ := limiter.Allow("key1")
	require.False(t, allowed)

	limiter.Reset("key1")

	allowed, _ = limiter.Allow("key1")
	assert.True(t, allowed, "reset should restore a full burst")
}

func TestBucketLimiter_Cleanup(t *testing.T) {
	limiter := NewBucketLimiter(60, time.Minute, 10, 50*time.Millisecond)
	defer limiter.Close()

	limiter.Allow("ephemeral-key")

	limiter.mu.Lock()
	_, exists := limiter.entries["ephemeral-key"]
	limiter.mu.Unlock()
	require.True(t, exists, "key should exist before cleanup")

	// Wait for cleanup to run (2x cleanup interval for the staleness check)
	time.Sleep(200 * time.Millisecond)

	limiter.mu.Lock()
	_, exists = limiter.entries["ephemeral-key"]
	limiter.mu.Unlock()
	assert.False(t, exists, "key should be cleaned up after inactivity")
}

func TestBucketLimiter_Close(t *testing.T) {
	limiter := NewBucketLimiter(60, time.Minute, 10, 100*time.Millisecond)
	limiter.Close()
	// Should not panic on double close
	limiter.Close()
}
