package ratelimit

import (
	"fmt"

	"gatekeep/internal/models"
)

// New builds a limiter from configuration, selecting the strategy.
func New(cfg models.RateLimitConfig) (Limiter, error) {
	switch cfg.Strategy {
	case models.RateLimitStrategySliding:
		return NewSlidingLimiter(cfg.Requests, cfg.Window), nil
	case models.RateLimitStrategyBucket:
		cleanup := cfg.CleanupInterval
		if cleanup <= 0 {
			cleanup = cfg.Window
		}
		return NewBucketLimiter(cfg.Requests, cfg.Window, cfg.BurstSize, cleanup), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit strategy: %s", cfg.Strategy)
	}
}
