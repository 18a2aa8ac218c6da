// Package ratelimit throttles outgoing DNS-master API calls using
// golang.org/x/time/rate. NIC.RU rejects clients that burst too hard, so
// every dispatched request waits for a token first.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"nic-dns/internal/common/errors"
)

// Config represents rate limiter configuration
type Config struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// Validate validates the rate limiter configuration
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive, got %d", c.BurstSize)
	}
	return nil
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerSecond: 5,
		BurstSize:         10,
	}
}

// Limiter defines the rate limiting operations used by the dispatcher
type Limiter interface {
	Wait(ctx context.Context) error
	TryAcquire() bool
	Stats() map[string]interface{}
}

type localLimiter struct {
	config  Config
	limiter *rate.Limiter
}

// NewLocalLimiter creates an in-process token bucket limiter. A disabled
// config yields a limiter that never blocks.
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(err.Error())
	}

	limit := rate.Inf
	burst := 0
	if config.Enabled {
		limit = rate.Limit(config.RequestsPerSecond)
		burst = config.BurstSize
	}

	return &localLimiter{
		config:  config,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Wait blocks until a request can be made according to the rate limit
func (l *localLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.RateLimitError("dns-master api").WithContext("reason", err.Error())
	}
	return nil
}

// TryAcquire attempts to acquire a token without blocking
func (l *localLimiter) TryAcquire() bool {
	return l.limiter.Allow()
}

// Stats returns rate limiter statistics
func (l *localLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"enabled":             l.config.Enabled,
		"requests_per_second": l.config.RequestsPerSecond,
		"burst_size":          l.config.BurstSize,
		"available_tokens":    l.limiter.Tokens(),
	}
}
