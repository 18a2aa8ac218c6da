package ratelimit

import (
	"context"
	"math"
	"time"

	"nic-dns/internal/common/errors"
)

// WindowCounter counts requests per fixed window. *redis.Client implements it.
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// redisLimiter shares one request budget between every process that uses
// the same key. It admits BurstSize requests per BurstSize/RequestsPerSecond
// seconds, which keeps the long-run rate of the local limiter.
type redisLimiter struct {
	config  Config
	counter WindowCounter
	key     string
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRedisLimiter creates a limiter counting in Redis under key. A disabled
// config yields a limiter that never blocks.
func NewRedisLimiter(counter WindowCounter, key string, config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	if !config.Enabled {
		return NewLocalLimiter(config)
	}
	if counter == nil {
		return nil, errors.ConfigError("rate limit counter is required")
	}

	seconds := float64(config.BurstSize) / config.RequestsPerSecond
	window := time.Duration(math.Ceil(seconds * float64(time.Second)))
	if window < time.Millisecond {
		window = time.Millisecond
	}

	return &redisLimiter{
		config:  config,
		counter: counter,
		key:     "rate_limit:" + key,
		limit:   config.BurstSize,
		window:  window,
		now:     time.Now,
	}, nil
}

// Wait blocks until the shared window admits the request
func (l *redisLimiter) Wait(ctx context.Context) error {
	for {
		allowed, _, err := l.counter.CheckRateLimit(ctx, l.key, l.limit, l.window)
		if err != nil {
			return errors.TransportError("failed to check rate limit", err)
		}
		if allowed {
			return nil
		}

		wait := l.window - time.Duration(l.now().UnixNano()%int64(l.window))
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return errors.RateLimitError("dns-master api").WithContext("reason", "window would not reset before the deadline")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.RateLimitError("dns-master api").WithContext("reason", ctx.Err().Error())
		case <-timer.C:
		}
	}
}

// TryAcquire reports whether the current window still has room
func (l *redisLimiter) TryAcquire() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allowed, _, err := l.counter.CheckRateLimit(ctx, l.key, l.limit, l.window)
	return err == nil && allowed
}

func (l *redisLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"enabled":     l.config.Enabled,
		"distributed": true,
		"limit":       l.limit,
		"window":      l.window.String(),
	}
}
