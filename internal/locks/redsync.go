// Package locks provides distributed locks on top of go-redsync so that only
// one process sharing a token store renews the token at a time.
package locks

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/redis"
)

// RedsyncLocker hands out non-blocking Redlock locks and keeps held locks
// alive until they are released.
type RedsyncLocker struct {
	redsync *redsync.Redsync
	logger  logging.Logger

	mu   sync.Mutex
	held map[string]*heldLock
}

type heldLock struct {
	mutex  *redsync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedsyncLocker creates a locker using redisClient for coordination
func NewRedsyncLocker(redisClient *redis.Client, logger logging.Logger) (*RedsyncLocker, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())
	return &RedsyncLocker{
		redsync: redsync.New(pool),
		logger:  logger,
		held:    make(map[string]*heldLock),
	}, nil
}

// AcquireLock tries once to take key. It returns false without an error
// when another holder has it. A held lock is extended every third of
// expiration until ReleaseLock.
func (l *RedsyncLocker) AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return false, nil
	}

	mutex := l.redsync.NewMutex("lock:"+key, redsync.WithExpiry(expiration), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		var redisErr *redsync.RedisError
		if stderrors.As(err, &redisErr) {
			return false, errors.TransportError("failed to acquire distributed lock", err)
		}
		return false, nil
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	lock := &heldLock{mutex: mutex, cancel: cancel, done: make(chan struct{})}
	l.held[key] = lock

	go l.renew(renewCtx, key, lock, expiration)
	return true, nil
}

// ReleaseLock stops renewing key and unlocks it. Releasing a lock that is
// not held is a no-op.
func (l *RedsyncLocker) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	lock, ok := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	lock.cancel()
	<-lock.done

	if _, err := lock.mutex.UnlockContext(ctx); err != nil {
		return errors.TransportError("failed to release distributed lock", err)
	}
	return nil
}

// Close releases every held lock
func (l *RedsyncLocker) Close() error {
	l.mu.Lock()
	keys := make([]string, 0, len(l.held))
	for key := range l.held {
		keys = append(keys, key)
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	for _, key := range keys {
		if err := l.ReleaseLock(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *RedsyncLocker) renew(ctx context.Context, key string, lock *heldLock, expiration time.Duration) {
	defer close(lock.done)

	interval := expiration / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			ok, err := lock.mutex.ExtendContext(extendCtx)
			cancel()
			if err != nil || !ok {
				l.logger.Warn("Lost distributed lock", logging.Field{Key: "key", Value: key})
				return
			}
		}
	}
}
