// Package keepalive renews the OAuth2 token on a cron schedule so a
// long-running deployment never lets its refresh token lapse.
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/common/validation"
	"nic-dns/internal/oauth2"
)

// DefaultSchedule renews well inside the default one hour token lifetime
const DefaultSchedule = "@every 30m"

// Renewer obtains a new token. *oauth2.Manager implements it.
type Renewer interface {
	Renew(ctx context.Context) (oauth2.Token, error)
}

// Locker coordinates renewals between processes sharing one token store.
// *locks.RedsyncLocker implements it.
type Locker interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Stats describes past and upcoming runs
type Stats struct {
	Runs      int       `json:"runs"`
	Skipped   int       `json:"skipped"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Next      time.Time `json:"next"`
}

// Runner renews the token on schedule
type Runner struct {
	renewer  Renewer
	spec     string
	schedule cron.Schedule
	locker   Locker
	lockKey  string
	lockTTL  time.Duration
	logger   logging.Logger
	now      func() time.Time

	mu    sync.RWMutex
	stats Stats
}

// Option configures a Runner
type Option func(*Runner)

// WithLocker makes a run skip when another process holds key
func WithLocker(locker Locker, key string, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		r.lockKey = key
		r.lockTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner parses spec (standard five-field cron or a descriptor such as
// "@every 30m") and returns a Runner calling renewer.
func NewRunner(renewer Renewer, spec string, opts ...Option) (*Runner, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := validation.CronParser.Parse(spec)
	if err != nil {
		return nil, errors.ConfigError("invalid keepalive schedule " + spec + ": " + err.Error())
	}

	r := &Runner{
		renewer:  renewer,
		spec:     spec,
		schedule: schedule,
		lockKey:  "nic-dns:keepalive",
		lockTTL:  time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.GetGlobalLogger()
	}
	return r, nil
}

// RunOnce renews the token unless another process holds the lock
func (r *Runner) RunOnce(ctx context.Context) error {
	if r.locker != nil {
		acquired, err := r.locker.AcquireLock(ctx, r.lockKey, r.lockTTL)
		if err != nil {
			r.record(err)
			return err
		}
		if !acquired {
			r.mu.Lock()
			r.stats.Skipped++
			r.mu.Unlock()
			r.logger.Debug("Keepalive skipped, lock held elsewhere", logging.Field{Key: "key", Value: r.lockKey})
			return nil
		}
		defer func() {
			if err := r.locker.ReleaseLock(ctx, r.lockKey); err != nil {
				r.logger.Warn("Failed to release keepalive lock", logging.Err(err))
			}
		}()
	}

	token, err := r.renewer.Renew(ctx)
	r.record(err)
	if err != nil {
		r.logger.Error("Keepalive renewal failed", err)
		return err
	}

	fields := []logging.Field{{Key: "runs", Value: r.Stats().Runs}}
	if !token.NoExpiry {
		fields = append(fields, logging.Field{Key: "expires_at", Value: token.ExpiresAt().Format(time.RFC3339)})
	}
	r.logger.Info("Token renewed", fields...)
	return nil
}

// Run renews on schedule until ctx is cancelled and waits for a running
// renewal to finish.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(validation.CronParser))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		_ = r.RunOnce(ctx)
	}))

	r.logger.Info("Keepalive started",
		logging.Field{Key: "schedule", Value: r.spec},
		logging.Field{Key: "next", Value: r.schedule.Next(r.now()).Format(time.RFC3339)},
	)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("Keepalive stopped")
	return nil
}

// Stats returns a snapshot of the run counters
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.stats
	s.Next = r.schedule.Next(r.now())
	return s
}

func (r *Runner) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Runs++
	r.stats.LastRun = r.now()
	if err != nil {
		r.stats.Failures++
		r.stats.LastError = err.Error()
	} else {
		r.stats.LastError = ""
	}
}
