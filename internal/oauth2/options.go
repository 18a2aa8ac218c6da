package oauth2

import (
	"context"
	"strings"
	"time"

	"nic-dns/internal/circuitbreaker"
	commonhttp "nic-dns/internal/common/http"
	"nic-dns/internal/common/logging"
)

// Option configures a Manager
type Option func(*Manager)

// WithTokenURL overrides the token endpoint
func WithTokenURL(tokenURL string) Option {
	return func(m *Manager) {
		m.tokenURL = tokenURL
	}
}

// WithBaseURL points the manager at <baseURL>/oauth/token
func WithBaseURL(baseURL string) Option {
	return WithTokenURL(strings.TrimRight(baseURL, "/") + "/oauth/token")
}

// WithHTTPClient sets the transport used for token requests
func WithHTTPClient(client commonhttp.Doer) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithCircuitBreaker replaces the default token endpoint breaker
func WithCircuitBreaker(cb *circuitbreaker.GoBreakerAdapter) Option {
	return func(m *Manager) {
		m.circuitBreaker = cb
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithExpirySkew sets how early EnsureValid treats a token as expired
func WithExpirySkew(skew time.Duration) Option {
	return func(m *Manager) {
		m.skew = skew
	}
}

// WithMissingExpiryLifetime sets the lifetime given to tokens granted
// without expires_in. The default is NeverExpires.
func WithMissingExpiryLifetime(lifetime time.Duration) Option {
	return func(m *Manager) {
		m.missingExpiry = lifetime
	}
}

// WithScope sets the requested scope. An empty scope is not sent.
func WithScope(scope string) Option {
	return func(m *Manager) {
		m.scope = scope
	}
}

// WithOffline sets the requested token lifetime in seconds. Zero is not sent.
func WithOffline(seconds int) Option {
	return func(m *Manager) {
		m.offline = seconds
	}
}

// WithToken seeds the manager with a previously persisted token
func WithToken(token Token) Option {
	return func(m *Manager) {
		t := token
		m.token = &t
	}
}

// WithUserCredentials caches account credentials so an expired refresh
// token can be replaced by a new password grant.
func WithUserCredentials(username, password string) Option {
	return func(m *Manager) {
		m.username = username
		m.password = password
	}
}

// WithTokenUpdater registers the persistence callback
func WithTokenUpdater(updater TokenUpdater) Option {
	return func(m *Manager) {
		m.updater = updater
	}
}

// WithTokenClearer registers a callback run whenever the token is dropped
func WithTokenClearer(clearer TokenClearer) Option {
	return func(m *Manager) {
		m.clearer = clearer
	}
}

// WithStorage persists every new token to storage and deletes it when the
// token is dropped
func WithStorage(storage TokenStorage) Option {
	return func(m *Manager) {
		m.updater = func(ctx context.Context, token Token) error {
			return storage.SaveToken(ctx, &token)
		}
		m.clearer = storage.DeleteToken
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}
