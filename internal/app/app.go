// Package app wires configuration, token persistence, the token manager and
// the DNS-master client together.
package app

import (
	"context"
	"net/http"

	"nic-dns/internal/common/logging"
	"nic-dns/internal/config"
	"nic-dns/internal/dnsapi"
	"nic-dns/internal/oauth2"
	"nic-dns/internal/redis"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	TokenStore  oauth2.TokenStorage
	Manager     *oauth2.Manager
	Dispatcher  *dnsapi.Dispatcher
	Client      *dnsapi.Client
	RedisClient *redis.Client
	Logger      logging.Logger

	httpClient *http.Client
	closers    []func() error
}

// Option adjusts how an App is built
type Option func(*App)

// WithHTTPClient replaces the HTTP client used for token and API requests
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}

// New creates a new application instance with all dependencies. The
// configuration must already be validated.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initializeTokenStore(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeOAuth(ctx); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeClient(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.Logger.Warn("Failed to release resource", logging.Err(err))
		}
	}
	app.closers = nil
}

func (app *App) onCleanup(fn func() error) {
	app.closers = append(app.closers, fn)
}
