package app

import (
	"nic-dns/internal/common/cache"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/common/ratelimit"
	"nic-dns/internal/dnsapi"
)

func (app *App) initializeClient() error {
	logger := app.Logger.WithFields(logging.Field{Key: "component", Value: "dnsapi"})

	dispatcherOpts := []dnsapi.DispatcherOption{
		dnsapi.WithBaseURL(app.Config.BaseURL),
		dnsapi.WithHTTPClient(app.httpClient),
		dnsapi.WithLogger(logger),
	}

	if app.Config.RateLimitRPS > 0 {
		limitConfig := ratelimit.Config{
			Enabled:           true,
			RequestsPerSecond: app.Config.RateLimitRPS,
			BurstSize:         app.Config.RateLimitBurst,
		}

		var limiter ratelimit.Limiter
		var err error
		if app.RedisClient != nil {
			// Processes sharing a Redis token store share the request budget
			limiter, err = ratelimit.NewRedisLimiter(app.RedisClient, "nic-dns:"+app.Config.AppLogin, limitConfig)
		} else {
			limiter, err = ratelimit.NewLocalLimiter(limitConfig)
		}
		if err != nil {
			return err
		}
		dispatcherOpts = append(dispatcherOpts, dnsapi.WithRateLimiter(limiter))
	}

	app.Dispatcher = dnsapi.NewDispatcher(app.Manager, dispatcherOpts...)

	clientOpts := []dnsapi.ClientOption{
		dnsapi.WithDefaultService(app.Config.DefaultService),
		dnsapi.WithDefaultZone(app.Config.DefaultZone),
		dnsapi.WithClientLogger(logger),
	}
	if app.Config.CacheTTL > 0 {
		clientOpts = append(clientOpts, dnsapi.WithCache(
			cache.NewLocalCache(app.Config.CacheTTL, 2*app.Config.CacheTTL),
			app.Config.CacheTTL,
		))
	}

	app.Client = dnsapi.NewClient(app.Dispatcher, clientOpts...)
	return nil
}
