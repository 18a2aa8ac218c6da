package app

import (
	"context"
	"fmt"

	commonhttp "nic-dns/internal/common/http"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/oauth2"
)

func (app *App) initializeOAuth(ctx context.Context) error {
	if app.httpClient == nil {
		app.httpClient = commonhttp.NewHTTPClientWithTimeout(app.Config.HTTPTimeout)
	}

	opts := []oauth2.Option{
		oauth2.WithBaseURL(app.Config.BaseURL),
		oauth2.WithHTTPClient(app.httpClient),
		oauth2.WithScope(app.Config.Scope),
		oauth2.WithOffline(app.Config.Offline),
		oauth2.WithExpirySkew(app.Config.ExpirySkew),
		oauth2.WithLogger(app.Logger.WithFields(logging.Field{Key: "component", Value: "oauth2"})),
	}

	if app.Config.HasUserCredentials() {
		opts = append(opts, oauth2.WithUserCredentials(app.Config.Username, app.Config.Password))
	}

	if app.TokenStore != nil {
		opts = append(opts, oauth2.WithStorage(app.TokenStore))

		token, err := app.TokenStore.LoadToken(ctx)
		if err != nil {
			// A corrupt cache falls back to a fresh login
			app.Logger.Warn("Ignoring unreadable persisted token", logging.Err(err))
		} else if token != nil {
			opts = append(opts, oauth2.WithToken(*token))
			app.Logger.Debug("Loaded persisted token")
		}
	}

	manager, err := oauth2.NewManager(oauth2.Credentials{
		ClientID:     app.Config.AppLogin,
		ClientSecret: app.Config.AppPassword,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize OAuth2 manager: %w", err)
	}

	app.Manager = manager
	return nil
}
