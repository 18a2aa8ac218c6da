package app

import (
	"fmt"

	"nic-dns/internal/common/logging"
	"nic-dns/internal/config"
	"nic-dns/internal/crypto"
	"nic-dns/internal/oauth2"
	"nic-dns/internal/storage/postgres"
	"nic-dns/internal/storage/sqlite"
)

func (app *App) initializeTokenStore() error {
	var opts []oauth2.StorageOption
	if app.Config.EncryptionKey != "" {
		encryptor, err := crypto.NewEncryptor(app.Config.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize token encryption: %w", err)
		}
		opts = append(opts, oauth2.WithCodec(oauth2.EncryptedCodec{Encryptor: encryptor}))
		app.Logger.Info("Token encryption: Enabled")
	}

	switch app.Config.TokenStore {
	case config.StoreFile:
		app.Logger.Info("Token store: file", logging.Field{Key: "path", Value: app.Config.TokenFile})
		app.TokenStore = oauth2.NewFileTokenStorage(app.Config.TokenFile, opts...)

	case config.StoreSQLite:
		adapter, err := sqlite.NewAdapter(&sqlite.Config{DatabasePath: app.Config.DatabasePath})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		app.onCleanup(adapter.Close)
		app.Logger.Info("Token store: SQLite", logging.Field{Key: "path", Value: app.Config.DatabasePath})
		app.TokenStore = oauth2.NewDBTokenStorage(adapter, app.Config.TokenKey, opts...)

	case config.StorePostgres:
		adapter, err := postgres.NewAdapter(&postgres.Config{
			Host:     app.Config.PostgresHost,
			Port:     app.Config.PostgresPort,
			Database: app.Config.PostgresDB,
			Username: app.Config.PostgresUser,
			Password: app.Config.PostgresPassword,
			SSLMode:  app.Config.PostgresSSLMode,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		app.onCleanup(adapter.Close)
		app.Logger.Info("Token store: PostgreSQL",
			logging.Field{Key: "host", Value: app.Config.PostgresHost},
			logging.Field{Key: "port", Value: app.Config.PostgresPort},
			logging.Field{Key: "database", Value: app.Config.PostgresDB},
		)
		app.TokenStore = oauth2.NewDBTokenStorage(adapter, app.Config.TokenKey, opts...)

	case config.StoreRedis:
		if err := app.initializeRedis(); err != nil {
			return err
		}
		app.TokenStore = oauth2.NewRedisTokenStorage(app.RedisClient, app.Config.TokenKey, opts...)

	case config.StoreNone:
		app.Logger.Info("Token store: none, tokens live for this process only")

	default:
		return fmt.Errorf("unknown token store %q", app.Config.TokenStore)
	}

	return nil
}
