package app

import (
	"nic-dns/internal/common/logging"
	"nic-dns/internal/redis"
)

func (app *App) initializeRedis() error {
	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.onCleanup(redisClient.Close)
	app.Logger.Info("Token store: Redis", logging.Field{Key: "address", Value: app.Config.RedisAddress})
	app.Logger.Info("Distributed keepalive lock: Enabled")
	return nil
}
