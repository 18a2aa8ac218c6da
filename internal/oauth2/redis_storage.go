package oauth2

import (
	"context"
	stderrors "errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisInterface defines the Redis operations needed for token storage
type RedisInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisTokenStorage shares one token between several hosts through Redis.
// The key expires a while after the refresh token is expected to be useless.
type RedisTokenStorage struct {
	client RedisInterface
	key    string
	codec  Codec
	maxTTL time.Duration
	now    func() time.Time
}

// NewRedisTokenStorage creates a Redis-backed store under "oauth2:token:<key>"
func NewRedisTokenStorage(client RedisInterface, key string, opts ...StorageOption) *RedisTokenStorage {
	o := applyStorageOptions(opts)
	return &RedisTokenStorage{
		client: client,
		key:    "oauth2:token:" + key,
		codec:  o.codec,
		maxTTL: 30 * 24 * time.Hour,
		now:    time.Now,
	}
}

// SaveToken stores the token with TTL min(expiry + 24h, 30 days).
func (s *RedisTokenStorage) SaveToken(ctx context.Context, token *Token) error {
	data, err := s.codec.Encode(token)
	if err != nil {
		return err
	}

	ttl := s.maxTTL
	if !token.NoExpiry {
		tokenTTL := token.ExpiresAt().Sub(s.now()) + 24*time.Hour
		if tokenTTL > 0 && tokenTTL < ttl {
			ttl = tokenTTL
		}
	}

	return s.client.Set(ctx, s.key, data, ttl)
}

func (s *RedisTokenStorage) LoadToken(ctx context.Context) (*Token, error) {
	data, err := s.client.Get(ctx, s.key)
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if data == "" {
		return nil, nil
	}
	return s.codec.Decode(data)
}

func (s *RedisTokenStorage) DeleteToken(ctx context.Context) error {
	return s.client.Delete(ctx, s.key)
}
