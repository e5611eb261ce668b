package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumiprep/session-service/internal/session"
)

// RedisProgressStore backs the engine's ProgressStore port with Redis.
// Snapshots carry a TTL so an abandoned attempt does not pin memory forever;
// every save refreshes it.
type RedisProgressStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisProgressStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisProgressStore {
	return &RedisProgressStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisProgressStore) SaveProgress(ctx context.Context, key string, snapshot []byte) error {
	return r.client.Set(ctx, key, snapshot, r.ttl).Err()
}

func (r *RedisProgressStore) LoadProgress(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrProgressNotFound
		}
		return nil, err
	}
	return data, nil
}

func (r *RedisProgressStore) DeleteProgress(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

var _ session.ProgressStore = (*RedisProgressStore)(nil)
