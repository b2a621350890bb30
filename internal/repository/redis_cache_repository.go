package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/metrics"
)

const redisKeyPrefix = "fobimap:"

// RedisCacheRepository Redisを使ったTTL付きキャッシュ
type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(client *redis.Client) repository.CacheRepository {
	return &RedisCacheRepository{client: client}
}

func (r *RedisCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequestsTotal.WithLabelValues("redis", "miss").Inc()
		return nil, repository.ErrCacheMiss
	}
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("redis", "error").Inc()
		return nil, fmt.Errorf("Redisからの取得失敗: %w", err)
	}
	metrics.CacheRequestsTotal.WithLabelValues("redis", "hit").Inc()
	return b, nil
}

func (r *RedisCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("Redisへの保存失敗: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("Redisからの削除失敗: %w", err)
	}
	return nil
}
