package repository

import (
	"context"
	"time"
)

// CacheRepository TTL付きのキーバリューキャッシュ
type CacheRepository interface {
	// Get 値を取得する。未登録または期限切れなら ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
