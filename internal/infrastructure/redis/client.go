package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient Redisクライアントを作成し、疎通を確認する
func NewRedisClient(ctx context.Context, host, port, pass string, db int) (*goredis.Client, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	if db < 0 {
		db = 0
	}
	addr := host + ":" + port

	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: pass, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗 (%s): %w", addr, err)
	}
	log.Infof("✅ Redis client initialized: %s (db=%d)", addr, db)
	return client, nil
}
