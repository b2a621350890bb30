package repository

import (
	"context"
	"sync"
	"time"

	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/metrics"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheRepository プロセス内のTTL付きキャッシュ
type MemoryCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository 新しいインメモリキャッシュを作成
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (r *MemoryCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok {
		metrics.CacheRequestsTotal.WithLabelValues("memory", "miss").Inc()
		return nil, repository.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		r.mu.Lock()
		if cur, ok := r.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		metrics.CacheRequestsTotal.WithLabelValues("memory", "expired").Inc()
		return nil, repository.ErrCacheMiss
	}

	metrics.CacheRequestsTotal.WithLabelValues("memory", "hit").Inc()
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set ttl が0以下なら期限なし
func (r *MemoryCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
	return nil
}

func (r *MemoryCacheRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// Purge 期限切れのエントリを掃除し、削除件数を返す
func (r *MemoryCacheRepository) Purge() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(r.entries, k)
			n++
		}
	}
	return n
}
