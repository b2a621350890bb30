package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
)

// fakeRecords IDごとの失敗回数を指定できる観測詳細リポジトリ
type fakeRecords struct {
	mu       sync.Mutex
	attempts map[string]int
	failures map[string]int // 先頭から何回失敗させるか（-1 は常に失敗）
	missing  map[string]bool
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		attempts: make(map[string]int),
		failures: make(map[string]int),
		missing:  make(map[string]bool),
	}
}

func (f *fakeRecords) FetchRecordDetail(ctx context.Context, id string) (*model.ObservationRecord, error) {
	f.mu.Lock()
	f.attempts[id]++
	n := f.attempts[id]
	fail := f.failures[id]
	missing := f.missing[id]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if missing {
		return nil, fmt.Errorf("id=%s: %w", id, repository.ErrNotFound)
	}
	if fail < 0 || n <= fail {
		return nil, errors.New("temporary failure")
	}
	return &model.ObservationRecord{ID: id, Source: model.SourceFobi, ScientificName: "Passer montanus"}, nil
}

func (f *fakeRecords) attemptsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

func (f *fakeRecords) totalAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.attempts {
		total += n
	}
	return total
}

// fakeCache 期限を見ないマップだけのキャッシュ
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakeGeocoder 呼び出し回数を数える逆ジオコーダ
type fakeGeocoder struct {
	mu    sync.Mutex
	calls int
	name  string
	err   error
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.name, g.err
}
