package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FOBI-Map/internal/domain/repository"
)

func TestMemoryCacheRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCacheRepository()
	cache.now = func() time.Time { return now }

	t.Run("未登録はキャッシュミス", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})

	t.Run("保存した値を取り出せる", func(t *testing.T) {
		value := []byte("hello")
		require.NoError(t, cache.Set(ctx, "k", value, time.Minute))
		value[0] = 'j'

		got, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))

		got[0] = 'x'
		again, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(again))
	})

	t.Run("期限切れはキャッシュミス", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Second))
		now = now.Add(time.Second)
		_, err := cache.Get(ctx, "short")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})

	t.Run("TTLなしは期限切れにならない", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "forever", []byte("v"), 0))
		now = now.Add(365 * 24 * time.Hour)
		_, err := cache.Get(ctx, "forever")
		assert.NoError(t, err)
	})

	t.Run("削除", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "del", []byte("v"), time.Minute))
		require.NoError(t, cache.Delete(ctx, "del"))
		_, err := cache.Get(ctx, "del")
		assert.ErrorIs(t, err, repository.ErrCacheMiss)
	})
}

func TestMemoryCacheRepository_Purge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCacheRepository()
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), 0))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 0, cache.Purge())

	_, err := cache.Get(ctx, "b")
	assert.NoError(t, err)
}
