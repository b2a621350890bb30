package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT",
	"MARKERS_BACKEND", "RECORDS_BACKEND", "CACHE_BACKEND",
	"FOBI_API_BASE_URL", "FOBI_API_TOKEN", "GEOCODE_BASE_URL",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_DB_PASSWORD", "DATABASE_URL",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASS", "REDIS_DB",
	"FIRESTORE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"VIEWPORT_THROTTLE_MS", "DRILLDOWN_PAGE_SIZE", "SESSION_TTL_MINUTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_既定値(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http", cfg.MarkersBackend)
	assert.Equal(t, "http", cfg.RecordsBackend)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, "https://api.fobi.web.id", cfg.FobiAPIBaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.ViewportThrottle)
	assert.Equal(t, 10, cfg.DrilldownPageSize)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestFromEnv_上書き(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MARKERS_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/fobi")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("VIEWPORT_THROTTLE_MS", "250")
	t.Setenv("SESSION_TTL_MINUTES", "5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres", cfg.MarkersBackend)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 250*time.Millisecond, cfg.ViewportThrottle)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
}

func TestFromEnv_不正な設定(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"未知のマーカーバックエンド", map[string]string{"MARKERS_BACKEND": "mongo"}},
		{"postgresなのに接続先なし", map[string]string{"MARKERS_BACKEND": "postgres"}},
		{"supabaseなのにキーなし", map[string]string{"RECORDS_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co"}},
		{"firestoreなのにプロジェクトなし", map[string]string{"CACHE_BACKEND": "firestore"}},
		{"未知のキャッシュ", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"整数でない", map[string]string{"REDIS_DB": "two"}},
		{"ページサイズ0", map[string]string{"DRILLDOWN_PAGE_SIZE": "0"}},
		{"TTLが負", map[string]string{"SESSION_TTL_MINUTES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
