package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config 環境変数から読み込むアプリケーション設定
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	MarkersBackend string // http | postgres
	RecordsBackend string // http | supabase
	CacheBackend   string // memory | redis | firestore

	FobiAPIBaseURL string
	FobiAPIToken   string
	GeocodeBaseURL string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseDBPassword string
	DatabaseURL        string

	RedisHost string
	RedisPort string
	RedisPass string
	RedisDB   int

	FirestoreProjectID string
	CredentialsFile    string

	ViewportThrottle  time.Duration
	DrilldownPageSize int
	SessionTTL        time.Duration
}

// Load .env があれば読み込み、既定値を補って設定を返す
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Infof("ℹ️ .envファイルが見つかりません。システムの環境変数を使用します")
	}
	return FromEnv()
}

// FromEnv 現在の環境変数から設定を組み立てる
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		MarkersBackend: strings.ToLower(getEnv("MARKERS_BACKEND", "http")),
		RecordsBackend: strings.ToLower(getEnv("RECORDS_BACKEND", "http")),
		CacheBackend:   strings.ToLower(getEnv("CACHE_BACKEND", "memory")),

		FobiAPIBaseURL: getEnv("FOBI_API_BASE_URL", "https://api.fobi.web.id"),
		FobiAPIToken:   os.Getenv("FOBI_API_TOKEN"),
		GeocodeBaseURL: getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseDBPassword: os.Getenv("SUPABASE_DB_PASSWORD"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),

		RedisHost: getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort: getEnv("REDIS_PORT", "6379"),
		RedisPass: os.Getenv("REDIS_PASS"),

		FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
		CredentialsFile:    os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	throttleMs, err := getInt("VIEWPORT_THROTTLE_MS", 100)
	if err != nil {
		return nil, err
	}
	cfg.ViewportThrottle = time.Duration(throttleMs) * time.Millisecond
	if cfg.DrilldownPageSize, err = getInt("DRILLDOWN_PAGE_SIZE", 10); err != nil {
		return nil, err
	}
	ttlMinutes, err := getInt("SESSION_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(ttlMinutes) * time.Minute

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate バックエンドの選択と必須項目の組み合わせを確認する
func (c *Config) Validate() error {
	switch c.MarkersBackend {
	case "http":
		if c.FobiAPIBaseURL == "" {
			return fmt.Errorf("MARKERS_BACKEND=http には FOBI_API_BASE_URL が必要です")
		}
	case "postgres":
		if c.DatabaseURL == "" && c.SupabaseURL == "" {
			return fmt.Errorf("MARKERS_BACKEND=postgres には DATABASE_URL または SUPABASE_URL が必要です")
		}
	default:
		return fmt.Errorf("MARKERS_BACKEND の値が不正です: %s", c.MarkersBackend)
	}

	switch c.RecordsBackend {
	case "http":
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("RECORDS_BACKEND=supabase には SUPABASE_URL と SUPABASE_ANON_KEY が必要です")
		}
	default:
		return fmt.Errorf("RECORDS_BACKEND の値が不正です: %s", c.RecordsBackend)
	}

	switch c.CacheBackend {
	case "memory", "redis":
	case "firestore":
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("CACHE_BACKEND=firestore には FIRESTORE_PROJECT_ID が必要です")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND の値が不正です: %s", c.CacheBackend)
	}

	if c.DrilldownPageSize <= 0 {
		return fmt.Errorf("DRILLDOWN_PAGE_SIZE は正の整数である必要があります")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES は正の整数である必要があります")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s の値が整数ではありません: %w", key, err)
	}
	return n, nil
}
