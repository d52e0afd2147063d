package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// maxDurationMinutes はDEFAULT_DURATION_MINUTESの上限（24時間）。
const maxDurationMinutes = 24 * 60

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Timer
	DefaultDurationMinutes int
	TickInterval           time.Duration
	StorageTimeout         time.Duration
	ExportLocation         *time.Location
	EngineIdleTTL          time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitControl int

	// Worker
	SessionCleanupInterval time.Duration

	// Local mode
	LocalDBPath string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	loadOptional(cfg)
	return cfg, nil
}

// LoadLocal はローカルモード用のConfigを読み込む。
// ローカルモードはDBサーバーもHTTPも使わないため、必須項目はない。
func LoadLocal() *Config {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BaseURL:     os.Getenv("BASE_URL"),
	}
	loadOptional(cfg)
	return cfg
}

// loadOptional はデフォルト値を持つ項目を読み込む。
func loadOptional(cfg *Config) {
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.DefaultDurationMinutes = getEnvInt("DEFAULT_DURATION_MINUTES", 25)
	if cfg.DefaultDurationMinutes < 1 {
		cfg.DefaultDurationMinutes = 1
	}
	if cfg.DefaultDurationMinutes > maxDurationMinutes {
		cfg.DefaultDurationMinutes = maxDurationMinutes
	}
	cfg.TickInterval = getEnvDuration("TICK_INTERVAL", time.Second)
	cfg.StorageTimeout = getEnvDuration("STORAGE_TIMEOUT", 5*time.Second)
	cfg.ExportLocation = getEnvLocation("EXPORT_TIMEZONE", time.Local)
	cfg.EngineIdleTTL = getEnvDuration("ENGINE_IDLE_TTL", 30*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitControl = getEnvInt("RATE_LIMIT_CONTROL", 30)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.LocalDBPath = getEnvString("LOCAL_DB_PATH", defaultLocalDBPath())
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
}

// defaultLocalDBPath はローカルモードのSQLiteファイルの既定パスを返す。
// ホームディレクトリが取得できない場合はカレントディレクトリに作成する。
func defaultLocalDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "growmind.db"
	}
	return filepath.Join(home, ".local", "share", "growmind", "growmind.db")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvLocation(key string, defaultVal *time.Location) *time.Location {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return defaultVal
	}
	return loc
}
