// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode はアプリケーションの動作モードを表す。
type Mode string

const (
	ModeDev  Mode = "DEV"
	ModeTest Mode = "TEST"
	ModeProd Mode = "PROD"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして各コンポーネントに明示的に渡す。
type Config struct {
	Mode       Mode
	AppVersion string

	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// JWT
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessExpire  time.Duration
	JWTRefreshExpire time.Duration

	// Transaction
	TransactionSignatureSecret string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSOrigins []string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	return loadFromEnv()
}

// LoadFile は指定された.envファイルを読み込んでからConfigを構築する。
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTAccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	if cfg.JWTAccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}

	cfg.JWTRefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.JWTRefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}

	cfg.TransactionSignatureSecret = os.Getenv("TRANSACTION_SIGNATURE_SECRET")
	if cfg.TransactionSignatureSecret == "" {
		missing = append(missing, "TRANSACTION_SIGNATURE_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// アクセストークンとリフレッシュトークンは別のシークレットで署名する
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	mode, err := parseMode(getEnvString("MODE", string(ModeDev)))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	// Optional fields with defaults
	cfg.AppVersion = getEnvString("APP_VERSION", "0.1.0")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.JWTAccessExpire = time.Duration(getEnvInt("JWT_ACCESS_EXPIRE_MINUTES", 15)) * time.Minute
	cfg.JWTRefreshExpire = time.Duration(getEnvInt("JWT_REFRESH_EXPIRE_MINUTES", 10080)) * time.Minute
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"})

	return cfg, nil
}

// parseMode はMODE環境変数の値を検証する。
func parseMode(v string) (Mode, error) {
	switch Mode(strings.ToUpper(v)) {
	case ModeDev:
		return ModeDev, nil
	case ModeTest:
		return ModeTest, nil
	case ModeProd:
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid MODE %q: must be one of DEV, TEST, PROD", v)
	}
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

// getEnvList はカンマ区切りの環境変数をスライスとして返す。空要素は無視する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
