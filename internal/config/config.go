// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken    string
	AccessCode  string  // empty disables the invite gate
	AllowedIDs  []int64 // pre-authorized user IDs
	SendRateRPS float64 // outgoing Telegram messages per second
	SendBurst   int

	// Engines
	PrimaryBinary   string
	PrimaryArgs     []string
	FallbackBinary  string // empty disables the fallback attempt
	FallbackArgs    []string
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration

	// Selection sessions
	SessionTTL time.Duration

	// File host
	FileHostAddr   string
	PublicBaseURL  string
	AllowedOrigins []string

	// R2 Storage (optional, replaces the local file host links)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	R2PresignExpiry   time.Duration

	// Cleanup
	CleanupInterval time.Duration
	FileMaxAge      time.Duration

	// Paths
	WorkDir    string
	PublicDir  string
	DataDir    string
	CookiesDir string

	// Logging
	Env       string
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables, reading .env first
// when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		BotToken:    getEnv("BOT_TOKEN", ""),
		AccessCode:  getEnv("ACCESS_CODE", ""),
		AllowedIDs:  getEnvInt64List("ALLOWED_USER_IDS"),
		SendRateRPS: getEnvFloat("SEND_RATE_RPS", 0.5),
		SendBurst:   getEnvInt("SEND_BURST", 3),

		PrimaryBinary:   getEnv("PRIMARY_ENGINE", "yt-dlp"),
		PrimaryArgs:     splitArgs(getEnv("PRIMARY_ENGINE_ARGS", "")),
		FallbackBinary:  getEnv("FALLBACK_ENGINE", ""),
		FallbackArgs:    splitArgs(getEnv("FALLBACK_ENGINE_ARGS", "")),
		ProbeTimeout:    time.Duration(getEnvInt("PROBE_TIMEOUT_SEC", 60)) * time.Second,
		DownloadTimeout: time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_MIN", 20)) * time.Minute,

		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_MIN", 60)) * time.Minute,

		FileHostAddr:   getEnv("FILE_HOST_ADDR", ":8080"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2PresignExpiry:   time.Duration(getEnvInt("R2_PRESIGN_EXPIRY_MIN", 60)) * time.Minute,

		CleanupInterval: time.Duration(getEnvInt("CLEANUP_INTERVAL_MIN", 30)) * time.Minute,
		FileMaxAge:      time.Duration(getEnvInt("FILE_MAX_AGE_MIN", 180)) * time.Minute,

		WorkDir:    getEnv("WORK_DIR", "./work"),
		PublicDir:  getEnv("PUBLIC_DIR", "./public"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		CookiesDir: getEnv("COOKIES_DIR", "./cookies"),

		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	return cfg, nil
}

// UseR2 reports whether artifacts are published to R2 instead of the
// local file host.
func (c *Config) UseR2() bool {
	return c.R2AccountID != "" && c.R2BucketName != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt64List(key string) []int64 {
	var ids []int64
	for _, part := range splitList(os.Getenv(key)) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitArgs(s string) []string {
	return strings.Fields(s)
}
