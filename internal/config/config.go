package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	DBURL              string
	SessionSecret      string
	SessionTTLMinutes  int
	CookieSecure       bool
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
	MigrateOnStart     bool
	UploadDir          string
	UploadMaxBytes     int64
	WebDir             string
	LogLevel           string
	LogFormat          string
	TimeZone           string
	DateLayout         string
	LoginRateLimit     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "3000"),
		DBURL:              os.Getenv("DB_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionTTLMinutes:  getEnvInt("SESSION_TTL_MINUTES", 24*60),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		MigrateOnStart:     getEnvBool("MIGRATE_ON_START", true),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		UploadMaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		WebDir:             getEnv("WEB_DIR", "./web"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		TimeZone:           getEnv("APP_TIMEZONE", "UTC"),
		DateLayout:         getEnv("DATE_LAYOUT", "1/2/2006"),
		LoginRateLimit:     getEnvInt("LOGIN_RATE_LIMIT", 10),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return Config{}, fmt.Errorf("SESSION_SECRET is required and must be at least 32 bytes")
	}
	if cfg.SessionTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if cfg.LoginRateLimit <= 0 {
		return Config{}, fmt.Errorf("LOGIN_RATE_LIMIT must be positive")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return Config{}, fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}

	return cfg, nil
}

// Location returns the configured time zone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SessionTTL returns the session lifetime.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
