package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL    string
	Categories []string
	Currency   string

	MaxConcurrency   int
	RateLimitMs      int
	RequestTimeoutMs int
	MaxRetries       int
	RetryBaseDelayMs int
	RetryMaxDelayMs  int

	EncryptJSPath string
	ChromeBin     string

	StoreBackend     string
	DataDir          string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ExportFormat string
	OutputDir    string
	ExportTZ     string

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		BaseURL:    strings.TrimRight(getEnv("BASE_URL", "https://dappradar.com"), "/"),
		Categories: getEnvList("CATEGORIES", []string{"games", "collectibles", "gambling"}),
		Currency:   getEnv("CURRENCY", "USD"),

		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 5),
		RateLimitMs:      getEnvInt("RATE_LIMIT_MS", 0),
		RequestTimeoutMs: getEnvInt("REQUEST_TIMEOUT_MS", 30000),
		MaxRetries:       getEnvInt("MAX_RETRIES", 0),
		RetryBaseDelayMs: getEnvInt("RETRY_BASE_DELAY_MS", 0),
		RetryMaxDelayMs:  getEnvInt("RETRY_MAX_DELAY_MS", 30000),

		EncryptJSPath: getEnv("ENCRYPT_JS_PATH", "encrypt.js"),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", "file")),
		DataDir:          getEnv("DATA_DIR", "./data"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/dappradar.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "dappradar"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ExportFormat: strings.ToLower(getEnv("EXPORT_FORMAT", "xlsx")),
		OutputDir:    getEnv("OUTPUT_DIR", "./output"),
		ExportTZ:     getEnv("EXPORT_TZ", ""),

		Debug: getEnvBool("LOG_DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RequestTimeout is the per-request timeout handed to the crawl harness.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RateLimit is the minimum delay between two requests to the same domain.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// Location resolves EXPORT_TZ, defaulting to the system timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.ExportTZ == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.ExportTZ)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
