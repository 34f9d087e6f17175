package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Backend names.
const (
	SourceMemory = "memory"
	SourceREST   = "rest"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string

	LogLevel string

	// Category source
	SourceBackend string
	APIBaseURL    string
	APITimeout    time.Duration
	SeedDir       string

	// Notification state store
	StoreBackend string
	SQLiteDBPath string

	// AMQP, optional. AMQPQueue names an extra durable queue that keeps every
	// event for external subscribers; empty skips it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Empty disables the periodic reload.
	RefreshSchedule string
	CollationLocale string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		SourceBackend: getEnv("SOURCE_BACKEND", SourceMemory),
		APIBaseURL:    getEnv("API_BASE_URL", ""),
		APITimeout:    getEnvDuration("API_TIMEOUT", 10*time.Second),
		SeedDir:       getEnv("SEED_DIR", "./data"),

		StoreBackend: getEnv("STORE_BACKEND", StoreMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kasa.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kasa"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 5m"),
		CollationLocale: getEnv("COLLATION_LOCALE", "und"),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	validSources := []string{SourceMemory, SourceREST}
	if !slices.Contains(validSources, c.SourceBackend) {
		errors = append(errors, fmt.Sprintf("invalid source backend '%s': must be one of %v", c.SourceBackend, validSources))
	}

	if c.SourceBackend == SourceREST {
		if c.APIBaseURL == "" {
			errors = append(errors, "API base URL is required when using rest source backend")
		} else if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an absolute http(s) URL", c.APIBaseURL))
		}
	}
	if c.APITimeout < 100*time.Millisecond || c.APITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 100ms and 2m", c.APITimeout))
	}

	validStores := []string{StoreMemory, StoreSQLite}
	if !slices.Contains(validStores, c.StoreBackend) {
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validStores))
	}

	if c.StoreBackend == StoreSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite store")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
		}
	}

	if _, err := language.Parse(c.CollationLocale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid collation locale '%s': %v", c.CollationLocale, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Locale returns the collation locale, falling back to the root locale.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(c.CollationLocale)
	if err != nil {
		return language.Und
	}
	return tag
}

// AMQPEnabled reports whether category events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
