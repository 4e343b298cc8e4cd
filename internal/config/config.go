package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application. It is loaded once at
// startup and passed to every component that needs it.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Database configuration
	DatabaseURL string

	// Auth configuration
	JWTSecret string
	JWTTTL    time.Duration

	// Listing configuration
	DefaultPageSize int
	MaxPageSize     int

	// Azure Storage configuration (case study archive)
	StorageAccount   string
	StorageContainer string

	// Notification configuration

	// TeamsWebhookURL is a single operator channel. Matches of every user
	// are posted to it, each card naming the owning user. Per-user delivery
	// goes through email only.
	TeamsWebhookURL string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string

	// Schedule configuration
	IngestSchedule  string
	RecountSchedule string
	IngestWindow    time.Duration

	// Source configuration
	RedditClientID     string
	RedditClientSecret string
	DisabledSources    []string

	// Sentiment analysis for ingested posts without a label
	EnableSentimentAnalysis bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getDurationEnv("JWT_TTL", 24*time.Hour),

		DefaultPageSize: getIntEnv("DEFAULT_PAGE_SIZE", 5),
		MaxPageSize:     getIntEnv("MAX_PAGE_SIZE", 100),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "casestudies"),

		TeamsWebhookURL: getEnv("TEAMS_WEBHOOK_URL", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getIntEnv("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:        getEnv("SMTP_FROM", ""),

		IngestSchedule:  getEnv("INGEST_SCHEDULE", "0 0 * * * *"),
		RecountSchedule: getEnv("RECOUNT_SCHEDULE", "0 30 3 * * *"),
		IngestWindow:    getDurationEnv("INGEST_WINDOW", 24*time.Hour),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		DisabledSources:    getSliceEnv("DISABLED_SOURCES", nil),

		EnableSentimentAnalysis: getBoolEnv("ENABLE_SENTIMENT_ANALYSIS", true),
	}

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if c.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}

	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must not be smaller than DEFAULT_PAGE_SIZE")
	}

	if c.SMTPHost != "" {
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD are required when SMTP_HOST is set")
		}
	}

	return nil
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// SourceDisabled reports whether the named source was switched off.
func (c *Config) SourceDisabled(name string) bool {
	for _, disabled := range c.DisabledSources {
		if strings.EqualFold(disabled, name) {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValue
}
