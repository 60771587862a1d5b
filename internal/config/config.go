package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// PlaceholderBearerToken is written into a freshly created .env file
const PlaceholderBearerToken = "your_twitter_bearer_token"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port      string
	Debug     bool
	StaticDir string

	// Twitter search configuration
	TwitterBearerToken string
	TwitterAPIBaseURL  string
	TriggerPhrase      string
	PageSize           int
	MinRequestInterval time.Duration

	// Ingestion configuration
	PollInterval         time.Duration
	MaxTweetAge          time.Duration
	CacheCapacity        int
	AuthorDirectoryLimit int

	// Archive configuration
	StorageAccount   string
	StorageContainer string
	ArchiveSchedule  string
	ArchiveRetention int

	// Digest notification configuration
	DigestSchedule    string
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "5000"),
		Debug:     getBoolEnv("DEBUG", false),
		StaticDir: getEnv("STATIC_DIR", "static"),

		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterAPIBaseURL:  getEnv("TWITTER_API_BASE_URL", "https://api.twitter.com"),
		TriggerPhrase:      getEnv("TRIGGER_PHRASE", "@launchcoin"),
		PageSize:           getIntEnv("PAGE_SIZE", 10),
		MinRequestInterval: getDurationEnv("MIN_REQUEST_INTERVAL", 2*time.Second),

		PollInterval:         getDurationEnv("POLL_INTERVAL", 5*time.Second),
		MaxTweetAge:          getDurationEnv("MAX_TWEET_AGE", 48*time.Hour),
		CacheCapacity:        getIntEnv("CACHE_CAPACITY", 100),
		AuthorDirectoryLimit: getIntEnv("AUTHOR_DIRECTORY_LIMIT", 10000),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "launches"),
		ArchiveSchedule:  getEnv("ARCHIVE_SCHEDULE", "0 */15 * * * *"),
		ArchiveRetention: getIntEnv("ARCHIVE_RETENTION", 96),

		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "0 0 9 * * *"),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ArchiveEnabled reports whether snapshots are exported to blob storage
func (c *Config) ArchiveEnabled() bool {
	return c.StorageAccount != ""
}

// DigestEnabled reports whether at least one notification channel is configured
func (c *Config) DigestEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

func (c *Config) validate() error {
	if c.TwitterBearerToken == "" || c.TwitterBearerToken == PlaceholderBearerToken {
		return fmt.Errorf("missing TWITTER_BEARER_TOKEN, check .env file")
	}

	if c.TriggerPhrase == "" {
		return fmt.Errorf("TRIGGER_PHRASE must not be empty")
	}

	// Twitter recent search accepts max_results between 10 and 100
	if c.PageSize < 10 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 10 and 100")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	if c.MaxTweetAge <= 0 {
		return fmt.Errorf("MAX_TWEET_AGE must be positive")
	}

	if c.CacheCapacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be positive")
	}

	if c.AuthorDirectoryLimit <= 0 {
		return fmt.Errorf("AUTHOR_DIRECTORY_LIMIT must be positive")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if c.ArchiveEnabled() {
		if _, err := parser.Parse(c.ArchiveSchedule); err != nil {
			return fmt.Errorf("invalid ARCHIVE_SCHEDULE: %w", err)
		}
		if c.ArchiveRetention <= 0 {
			return fmt.Errorf("ARCHIVE_RETENTION must be positive")
		}
	}

	if c.DigestEnabled() {
		if _, err := parser.Parse(c.DigestSchedule); err != nil {
			return fmt.Errorf("invalid DIGEST_SCHEDULE: %w", err)
		}
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// EnsureEnvFile writes a template .env file when none exists.
// It reports whether a new file was created.
func EnsureEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content := fmt.Sprintf("TWITTER_BEARER_TOKEN=%s\n", PlaceholderBearerToken)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return true, nil
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
