package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API           APIConfig          `mapstructure:"api"`
	Push          PushConfig         `mapstructure:"push"`
	Session       SessionConfig      `mapstructure:"session"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PushConfig struct {
	URL         string        `mapstructure:"url"`
	Origin      string        `mapstructure:"origin"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type SessionConfig struct {
	Token string `mapstructure:"token"`
}

// NotificationConfig.Enabled plays the role of a granted notification permission:
// when false, notifications are dropped without error.
type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DBPath    string `mapstructure:"db_path"`
	QueueSize int    `mapstructure:"queue_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

const (
	DefaultBaseURL     = "http://localhost:5000"
	DefaultOrigin      = "http://localhost/"
	DefaultTimeout     = 15 * time.Second
	DefaultDialTimeout = 10 * time.Second
	DefaultQueueSize   = 64
	DefaultDBPath      = "taskdesk.db"
)

// Defaults returns the configuration used when neither file nor environment overrides a key.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Push: PushConfig{
			Origin:      DefaultOrigin,
			DialTimeout: DefaultDialTimeout,
		},
		Notifications: NotificationConfig{
			Enabled:   true,
			DBPath:    DefaultDBPath,
			QueueSize: DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func LoadConfigFromEnv() *Config {
	cfg := Defaults()
	cfg.API.BaseURL = getEnv("TASKDESK_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvAsDuration("TASKDESK_API_TIMEOUT", cfg.API.Timeout)
	cfg.Push.URL = getEnv("TASKDESK_PUSH_URL", cfg.Push.URL)
	cfg.Push.Origin = getEnv("TASKDESK_PUSH_ORIGIN", cfg.Push.Origin)
	cfg.Push.DialTimeout = getEnvAsDuration("TASKDESK_PUSH_DIAL_TIMEOUT", cfg.Push.DialTimeout)
	cfg.Session.Token = getEnv("TASKDESK_SESSION_TOKEN", "")
	cfg.Notifications.Enabled = getEnvAsBool("TASKDESK_NOTIFICATIONS_ENABLED", cfg.Notifications.Enabled)
	cfg.Notifications.DBPath = getEnv("TASKDESK_NOTIFICATIONS_DB_PATH", cfg.Notifications.DBPath)
	cfg.Notifications.QueueSize = getEnvAsInt("TASKDESK_NOTIFICATIONS_QUEUE_SIZE", cfg.Notifications.QueueSize)
	cfg.Logging.Level = getEnv("TASKDESK_LOGGING_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("TASKDESK_LOGGING_FORMAT", cfg.Logging.Format)
	return &cfg
}

// PushURL is the configured push endpoint, or one derived from the API base URL.
func (c *Config) PushURL() string {
	if c.Push.URL != "" {
		return c.Push.URL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket"
	return u.String()
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("api config: %v", err))
	}

	if err := c.Push.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("push config: %v", err))
	}

	if err := c.Notifications.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notifications config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

func (c *PushConfig) Validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid url %s: %w", c.URL, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("url must be ws or wss, got %q", u.Scheme)
		}
	}
	if c.Origin == "" {
		return errors.New("origin is required")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	if c.QueueSize < 0 {
		return errors.New("queue_size cannot be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
