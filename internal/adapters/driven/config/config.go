// Package config loads flowsync settings from a TOML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is read when --config is not given. It may be absent.
const DefaultPath = "flowsync.toml"

// Duration is a time.Duration written as a string ("5m") in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds every setting. It is read once at start-up.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	HTTP      HTTPConfig      `toml:"http"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Worker    WorkerConfig    `toml:"worker"`
	Auth      AuthConfig      `toml:"auth"`
	Client    ClientConfig    `toml:"client"`
	Google    GoogleConfig    `toml:"google"`
	Notion    NotionConfig    `toml:"notion"`
}

// LogConfig selects level and encoding.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DatabaseConfig selects the store. Driver is sqlite, postgres or memory;
// empty infers it from URL.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

// RedisConfig enables the Redis lock and queue when URL is set.
type RedisConfig struct {
	URL     string   `toml:"url"`
	LockTTL Duration `toml:"lock_ttl"`
	Queue   string   `toml:"queue"`
}

// HTTPConfig configures the health, trigger and metrics server.
type HTTPConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// SchedulerConfig configures the background tasks.
type SchedulerConfig struct {
	Enabled         bool     `toml:"enabled"`
	TickInterval    Duration `toml:"tick_interval"`
	PollInterval    Duration `toml:"poll_interval"`
	RefreshInterval Duration `toml:"refresh_interval"`
}

// WorkerConfig bounds concurrency.
type WorkerConfig struct {
	// PollWorkflow is run for every eligible user on each poll.
	PollWorkflow string `toml:"poll_workflow"`
	// Concurrency is the number of users a poll runs at once.
	Concurrency int `toml:"concurrency"`
	// QueueWorkers is the number of on-demand jobs run at once.
	QueueWorkers int `toml:"queue_workers"`
}

// AuthConfig tunes the token lifecycle.
type AuthConfig struct {
	RefreshSkew Duration `toml:"refresh_skew"`
	// StrictExpiry refreshes when a stored expiry cannot be parsed,
	// instead of using the token as is.
	StrictExpiry bool `toml:"strict_expiry"`
}

// ClientConfig tunes provider HTTP calls.
type ClientConfig struct {
	Timeout     Duration `toml:"timeout"`
	MaxAttempts int      `toml:"max_attempts"`
	BackoffBase Duration `toml:"backoff_base"`
}

// GoogleConfig holds the OAuth application and calendar settings.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
	CalendarID   string `toml:"calendar_id"`
	TimeZone     string `toml:"time_zone"`
}

// NotionConfig holds the API endpoint and database property names.
type NotionConfig struct {
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret"`
	APIBaseURL        string `toml:"api_base_url"`
	Version           string `toml:"version"`
	TitleProperty     string `toml:"title_property"`
	StartProperty     string `toml:"start_property"`
	EndProperty       string `toml:"end_property"`
	AttendeesProperty string `toml:"attendees_property"`
	ScheduleProperty  string `toml:"schedule_property"`
	PendingValue      string `toml:"pending_value"`
	DoneValue         string `toml:"done_value"`
	EventIDProperty   string `toml:"event_id_property"`
	MaxPages          int    `toml:"max_pages"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "auto"},
		Database: DatabaseConfig{URL: "flowsync.db"},
		Redis:    RedisConfig{LockTTL: Duration(30 * time.Second), Queue: "jobs"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			TickInterval:    Duration(15 * time.Second),
			PollInterval:    Duration(5 * time.Minute),
			RefreshInterval: Duration(45 * time.Minute),
		},
		Worker: WorkerConfig{
			PollWorkflow: "Notion to Google",
			Concurrency:  4,
			QueueWorkers: 2,
		},
		Auth: AuthConfig{RefreshSkew: Duration(5 * time.Minute)},
		Client: ClientConfig{
			Timeout:     Duration(30 * time.Second),
			MaxAttempts: 3,
			BackoffBase: Duration(time.Second),
		},
		Google: GoogleConfig{
			TokenURL:   "https://oauth2.googleapis.com/token",
			APIBaseURL: "https://www.googleapis.com/calendar/v3",
			CalendarID: "primary",
			TimeZone:   "UTC",
		},
		Notion: NotionConfig{
			APIBaseURL:        "https://api.notion.com/v1",
			Version:           "2022-06-28",
			TitleProperty:     "Name",
			StartProperty:     "Start Date",
			EndProperty:       "End Date",
			AttendeesProperty: "Attendees",
			ScheduleProperty:  "Schedule",
			PendingValue:      "Yes",
			DoneValue:         "Done",
			MaxPages:          10,
		},
	}
}

// Load reads path over the defaults, then .env, then the environment.
// A missing file is an error only when required is true.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv() error {
	setString("DATABASE_URL", &c.Database.URL)
	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("REDIS_URL", &c.Redis.URL)
	setString("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	setString("NOTION_CLIENT_ID", &c.Notion.ClientID)
	setString("NOTION_CLIENT_SECRET", &c.Notion.ClientSecret)
	setString("FLOWSYNC_HTTP_ADDR", &c.HTTP.Addr)
	setString("FLOWSYNC_LOG_LEVEL", &c.Log.Level)
	setString("FLOWSYNC_LOG_FORMAT", &c.Log.Format)

	if err := setDuration("FLOWSYNC_POLL_INTERVAL", &c.Scheduler.PollInterval); err != nil {
		return err
	}
	if err := setInt("FLOWSYNC_CONCURRENCY", &c.Worker.Concurrency); err != nil {
		return err
	}
	return setBool("FLOWSYNC_STRICT_EXPIRY", &c.Auth.StrictExpiry)
}

// Validate reports settings the worker cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if c.Google.ClientID == "" {
		problems = append(problems, "google.client_id (GOOGLE_CLIENT_ID)")
	}
	if c.Google.ClientSecret == "" {
		problems = append(problems, "google.client_secret (GOOGLE_CLIENT_SECRET)")
	}
	if c.Scheduler.PollInterval <= 0 {
		problems = append(problems, "scheduler.poll_interval must be positive")
	}
	if c.Scheduler.RefreshInterval < 0 {
		problems = append(problems, "scheduler.refresh_interval must not be negative")
	}
	if c.Worker.Concurrency < 0 || c.Worker.QueueWorkers < 0 {
		problems = append(problems, "worker concurrency must not be negative")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql", "pq", "memory":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
