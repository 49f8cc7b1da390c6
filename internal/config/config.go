package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every tunable the service reads from the environment.
// Values that used to be hard-coded (batch size, cycle interval, reminder
// lead time) are promoted here so deployments can tune them.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	JWTSecret string
	TokenTTL  time.Duration

	PostmarkToken string
	FromEmail     string

	ReminderLead time.Duration
	BatchSize    int
	Interval     time.Duration
	MaxAttempts  int

	CronSecret string

	// WSOrigins lists origins allowed to open WebSocket connections
	// when the SPA is served from a different host than the API.
	WSOrigins []string
}

// Load reads configuration from TRACKERPRO_* environment variables,
// applying defaults for everything except the JWT secret.
func Load() (Config, error) {
	cfg := Config{
		Port:          envOr("TRACKERPRO_PORT", "8080"),
		DBPath:        envOr("TRACKERPRO_DB_PATH", "trackerpro.db"),
		LogLevel:      os.Getenv("TRACKERPRO_LOG_LEVEL"),
		JWTSecret:     os.Getenv("TRACKERPRO_JWT_SECRET"),
		PostmarkToken: os.Getenv("TRACKERPRO_POSTMARK_TOKEN"),
		FromEmail:     os.Getenv("TRACKERPRO_FROM_EMAIL"),
		CronSecret:    os.Getenv("TRACKERPRO_CRON_SECRET"),
		WSOrigins:     envList("TRACKERPRO_WS_ORIGINS"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("TRACKERPRO_JWT_SECRET is required")
	}

	var err error
	if cfg.TokenTTL, err = envDuration("TRACKERPRO_TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ReminderLead, err = envDuration("TRACKERPRO_REMINDER_LEAD", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Interval, err = envDuration("TRACKERPRO_CYCLE_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize, err = envInt("TRACKERPRO_BATCH_SIZE", 5); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = envInt("TRACKERPRO_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MailConfigured reports whether the outbound email transport has
// credentials. Without them the API still serves but nothing sends.
func (c Config) MailConfigured() bool {
	return c.PostmarkToken != "" && c.FromEmail != ""
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %q", key, v)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	return n, nil
}
