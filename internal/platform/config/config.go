package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the service reads from the environment.
type Config struct {
	Addr string

	// DatabaseURL is the Postgres DSN. Empty means in-memory stores, which
	// is only useful for local development.
	DatabaseURL string

	Redis RedisConfig

	// ResendAPIKey enables the email channel. Empty degrades every send to
	// the log-only channel.
	ResendAPIKey string
	EmailFrom    string

	// CronSecret guards POST /jobs/intake-enforcement. Empty disables the
	// check.
	CronSecret string

	// ConfirmWindow is the fixed confirmation window applied at submission.
	ConfirmWindow time.Duration

	// ReminderThresholds lists reminder points as hours before the deadline,
	// descending.
	ReminderThresholds []int

	// EnforceInterval, when non-zero, runs the enforcement engine on an
	// internal ticker in addition to the HTTP trigger.
	EnforceInterval time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:               getEnv("INTAKEGUARD_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		EmailFrom:          getEnv("EMAIL_FROM", "Intake Guard <no-reply@intakeguard.dev>"),
		CronSecret:         os.Getenv("CRON_SECRET"),
		ConfirmWindow:      getDuration("CONFIRM_WINDOW", 48*time.Hour),
		ReminderThresholds: getThresholds("REMINDER_THRESHOLDS_HOURS", []int{24, 8, 4, 1}),
		EnforceInterval:    getDuration("ENFORCE_INTERVAL", 0),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getThresholds parses a comma-separated hour list, e.g. "24,8,4,1".
// Falls back wholesale on any malformed element so a typo cannot silently
// drop a threshold.
func getThresholds(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return fallback
		}
		out = append(out, n)
	}
	return out
}
