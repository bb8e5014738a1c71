package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 48*time.Hour, cfg.ConfirmWindow)
	assert.Equal(t, []int{24, 8, 4, 1}, cfg.ReminderThresholds)
	assert.Zero(t, cfg.EnforceInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("INTAKEGUARD_ADDR", ":9999")
	t.Setenv("CONFIRM_WINDOW", "72h")
	t.Setenv("REMINDER_THRESHOLDS_HOURS", "48, 12, 2")
	t.Setenv("ENFORCE_INTERVAL", "5m")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 72*time.Hour, cfg.ConfirmWindow)
	assert.Equal(t, []int{48, 12, 2}, cfg.ReminderThresholds)
	assert.Equal(t, 5*time.Minute, cfg.EnforceInterval)
}

func TestMalformedThresholdsFallBackWholesale(t *testing.T) {
	t.Setenv("REMINDER_THRESHOLDS_HOURS", "24,oops,1")

	cfg := FromEnv()

	assert.Equal(t, []int{24, 8, 4, 1}, cfg.ReminderThresholds)
}
