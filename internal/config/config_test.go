package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, 1500*time.Millisecond, cfg.CrawlDelay)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 7, cfg.DataExpiryDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_PAGES", "5")
	t.Setenv("CRAWL_DELAY_MS", "200")
	t.Setenv("DATA_EXPIRY_DAYS", "30")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.MaxPages)
	assert.Equal(t, 200*time.Millisecond, cfg.CrawlDelay)
	assert.Equal(t, 30, cfg.DataExpiryDays)
}

func TestIntEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT_MS", "-50")

	cfg := Load()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}
