package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":        "postgres://localhost/souq",
		"REDIS_URL":           "redis://localhost:6379",
		"JWT_SECRET":          "secret",
		"PORT":                "",
		"CURRENCY_CODE":       "",
		"WEBHOOK_REPLAY_TTL":  "",
		"CHECKOUT_RATE_LIMIT": "",
	})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "EGP", cfg.Currency)
	assert.Equal(t, 48*time.Hour, cfg.WebhookReplayTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "20-M", cfg.CheckoutRate)
	assert.Equal(t, "https://accept.paymob.com", cfg.PaymobBaseURL)
}

func TestLoadRequiredFields(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestHTTPAddrPassthrough(t *testing.T) {
	cfg := &Config{Port: ":9000"}
	assert.Equal(t, ":9000", cfg.HTTPAddr())

	cfg.Port = "9001"
	assert.Equal(t, ":9001", cfg.HTTPAddr())
}
