package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			AccessSecret:     strings.Repeat("a", 32),
			RefreshSecret:    strings.Repeat("b", 32),
			AccessTTLMinutes: 15,
			RefreshTTLHours:  168,
		},
		Crypto: CryptoConfig{
			Key:  strings.Repeat("k", 32),
			Salt: "salt",
		},
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{
			name:     "short_access_secret",
			mutate:   func(c *Config) { c.Auth.AccessSecret = "short" },
			contains: "JWT_ACCESS_SECRET must be at least 32 bytes",
		},
		{
			name:     "short_refresh_secret",
			mutate:   func(c *Config) { c.Auth.RefreshSecret = "short" },
			contains: "JWT_REFRESH_SECRET must be at least 32 bytes",
		},
		{
			name: "identical_secrets",
			mutate: func(c *Config) {
				c.Auth.RefreshSecret = c.Auth.AccessSecret
			},
			contains: "must differ",
		},
		{
			name: "access_ttl_not_shorter",
			mutate: func(c *Config) {
				c.Auth.AccessTTLMinutes = 60 * 24 * 8
			},
			contains: "access token TTL must be shorter",
		},
		{
			name:     "short_encryption_key",
			mutate:   func(c *Config) { c.Crypto.Key = "short" },
			contains: "ENCRYPTION_KEY must be at least 32 bytes",
		},
		{
			name:     "missing_salt",
			mutate:   func(c *Config) { c.Crypto.Salt = "" },
			contains: "ENCRYPTION_SALT is required",
		},
		{
			name:     "short_chat_webhook_secret",
			mutate:   func(c *Config) { c.Webhook.ChatSecret = "short" },
			contains: "WEBHOOK_CHAT_SECRET must be at least 32 bytes",
		},
		{
			name:     "short_ticketing_webhook_secret",
			mutate:   func(c *Config) { c.Webhook.TicketingSecret = "short" },
			contains: "WEBHOOK_TICKETING_SECRET must be at least 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "JWT_ACCESS_SECRET")
	assert.Contains(t, msg, "JWT_REFRESH_SECRET")
	assert.Contains(t, msg, "ENCRYPTION_KEY")
	assert.Contains(t, msg, "ENCRYPTION_SALT")
}

func TestConfig_Durations(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL())

	// Zero values fall back to defaults rather than disabling expiry.
	var zero AuthConfig
	assert.Equal(t, 15*time.Minute, zero.AccessTTL())
	assert.Equal(t, 168*time.Hour, zero.RefreshTTL())
	assert.Equal(t, 5*time.Second, zero.HashTimeout())
	assert.Equal(t, 30*time.Minute, zero.PasswordResetTTL())

	var webhookZero WebhookConfig
	assert.Equal(t, 300*time.Second, webhookZero.MaxSkew())

	var rateZero RateLimitConfig
	assert.Equal(t, time.Minute, rateZero.LoginWindow())
}

func TestAppConfig_Addr(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9090"}
	assert.Equal(t, "127.0.0.1:9090", app.Addr())
}
