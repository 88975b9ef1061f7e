package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := LoadConfig()

	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, int64(1), cfg.UserID)
	assert.Equal(t, "cart", cfg.CartKey)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Nil(t, cfg.KafkaBrokers)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://shop.example.com/api")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_TTL", "1h")
	t.Setenv("STOREFRONT_USER_ID", "42")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "no")

	cfg := LoadConfig()

	assert.Equal(t, "https://shop.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.RedisTTL)
	assert.Equal(t, int64(42), cfg.UserID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.OTELExporterOTLPInsecure)
}

func TestLoadConfig_BadNumbersFallBack(t *testing.T) {
	t.Setenv("STOREFRONT_USER_ID", "one")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, int64(1), cfg.UserID)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"relative base url", func(c *Config) { c.APIBaseURL = "/api" }, "API_BASE_URL"},
		{"unknown store", func(c *Config) { c.StoreBackend = "etcd" }, "STORE_BACKEND"},
		{"unknown processor", func(c *Config) { c.PaymentProcessor = "paypal" }, "PAYMENT_PROCESSOR"},
		{"missing sqlite path", func(c *Config) { c.SQLitePath = "" }, "SQLITE_PATH"},
		{"bad user", func(c *Config) { c.UserID = 0 }, "STOREFRONT_USER_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
