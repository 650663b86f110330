package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
application:
  env: development
  host: 0.0.0.0
  port: 8082
  secret_key: secret
cache:
  host: redis
  port: 6379
catalog:
  base_url: http://catalog.local
payment:
  secret_key: sk_test
services:
  payment_url: http://payment-service:8080
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart-service.yaml"), content, 0o600))

	cfg, err := Load("cart-service", dir)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 8082, cfg.Application.Port)
	assert.Equal(t, uint16(6379), cfg.Cache.Port)
	assert.Equal(t, "http://catalog.local", cfg.Catalog.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, "sk_test", cfg.Payment.SecretKey)
	assert.Equal(t, "order.confirmed", cfg.Broker.Topic)
	assert.Equal(t, "http://payment-service:8080", cfg.Services.PaymentURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("missing", t.TempDir())
	assert.Error(t, err)
}
