package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 3, cfg.Reservation.CompensationAttempts)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Redis.ProductTTL)
	assert.False(t, cfg.Reservation.AllowDefaultQuantity)
	assert.Equal(t, time.Minute, cfg.Reconciler.SweepInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ORDER_DEFAULT_QUANTITY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Reservation.AllowDefaultQuantity)
}

func TestLoad_ProdRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsZeroCompensationAttempts(t *testing.T) {
	t.Setenv("COMPENSATION_ATTEMPTS", "0")

	_, err := Load()
	assert.Error(t, err)
}
