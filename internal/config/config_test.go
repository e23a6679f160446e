package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 8081
storage:
  driver: postgres
database:
  host: db.internal
  port: 5433
  user: ops
  password: secret
  database: shop
broker:
  driver: rabbitmq
rabbitmq:
  host: mq.internal
  port: 5672
  user: guest
  password: guest
fulfillment:
  bulk_concurrency: 8
metrics:
  interval_seconds: 30
  sla_minutes:
    new: 15
couriers:
  - id: courier-1
    name: Daulet
    phone: "+7 700 000 0001"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, BrokerRabbitMQ, cfg.Broker.Driver)
	assert.Equal(t, 8, cfg.Fulfillment.BulkConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.Metrics.SLA()["new"])
	require.Len(t, cfg.Couriers, 1)
	assert.Equal(t, "Daulet", cfg.Couriers[0].Name)

	// untouched sections keep their defaults
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 10, cfg.RabbitMQ.Prefetch)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, BrokerNone, cfg.Broker.Driver)
	assert.Equal(t, 3000, cfg.HTTP.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BROKER_DRIVER", "nats")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BrokerNATS, cfg.Broker.Driver)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"unknown broker", func(c *Config) { c.Broker.Driver = "kafka" }},
		{"zero concurrency", func(c *Config) { c.Fulfillment.BulkConcurrency = 0 }},
		{"negative interval", func(c *Config) { c.Metrics.IntervalSeconds = -1 }},
		{"courier without name", func(c *Config) { c.Couriers = []CourierConfig{{ID: "c1"}} }},
		{"duplicate courier", func(c *Config) {
			c.Couriers = []CourierConfig{{ID: "c1", Name: "A"}, {ID: "c1", Name: "B"}}
		}},
		{"postgres without host", func(c *Config) {
			c.Storage.Driver = StoragePostgres
			c.Database.Host = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
