package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Broker      BrokerConfig      `yaml:"broker"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	NATS        NATSConfig        `yaml:"nats"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Couriers    []CourierConfig   `yaml:"couriers"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	BrokerNone     = "none"
	BrokerRabbitMQ = "rabbitmq"
	BrokerNATS     = "nats"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Migrate  bool   `yaml:"migrate"`
}

type BrokerConfig struct {
	Driver string `yaml:"driver"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Prefetch int    `yaml:"prefetch"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	MaxRetries    int    `yaml:"max_retries"`
}

type FulfillmentConfig struct {
	BulkConcurrency int `yaml:"bulk_concurrency"`
}

type MetricsConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	// SLAMinutes maps a status to the minutes an order may spend in it.
	SLAMinutes map[string]int `yaml:"sla_minutes"`
}

// SLA converts the configured minutes into durations keyed by status name.
func (m MetricsConfig) SLA() map[string]time.Duration {
	out := make(map[string]time.Duration, len(m.SLAMinutes))
	for status, minutes := range m.SLAMinutes {
		out[status] = time.Duration(minutes) * time.Minute
	}
	return out
}

type CourierConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Port: 3000},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: StorageMemory},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "fulfillment",
			Password: "fulfillment",
			Database: "fulfillment",
		},
		Broker: BrokerConfig{Driver: BrokerNone},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Prefetch: 10,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: "fulfillment",
			MaxRetries:    3,
		},
		Fulfillment: FulfillmentConfig{BulkConcurrency: 4},
		Metrics: MetricsConfig{
			IntervalSeconds: 60,
			SLAMinutes: map[string]int{
				"new":           60,
				"processing":    240,
				"ready_to_ship": 1440,
				"shipped":       4320,
			},
		},
	}
}

// Load reads .env (if any), then the YAML file at path (if any), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse yaml: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.RabbitMQ.Host = getEnv("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Broker.Driver = getEnv("BROKER_DRIVER", c.Broker.Driver)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT must be a number: %w", err)
		}
		c.HTTP.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database.host and database.database are required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Broker.Driver {
	case BrokerNone:
	case BrokerRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq.host is required for the rabbitmq broker")
		}
	case BrokerNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the nats broker")
		}
	default:
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}

	if c.Fulfillment.BulkConcurrency < 1 {
		return fmt.Errorf("fulfillment.bulk_concurrency must be at least 1")
	}
	if c.Metrics.IntervalSeconds < 0 {
		return fmt.Errorf("metrics.interval_seconds must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Couriers))
	for _, courier := range c.Couriers {
		if courier.ID == "" || courier.Name == "" {
			return fmt.Errorf("every courier needs an id and a name")
		}
		if _, dup := seen[courier.ID]; dup {
			return fmt.Errorf("duplicate courier id %q", courier.ID)
		}
		seen[courier.ID] = struct{}{}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
