package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings. Sensitive values can be overridden
// through environment variables after the file is loaded.
type Config struct {
	Server struct {
		OrderAddr      string `yaml:"order_addr"`
		DatastreamAddr string `yaml:"datastream_addr"`
		HTTPAddr       string `yaml:"http_addr"`
	} `yaml:"server"`

	Storage struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		Redis       struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			TTL      string `yaml:"ttl"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func DefaultConfig() *Config {
	var cfg Config
	cfg.Server.OrderAddr = "localhost:7001"
	cfg.Server.DatastreamAddr = "localhost:7002"
	cfg.Server.HTTPAddr = ":8080"
	cfg.Storage.Redis.TTL = "5m"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path; an empty path yields defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	overrideWithEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("EXCHANGE_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("EXCHANGE_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("EXCHANGE_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
}

func (c *Config) Validate() error {
	if c.Server.OrderAddr == "" || c.Server.DatastreamAddr == "" {
		return fmt.Errorf("order_addr and datastream_addr are required")
	}
	if c.Server.OrderAddr == c.Server.DatastreamAddr {
		return fmt.Errorf("order and datastream channels cannot share an address")
	}
	if _, err := c.RedisTTL(); err != nil {
		return fmt.Errorf("redis ttl: %w", err)
	}
	return nil
}

func (c *Config) RedisTTL() (time.Duration, error) {
	if c.Storage.Redis.TTL == "" {
		return 5 * time.Minute, nil
	}
	return time.ParseDuration(c.Storage.Redis.TTL)
}
