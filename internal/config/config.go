// Package config loads the shared YAML configuration used by both the
// lanify client and the lanify-server feed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Mock   MockConfig   `yaml:"mock"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig configures the alert channel and how alerts are shown.
type ClientConfig struct {
	Endpoint             string        `yaml:"endpoint"`
	Transports           []string      `yaml:"transports"`
	ReconnectionAttempts int           `yaml:"reconnection_attempts"`
	Timeout              time.Duration `yaml:"timeout"`
	ReconnectionDelay    time.Duration `yaml:"reconnection_delay"`
	ReconnectionDelayMax time.Duration `yaml:"reconnection_delay_max"`
	Token                string        `yaml:"token"`
	ToastDuration        time.Duration `yaml:"toast_duration"`
	MaxToasts            int           `yaml:"max_toasts"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	Token          string        `yaml:"token"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	IngestRate     float64       `yaml:"ingest_rate"`
	IngestBurst    int           `yaml:"ingest_burst"`
	Backlog        int           `yaml:"backlog"`
	PollWait       time.Duration `yaml:"poll_wait"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type MockConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Threshold float64       `yaml:"threshold"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:             "http://localhost:5000",
			Transports:           []string{"websocket"},
			ReconnectionAttempts: 5,
			Timeout:              10 * time.Second,
			ReconnectionDelay:    time.Second,
			ReconnectionDelayMax: 5 * time.Second,
			ToastDuration:        4 * time.Second,
			MaxToasts:            5,
		},
		Server: ServerConfig{
			Port:        5000,
			Host:        "0.0.0.0",
			IngestRate:  50,
			IngestBurst: 100,
			Backlog:     256,
			PollWait:    25 * time.Second,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Mock: MockConfig{
			Interval:  time.Second,
			Threshold: 0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.Endpoint) == "" {
		return errors.New("client.endpoint must not be empty")
	}
	if len(c.Client.Transports) == 0 {
		return errors.New("client.transports must list at least one transport")
	}
	for _, t := range c.Client.Transports {
		if t != "websocket" && t != "polling" {
			return fmt.Errorf("client.transports: unknown transport %q", t)
		}
	}
	if c.Client.ReconnectionAttempts < 0 {
		return errors.New("client.reconnection_attempts must be non-negative")
	}
	if c.Client.Timeout <= 0 {
		return errors.New("client.timeout must be positive")
	}
	if c.Client.MaxToasts <= 0 {
		return errors.New("client.max_toasts must be positive")
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}
