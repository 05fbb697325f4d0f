// Package config loads the limitd server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

// ServerConfig is the full server configuration surface.
type ServerConfig struct {
	Listen  string         `yaml:"listen"`
	DBPath  string         `yaml:"db_path"`
	Policy  limiter.Policy `yaml:"policy"`
	Cleanup CleanupConfig  `yaml:"cleanup"`
	Logging LoggingConfig  `yaml:"logging"`
	Tracing TracingConfig  `yaml:"tracing"`
}

type CleanupConfig struct {
	IntervalS int `yaml:"interval_s"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// DefaultConfig returns a config with sensible defaults: fixed window,
// 100 requests per minute, clients keyed by IP.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Listen: ":8080",
		DBPath: "limitd.db",
		Policy: limiter.Policy{
			Algorithm:    limiter.AlgorithmFixedWindow,
			RequestLimit: 100,
			TimeWindow:   "1m",
			ClientIDType: limiter.ClientIDIP,
			Active:       true,
		},
		Cleanup: CleanupConfig{IntervalS: 30},
		Logging: LoggingConfig{Level: "info"},
		Tracing: TracingConfig{SampleRatio: 1},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing file
// is not an error; the defaults are returned unchanged.
func Load(path string) (*ServerConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *ServerConfig) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Cleanup.IntervalS < 0 {
		return fmt.Errorf("cleanup interval_s must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample_ratio must be between 0 and 1")
	}
	return nil
}
