package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file the CLI looks for in the working
// directory.
const DefaultFileName = "warren.yml"

// WarrenConfig represents the top-level warren.yml configuration
type WarrenConfig struct {
	Version  string          `yaml:"version"`
	Instance *InstanceConfig `yaml:"instance,omitempty"`
	Redis    *RedisConfig    `yaml:"redis,omitempty"`
	Engine   *EngineConfig   `yaml:"engine,omitempty"`
}

// InstanceConfig names the engine instance; the name namespaces every
// Redis key and channel.
type InstanceConfig struct {
	Name string `yaml:"name"`
}

// RedisConfig specifies how to reach the persistence server
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// EngineConfig specifies collaboration engine behavior
type EngineConfig struct {
	// ConflictWindowMs is the concurrent-edit detection window
	// (0 = engine default of five minutes)
	ConflictWindowMs *int64 `yaml:"conflict_window_ms,omitempty"`

	// DefaultProject is the project id used when a command does not
	// specify one
	DefaultProject string `yaml:"default_project,omitempty"`
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted sections
func (c *WarrenConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == nil {
		c.Instance = &InstanceConfig{Name: "warren"}
	} else if c.Instance.Name == "" {
		return fmt.Errorf("instance.name cannot be empty when the instance section is present")
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{Addr: "localhost:6379"}
	} else if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when the redis section is present")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.ConflictWindowMs != nil && *c.Engine.ConflictWindowMs < 0 {
		return fmt.Errorf("engine.conflict_window_ms must be >= 0 (0 = default window), got %d", *c.Engine.ConflictWindowMs)
	}

	return nil
}

// ConflictWindowMs returns the configured detection window, or 0 when the
// engine default should apply.
func (c *WarrenConfig) ConflictWindowMs() int64 {
	if c.Engine == nil || c.Engine.ConflictWindowMs == nil {
		return 0
	}
	return *c.Engine.ConflictWindowMs
}

// Load reads and validates warren.yml from the specified path
func Load(path string) (*WarrenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config WarrenConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
