// Package orchconfig reads the minimal orchestrator configuration the
// control loop needs to boot. Full YAML config loading (precedence
// layers, schema validation, live reload) is an external collaborator;
// this package only parses the handful of fields orchestra.Mayor consumes.
package orchconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of .foreman/config.yaml.
type Config struct {
	Workspace               string `yaml:"workspace"`
	PollIntervalSeconds     int    `yaml:"poll_interval_seconds"`
	RateLimitBackoffSeconds int    `yaml:"rate_limit_backoff_seconds"`
	MaxConcurrentAgents     int    `yaml:"max_concurrent_agents"`
}

func (c Config) withDefaults() Config {
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 5
	}
	if c.RateLimitBackoffSeconds <= 0 {
		c.RateLimitBackoffSeconds = 30
	}
	if c.MaxConcurrentAgents <= 0 {
		c.MaxConcurrentAgents = 4
	}
	return c
}

// PollInterval returns the configured poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RateLimitBackoff returns the configured rate-limit backoff as a duration.
func (c Config) RateLimitBackoff() time.Duration {
	return time.Duration(c.RateLimitBackoffSeconds) * time.Second
}

// Load reads and parses a config file at path, applying defaults for any
// zero-valued field. A missing file yields the all-defaults Config.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}.withDefaults(), nil
	}
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
