// internal/config/loader.go
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, an optional YAML file, and the
// environment. path may be empty. Flag overrides are the caller's business.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stream:              "camera",
		CooldownSeconds:     5,
		IntervalSeconds:     300,
		Retry:               5,
		FetchTimeoutSeconds: 5,
		Quality:             90,
		Broker: Broker{
			URL:      "tcp://localhost:1883",
			ClientID: "camsampler",
		},
		Logging: Logging{
			Format: "text",
			Level:  "info",
		},
	}
}

// applyEnv overlays broker settings from a .env file (if present) and the
// environment. Credentials belong here, not in the YAML file.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.Broker.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.Broker.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.Broker.Password = v
	}
}

// Validate rejects configurations the loops cannot run with. The trigger
// expression is compiled separately so its error can name the expression.
func (c *Config) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("stream must not be empty")
	}
	if c.Condition == "" && c.Schedule == "" && c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive in periodic mode, got %d", c.IntervalSeconds)
	}
	if c.Condition != "" && c.Schedule != "" {
		return fmt.Errorf("condition and schedule are mutually exclusive")
	}
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds must not be negative, got %d", c.CooldownSeconds)
	}
	if c.Retry < 1 {
		return fmt.Errorf("retry must be at least 1, got %d", c.Retry)
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be positive, got %d", c.FetchTimeoutSeconds)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	if c.Broker.URL == "" {
		return fmt.Errorf("broker url must not be empty")
	}
	return nil
}
