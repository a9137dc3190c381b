// internal/config/types.go
package config

// Config is the full sampler configuration, populated from defaults, an
// optional YAML file, the environment, and command-line flags, in that order
// of increasing precedence.
type Config struct {
	Stream    string `yaml:"stream"`
	OutDir    string `yaml:"out_dir"`
	UploadDir string `yaml:"upload_dir"`
	HistoryDB string `yaml:"history_db"`

	// Condition selects event-driven mode when non-empty; otherwise the
	// sampler runs periodically.
	Condition       string `yaml:"condition"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`

	IntervalSeconds int    `yaml:"interval_seconds"`
	Schedule        string `yaml:"schedule"` // cron expression with seconds, overrides interval

	Retry               int `yaml:"retry"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	Quality             int `yaml:"quality"`

	Broker  Broker  `yaml:"broker"`
	Logging Logging `yaml:"logging"`
}

// Broker holds MQTT connection settings. Credentials usually come from the
// environment rather than the file.
type Broker struct {
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Logging struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`
}
