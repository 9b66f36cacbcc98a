// Package config loads the relay configuration from an optional YAML
// file plus WESSAAL_* environment overrides. Components never read the
// environment themselves; the loaded Config is passed into every
// constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Validation failures map to distinct exit codes in the serve command.
var (
	ErrMissingEndpoint = errors.New("upstream endpoint is required")
	ErrMissingInstance = errors.New("instance is required when not in global mode")
)

// Config captures the full runtime configuration of the relay.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`
	Webhook  WebhookConfig  `mapstructure:"webhook" yaml:"webhook"`
	Fanout   FanoutConfig   `mapstructure:"fanout" yaml:"fanout"`
	Mirror   MirrorConfig   `mapstructure:"mirror" yaml:"mirror"`
	Raw      RawConfig      `mapstructure:"raw" yaml:"raw"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// UpstreamConfig describes the upstream event stream connection.
type UpstreamConfig struct {
	// Endpoint is the base URL of the upstream socket.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Global selects multi-tenant mode; when false the connection is
	// scoped to a single instance and Endpoint is suffixed with it.
	Global   bool   `mapstructure:"global" yaml:"global"`
	Instance string `mapstructure:"instance" yaml:"instance"`
	// Events is the allow-list of event names to relay. Empty means
	// catch-all: every event the upstream emits is relayed.
	Events []string `mapstructure:"events" yaml:"events"`
}

// WebhookConfig describes the backend webhook delivery target.
type WebhookConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	Secret     string        `mapstructure:"secret" yaml:"secret"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Retries    int           `mapstructure:"retries" yaml:"retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// FanoutConfig describes the browser-facing fan-out server.
type FanoutConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	MountPath      string   `mapstructure:"mount_path" yaml:"mount_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// MirrorConfig enables mirroring envelopes onto a NATS subject per
// instance. Disabled when URL is empty.
type MirrorConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// RawConfig controls inclusion of the serialized original payload in
// envelopes.
type RawConfig struct {
	Include   bool `mapstructure:"include" yaml:"include"`
	ByteLimit int  `mapstructure:"byte_limit" yaml:"byte_limit"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config populated with sane defaults.
func Default() Config {
	return Config{
		Upstream: UpstreamConfig{
			Global: true,
		},
		Webhook: WebhookConfig{
			Retries:    3,
			Timeout:    10 * time.Second,
			RetryDelay: time.Second,
		},
		Fanout: FanoutConfig{
			Port:      8099,
			MountPath: "/ws",
		},
		Raw: RawConfig{
			ByteLimit: 512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the optional file at path, applies
// WESSAAL_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WESSAAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("upstream.endpoint", def.Upstream.Endpoint)
	v.SetDefault("upstream.global", def.Upstream.Global)
	v.SetDefault("upstream.instance", def.Upstream.Instance)
	v.SetDefault("upstream.events", def.Upstream.Events)
	v.SetDefault("webhook.url", def.Webhook.URL)
	v.SetDefault("webhook.secret", def.Webhook.Secret)
	v.SetDefault("webhook.api_key", def.Webhook.APIKey)
	v.SetDefault("webhook.retries", def.Webhook.Retries)
	v.SetDefault("webhook.timeout", def.Webhook.Timeout)
	v.SetDefault("webhook.retry_delay", def.Webhook.RetryDelay)
	v.SetDefault("fanout.port", def.Fanout.Port)
	v.SetDefault("fanout.mount_path", def.Fanout.MountPath)
	v.SetDefault("fanout.allowed_origins", def.Fanout.AllowedOrigins)
	v.SetDefault("mirror.url", def.Mirror.URL)
	v.SetDefault("raw.include", def.Raw.Include)
	v.SetDefault("raw.byte_limit", def.Raw.ByteLimit)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

// normalize clamps out-of-range values to usable ones.
func (c *Config) normalize() {
	if c.Webhook.Retries < 1 {
		c.Webhook.Retries = 1
	}
	if c.Raw.ByteLimit <= 0 {
		c.Raw.ByteLimit = Default().Raw.ByteLimit
	}
	if !strings.HasPrefix(c.Fanout.MountPath, "/") {
		c.Fanout.MountPath = "/" + c.Fanout.MountPath
	}
}

// Validate checks the boundary conditions the pipeline assumes were
// enforced before it runs. Violations are fatal at startup.
func (c *Config) Validate() error {
	if c.Upstream.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if !c.Upstream.Global && c.Upstream.Instance == "" {
		return ErrMissingInstance
	}
	return nil
}

// CatchAll reports whether the dispatcher should observe every event
// name instead of an allow-list.
func (c *Config) CatchAll() bool {
	return len(c.Upstream.Events) == 0
}

// WriteDefault writes a starter configuration file with default values
// to path. Used by the "config init" command.
func WriteDefault(path string) error {
	cfg := Default()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
