// Package config loads server settings from a YAML file overlaid with
// CONFIGQL_* environment variables.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Protocol-Lattice/configql/schema"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONFIGQL_"

// Config holds the server settings.
type Config struct {
	Addr                 string        `yaml:"addr" env:"ADDR"`
	FastHTTPAddr         string        `yaml:"fasthttp_addr" env:"FASTHTTP_ADDR"`
	SchemaPath           string        `yaml:"schema_path" env:"SCHEMA_PATH"`
	LogLevel             string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat            string        `yaml:"log_format" env:"LOG_FORMAT"`
	OTLPEndpoint         string        `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	SkipInvalidMutations bool          `yaml:"skip_invalid_mutations" env:"SKIP_INVALID_MUTATIONS"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// Rules bind mutations that carry no directive. File only.
	Rules []schema.Rule `yaml:"rules" env:"-"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Addr:            ":8080",
		SchemaPath:      "schema.graphql",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.Addr == "" && c.FastHTTPAddr == "" {
		return errors.New("config: one of addr or fasthttp_addr is required")
	}
	if c.SchemaPath == "" {
		return errors.New("config: schema_path is required")
	}
	if c.ShutdownTimeout < 0 {
		return errors.Errorf("config: negative shutdown_timeout %s", c.ShutdownTimeout)
	}
	return nil
}
