// Package config loads daemon settings from an optional YAML file overlaid by
// CHARM_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/and161185/charm/internal/audit"
	"github.com/and161185/charm/internal/limiter"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "CHARM_"

// Limiter configures the login limiter.
type Limiter struct {
	Window   time.Duration `yaml:"window" env:"WINDOW"`
	MaxFails int           `yaml:"max_fails" env:"MAX_FAILS"`
	BlockFor time.Duration `yaml:"block_for" env:"BLOCK_FOR"`
}

// Policy converts the settings into a limiter policy.
func (l Limiter) Policy() limiter.Policy {
	return limiter.Policy{Window: l.Window, MaxFails: l.MaxFails, BlockFor: l.BlockFor}
}

// Config is the full daemon configuration.
type Config struct {
	DSN           string        `yaml:"dsn" env:"DSN"`
	Addr          string        `yaml:"addr" env:"ADDR"`
	JWTKey        string        `yaml:"jwt_key" env:"JWT_KEY"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	TLSCert       string        `yaml:"tls_cert" env:"TLS_CERT"`
	TLSKey        string        `yaml:"tls_key" env:"TLS_KEY"`
	DevReflection bool          `yaml:"dev_reflection" env:"DEV_REFLECTION"`
	Migrate       bool          `yaml:"migrate" env:"MIGRATE"`

	Audit   audit.Config `yaml:"audit" envPrefix:"AUDIT_"`
	Limiter Limiter      `yaml:"limiter" envPrefix:"LIMITER_"`
}

// Default returns the built-in settings.
func Default() Config {
	p := limiter.DefaultPolicy
	return Config{
		Addr:      ":8443",
		AccessTTL: 15 * time.Minute,
		Migrate:   true,
		Audit:     audit.DefaultConfig(),
		Limiter:   Limiter{Window: p.Window, MaxFails: p.MaxFails, BlockFor: p.BlockFor},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports settings the daemon cannot start without.
func (c Config) Validate() error {
	var problems []error
	if c.DSN == "" {
		problems = append(problems, errors.New("dsn is required"))
	}
	if len(c.JWTKey) < 16 {
		problems = append(problems, errors.New("jwt_key must be at least 16 bytes"))
	}
	if c.AccessTTL <= 0 {
		problems = append(problems, errors.New("access_ttl must be positive"))
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		problems = append(problems, errors.New("tls_cert and tls_key go together"))
	}
	if c.Limiter.MaxFails <= 0 || c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0 {
		problems = append(problems, errors.New("limiter settings must be positive"))
	}
	return errors.Join(problems...)
}
