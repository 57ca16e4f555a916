// Package config loads runtime configuration: defaults first, then an
// optional YAML file, then AUTH_API_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"authapi/backend/internal/infrastructure/hasher"
	"authapi/backend/internal/infrastructure/token"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AUTH_API_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "app_configs.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config centralises runtime configuration.
type Config struct {
	AppName  string      `yaml:"app_name" env:"APP_NAME"`
	TimeZone string      `yaml:"time_zone" env:"TIME_ZONE"`
	Auth     AuthConfig  `yaml:"auth" envPrefix:"AUTH_"`
	Store    StoreConfig `yaml:"store" envPrefix:"STORE_"`
	HTTP     HTTPConfig  `yaml:"http" envPrefix:"HTTP_"`
	Log      LogConfig   `yaml:"log" envPrefix:"LOG_"`
}

// AuthConfig holds the credential and token settings. SecretKey signs
// tokens; EncryptKey is the pepper appended to passwords; Salt is the
// deployment-wide hashing salt.
type AuthConfig struct {
	SecretKey     string   `yaml:"secret_key" env:"SECRET_KEY"`
	Algorithm     string   `yaml:"algorithm" env:"ALGORITHM"`
	HashAlgorithm string   `yaml:"hash_algorithm" env:"HASH_ALGORITHM"`
	EncryptKey    string   `yaml:"encrypt_key" env:"ENCRYPT_KEY"`
	Salt          string   `yaml:"salt" env:"SALT"`
	ExpireDelta   Lifetime `yaml:"expire_delta" env:"EXPIRE_DELTA"`
}

// StoreConfig selects and configures the credential store.
type StoreConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	DSN      string `yaml:"dsn" env:"DSN"`
	Database string `yaml:"database" env:"DATABASE"`
	Path     string `yaml:"path" env:"PATH"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HOST"`
	Port           string        `yaml:"port" env:"PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Addr joins host and port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// LoadDefaults populates Config with development defaults. The secret and
// salt stay empty so a deployment cannot start without setting them.
func (c *Config) LoadDefaults() {
	c.AppName = "auth-api"
	c.TimeZone = "UTC"
	c.Auth.Algorithm = token.DefaultAlgorithm
	c.Auth.HashAlgorithm = hasher.Argon2id
	c.Auth.ExpireDelta = Lifetime(24 * time.Hour)
	c.Store.Driver = DriverSQLite
	c.Store.Path = "var/auth.db"
	c.HTTP.Host = "0.0.0.0"
	c.HTTP.Port = "8080"
	c.HTTP.ReadTimeout = 15 * time.Second
	c.HTTP.WriteTimeout = 15 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.Format = "json"
}

// Load builds a Config from defaults, the YAML file at path and the
// environment, then validates it. An empty path means DefaultPath, which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time_zone %q: %v", ErrInvalidConfig, c.TimeZone, err)
	}
	return loc, nil
}

// Validate checks that the configuration can start the service.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		problems = append(problems, "auth.secret_key is required")
	}
	if c.Auth.Salt == "" {
		problems = append(problems, "auth.salt is required")
	}
	if !token.Supported(strings.ToUpper(c.Auth.Algorithm)) {
		problems = append(problems, fmt.Sprintf("auth.algorithm %q is not supported", c.Auth.Algorithm))
	}
	if !hasher.Supported(strings.ToLower(c.Auth.HashAlgorithm)) {
		problems = append(problems, fmt.Sprintf("auth.hash_algorithm %q is not supported", c.Auth.HashAlgorithm))
	}
	if c.Auth.ExpireDelta <= 0 {
		problems = append(problems, "auth.expire_delta must be positive")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		problems = append(problems, fmt.Sprintf("time_zone %q cannot be loaded", c.TimeZone))
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required for postgres")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for sqlite")
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.HTTP.Port == "" {
		problems = append(problems, "http.port is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
