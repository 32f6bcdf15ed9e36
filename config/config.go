package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stellar/go/network"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the effects processor
type Config struct {
	// Service identification
	ServiceName    string `yaml:"service_name"    env:"SERVICE_NAME"`
	ServiceVersion string `yaml:"service_version" env:"SERVICE_VERSION"`

	// Network is a named network (public, testnet, futurenet) or a literal
	// passphrase. NetworkPassphrase is resolved from it by Load.
	Network           string `yaml:"network"            env:"NETWORK"`
	NetworkPassphrase string `yaml:"network_passphrase" env:"NETWORK_PASSPHRASE"`

	// HTTP server
	ListenAddress   string        `yaml:"listen_address"   env:"LISTEN_ADDRESS"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"MAX_BODY_BYTES"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// Analysis
	CacheTTL            time.Duration `yaml:"cache_ttl"             env:"CACHE_TTL"`
	ProcessSystemEvents bool          `yaml:"process_system_events" env:"PROCESS_SYSTEM_EVENTS"`

	MetricsEnabled bool `yaml:"metrics_enabled" env:"METRICS_ENABLED"`

	// Logging
	LogLevel  string `yaml:"log_level"  env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	Debug     bool   `yaml:"debug"      env:"DEBUG"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ServiceName:     "effects-processor",
		ServiceVersion:  "v1.0.0",
		Network:         "public",
		ListenAddress:   ":8090",
		MaxBodyBytes:    4 << 20,
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CacheTTL:        10 * time.Minute,
		MetricsEnabled:  true,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load reads an optional YAML file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if cfg.NetworkPassphrase == "" {
		cfg.NetworkPassphrase = ResolveNetwork(cfg.Network)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveNetwork maps a network name to its passphrase. Anything that is not
// a known name is taken to be a passphrase already.
func ResolveNetwork(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "public", "pubnet", "mainnet":
		return network.PublicNetworkPassphrase
	case "testnet", "test":
		return network.TestNetworkPassphrase
	case "futurenet":
		return network.FutureNetworkPassphrase
	default:
		return name
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.NetworkPassphrase == "" {
		return fmt.Errorf("network passphrase is required")
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body size must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Service: %s/%s, Network: %s, Listen: %s, CacheTTL: %s, SystemEvents: %v, Metrics: %v}",
		c.ServiceName, c.ServiceVersion, c.NetworkPassphrase,
		c.ListenAddress, c.CacheTTL, c.ProcessSystemEvents, c.MetricsEnabled,
	)
}
