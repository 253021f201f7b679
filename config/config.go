// Package config loads nano-inventory settings from YAML with env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nanoncore/nano-inventory/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath  = "NANO_INVENTORY_CONFIG"
	EnvDatabaseURL = "NANO_INVENTORY_DATABASE_URL"
	EnvLogLevel    = "NANO_INVENTORY_LOG_LEVEL"
	EnvConcurrency = "NANO_INVENTORY_FETCH_CONCURRENCY"
)

var (
	errInvalidTimeout     = errors.New("config: snmp timeout must be positive")
	errInvalidRetries     = errors.New("config: snmp retries must not be negative")
	errInvalidVersion     = errors.New("config: snmp version must be 1, 2c or 3")
	errInvalidPort        = errors.New("config: port out of range")
	errInvalidConcurrency = errors.New("config: fetch concurrency must be at least 1")
	errDeviceName         = errors.New("config: device name required")
	errDeviceAddress      = errors.New("config: device address required")
)

// SNMPConfig holds polling defaults applied to every session.
type SNMPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	Port      int           `yaml:"port"`
	Community string        `yaml:"community"`
	Version   string        `yaml:"version"`
}

// DiscoveryConfig tunes reconciliation runs.
type DiscoveryConfig struct {
	FetchConcurrency int           `yaml:"fetch_concurrency"`
	WalkTimeout      time.Duration `yaml:"walk_timeout"`
	DeviceTimeout    time.Duration `yaml:"device_timeout"`
}

// DatabaseConfig selects the inventory store. An empty URL means in-memory.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DeviceConfig seeds a device into the in-memory store.
type DeviceConfig struct {
	Name          string `yaml:"name"`
	Address       string `yaml:"address"`
	Vendor        string `yaml:"vendor"`
	Model         string `yaml:"model"`
	SNMPCommunity string `yaml:"snmp_community"`
	SNMPVersion   string `yaml:"snmp_version"`
	SNMPPort      int    `yaml:"snmp_port"`
	CLIUsername   string `yaml:"cli_username"`
	CLIPassword   string `yaml:"cli_password"`
	CLIPort       int    `yaml:"cli_port"`

	// Annotations are copied onto the device (e.g. onu.type, snmp.timeout)
	Annotations map[string]string `yaml:"annotations"`
}

// Config is the root configuration document.
type Config struct {
	Logging   logger.Config   `yaml:"logging"`
	SNMP      SNMPConfig      `yaml:"snmp"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Devices   []DeviceConfig  `yaml:"devices"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: logger.Config{Level: "info"},
		SNMP: SNMPConfig{
			Timeout:   5 * time.Second,
			Retries:   3,
			Port:      161,
			Community: "public",
			Version:   "2c",
		},
		Discovery: DiscoveryConfig{
			FetchConcurrency: 4,
			WalkTimeout:      60 * time.Second,
			DeviceTimeout:    5 * time.Minute,
		},
		Database: DatabaseConfig{MaxOpenConns: 10},
		Metrics:  MetricsConfig{Listen: ":9108"},
	}
}

// Load reads the file at path (or $NANO_INVENTORY_CONFIG when path is empty),
// applies env overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.fillDeviceDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}

	cfg.Discovery.FetchConcurrency = getenvIntDefault(EnvConcurrency, cfg.Discovery.FetchConcurrency)
}

func (c *Config) fillDeviceDefaults() {
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Vendor == "" {
			d.Vendor = "zte"
		}
		if d.SNMPCommunity == "" {
			d.SNMPCommunity = c.SNMP.Community
		}
		if d.SNMPVersion == "" {
			d.SNMPVersion = c.SNMP.Version
		}
		if d.SNMPPort == 0 {
			d.SNMPPort = c.SNMP.Port
		}
		if d.CLIPort == 0 {
			d.CLIPort = 22
		}
	}
}

// Validate rejects values the discovery engine cannot run with.
func (c Config) Validate() error {
	if c.SNMP.Timeout <= 0 {
		return errInvalidTimeout
	}

	if c.SNMP.Retries < 0 {
		return errInvalidRetries
	}

	if !validVersion(c.SNMP.Version) {
		return fmt.Errorf("%w: %q", errInvalidVersion, c.SNMP.Version)
	}

	if c.SNMP.Port <= 0 || c.SNMP.Port > 65535 {
		return fmt.Errorf("%w: snmp port %d", errInvalidPort, c.SNMP.Port)
	}

	if c.Discovery.FetchConcurrency < 1 {
		return errInvalidConcurrency
	}

	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: %w", i, errDeviceName)
		}
		if d.Address == "" {
			return fmt.Errorf("device %s: %w", d.Name, errDeviceAddress)
		}
		if !validVersion(d.SNMPVersion) {
			return fmt.Errorf("device %s: %w: %q", d.Name, errInvalidVersion, d.SNMPVersion)
		}
		if d.SNMPPort <= 0 || d.SNMPPort > 65535 {
			return fmt.Errorf("device %s: %w: snmp port %d", d.Name, errInvalidPort, d.SNMPPort)
		}
	}

	return nil
}

func validVersion(v string) bool {
	switch v {
	case "1", "2c", "3":
		return true
	}
	return false
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
