// Package config holds the paired-device registry and session tuning,
// persisted as YAML under the user's config directory.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Device is one paired light fixture. Address is a Bluetooth MAC on
// Linux/Windows and a CoreBluetooth UUID string on macOS.
type Device struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// SessionConfig tunes the transport session retry and timeout policy.
// Zero values fall back to the built-in defaults.
type SessionConfig struct {
	ConnectRetries      int `yaml:"connect_retries"`
	ConnectRetryDelayMS int `yaml:"connect_retry_delay_ms"`
	SendRetries         int `yaml:"send_retries"`
	ResponseTimeoutSecs int `yaml:"response_timeout_seconds"`
}

// Config holds all persisted settings.
type Config struct {
	Devices  []Device      `yaml:"devices"`
	LogLevel string        `yaml:"log_level"`
	Session  SessionConfig `yaml:"session"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "govee-ctl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			ConnectRetries:      5,
			ConnectRetryDelayMS: 500,
			SendRetries:         2,
			ResponseTimeoutSecs: 20,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the config, returning defaults when the file does
// not exist yet. Any other error is surfaced.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	seen := make(map[string]bool)
	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device with address %q has no name", d.Address)
		}
		if err := ValidateAddress(d.Address); err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
		key := strings.ToLower(d.Name)
		if seen[key] {
			return fmt.Errorf("duplicate device name %q", d.Name)
		}
		seen[key] = true
	}

	if c.Session.ConnectRetries < 0 || c.Session.SendRetries < 0 ||
		c.Session.ConnectRetryDelayMS < 0 || c.Session.ResponseTimeoutSecs < 0 {
		return fmt.Errorf("session values must not be negative")
	}
	return nil
}

// FindDevice looks a device up by name or address, case-insensitively.
func (c *Config) FindDevice(nameOrAddress string) (Device, bool) {
	needle := strings.ToLower(strings.TrimSpace(nameOrAddress))
	for _, d := range c.Devices {
		if strings.ToLower(d.Name) == needle || strings.ToLower(d.Address) == needle {
			return d, true
		}
	}
	return Device{}, false
}

// AddDevice registers a new paired device. Names must be unique; the
// address must be a MAC or a CoreBluetooth UUID.
func (c *Config) AddDevice(name, address string) error {
	if name == "" {
		return fmt.Errorf("device name must not be empty")
	}
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if _, exists := c.FindDevice(name); exists {
		return fmt.Errorf("device %q already exists", name)
	}
	if _, exists := c.FindDevice(address); exists {
		return fmt.Errorf("device with address %q already exists", address)
	}
	c.Devices = append(c.Devices, Device{Name: name, Address: strings.ToUpper(address)})
	return nil
}

// RemoveDevice forgets a paired device by name or address. Returns false
// when no such device exists.
func (c *Config) RemoveDevice(nameOrAddress string) bool {
	needle := strings.ToLower(strings.TrimSpace(nameOrAddress))
	for i, d := range c.Devices {
		if strings.ToLower(d.Name) == needle || strings.ToLower(d.Address) == needle {
			c.Devices = append(c.Devices[:i], c.Devices[i+1:]...)
			return true
		}
	}
	return false
}

// ValidateAddress accepts 6-byte MAC addresses and the 36-character UUID
// form CoreBluetooth uses on macOS.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("device address must not be empty")
	}
	if hw, err := net.ParseMAC(address); err == nil && len(hw) == 6 {
		return nil
	}
	if isUUID(address) {
		return nil
	}
	return fmt.Errorf("invalid device address %q (want MAC or UUID)", address)
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			switch {
			case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			default:
				return false
			}
		}
	}
	return true
}
