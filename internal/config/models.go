package config

import (
	"fmt"
	"time"

	"github.com/muurk/dante-control/internal/protocol"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Config represents the entire user configuration file.
type Config struct {
	Version     int          `yaml:"version"`
	Preferences *Preferences `yaml:"preferences,omitempty"`
}

// Preferences holds defaults for the CLI. Command-line flags override them.
type Preferences struct {
	DefaultVersion   string `yaml:"default_version,omitempty"` // Protocol version for batch lines without "Version|"
	DiscoveryTime    int    `yaml:"discovery_time"`            // list-devices wait in seconds
	PrintInterval    int    `yaml:"print_interval"`            // monitor refresh in seconds
	RefreshInterval  int    `yaml:"refresh_interval"`          // seconds between mDNS re-queries
	ControlTimeoutMs int    `yaml:"control_timeout_ms"`        // control request timeout
	ControlPort      int    `yaml:"control_port,omitempty"`    // 0 uses the protocol default
	Interface        string `yaml:"interface,omitempty"`       // restrict mDNS to one interface
	LogLevel         string `yaml:"log_level,omitempty"`       // debug, info, warn, error
}

// DefaultPreferences returns the built-in preference values
func DefaultPreferences() *Preferences {
	return &Preferences{
		DiscoveryTime:    5,
		PrintInterval:    2,
		RefreshInterval:  10,
		ControlTimeoutMs: 2000,
	}
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		Preferences: DefaultPreferences(),
	}
}

// DiscoveryDuration returns DiscoveryTime as a duration
func (p *Preferences) DiscoveryDuration() time.Duration {
	return time.Duration(p.DiscoveryTime) * time.Second
}

// PrintDuration returns PrintInterval as a duration
func (p *Preferences) PrintDuration() time.Duration {
	return time.Duration(p.PrintInterval) * time.Second
}

// RefreshDuration returns RefreshInterval as a duration
func (p *Preferences) RefreshDuration() time.Duration {
	return time.Duration(p.RefreshInterval) * time.Second
}

// ControlTimeout returns ControlTimeoutMs as a duration
func (p *Preferences) ControlTimeout() time.Duration {
	return time.Duration(p.ControlTimeoutMs) * time.Millisecond
}

// Validate checks that every preference is usable.
func (p *Preferences) Validate() error {
	if p.DefaultVersion != "" {
		if _, err := protocol.ParseVersion(p.DefaultVersion); err != nil {
			return fmt.Errorf("default_version: %w", err)
		}
	}
	if p.DiscoveryTime <= 0 {
		return fmt.Errorf("discovery_time must be positive, got %d", p.DiscoveryTime)
	}
	if p.PrintInterval <= 0 {
		return fmt.Errorf("print_interval must be positive, got %d", p.PrintInterval)
	}
	if p.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %d", p.RefreshInterval)
	}
	if p.ControlTimeoutMs <= 0 {
		return fmt.Errorf("control_timeout_ms must be positive, got %d", p.ControlTimeoutMs)
	}
	if p.ControlPort < 0 || p.ControlPort > 65535 {
		return fmt.Errorf("control_port out of range: %d", p.ControlPort)
	}
	return nil
}

// fillDefaults replaces zero values with the defaults
func (p *Preferences) fillDefaults() {
	def := DefaultPreferences()
	if p.DiscoveryTime == 0 {
		p.DiscoveryTime = def.DiscoveryTime
	}
	if p.PrintInterval == 0 {
		p.PrintInterval = def.PrintInterval
	}
	if p.RefreshInterval == 0 {
		p.RefreshInterval = def.RefreshInterval
	}
	if p.ControlTimeoutMs == 0 {
		p.ControlTimeoutMs = def.ControlTimeoutMs
	}
}
