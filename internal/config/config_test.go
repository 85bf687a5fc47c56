package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "dante-control") {
		t.Errorf("GetConfigDir() = %v, should contain 'dante-control'", configDir)
	}

	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		configDir, err = GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if configDir != filepath.Join("/tmp/xdg", "dante-control") {
			t.Errorf("GetConfigDir() with XDG_CONFIG_HOME = %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("NewConfig().Version = %v, want %v", cfg.Version, CurrentVersion)
	}
	if cfg.Preferences == nil {
		t.Fatal("NewConfig().Preferences should not be nil")
	}

	p := cfg.Preferences
	if p.DiscoveryDuration() != 5*time.Second {
		t.Errorf("DiscoveryDuration() = %v, want 5s", p.DiscoveryDuration())
	}
	if p.PrintDuration() != 2*time.Second {
		t.Errorf("PrintDuration() = %v, want 2s", p.PrintDuration())
	}
	if p.RefreshDuration() != 10*time.Second {
		t.Errorf("RefreshDuration() = %v, want 10s", p.RefreshDuration())
	}
	if p.ControlTimeout() != 2*time.Second {
		t.Errorf("ControlTimeout() = %v, want 2s", p.ControlTimeout())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Preferences.DiscoveryTime != 5 {
		t.Errorf("DiscoveryTime = %v, want default 5", cfg.Preferences.DiscoveryTime)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := NewConfig()
	cfg.Preferences.DefaultVersion = "4.4.1.3"
	cfg.Preferences.Interface = "en0"
	cfg.Preferences.ControlTimeoutMs = 750

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save()")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# dante-control configuration") {
		t.Error("saved file should start with the header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Preferences.DefaultVersion != "4.4.1.3" {
		t.Errorf("DefaultVersion = %v, want 4.4.1.3", loaded.Preferences.DefaultVersion)
	}
	if loaded.Preferences.Interface != "en0" {
		t.Errorf("Interface = %v, want en0", loaded.Preferences.Interface)
	}
	if loaded.Preferences.ControlTimeout() != 750*time.Millisecond {
		t.Errorf("ControlTimeout() = %v, want 750ms", loaded.Preferences.ControlTimeout())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial preferences get defaults",
			yaml: "version: 1\npreferences:\n  print_interval: 3\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Preferences.PrintInterval != 3 {
					t.Errorf("PrintInterval = %v, want 3", cfg.Preferences.PrintInterval)
				}
				if cfg.Preferences.DiscoveryTime != 5 {
					t.Errorf("DiscoveryTime = %v, want 5", cfg.Preferences.DiscoveryTime)
				}
			},
		},
		{
			name: "no preferences section",
			yaml: "version: 1\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Preferences == nil || cfg.Preferences.ControlTimeoutMs != 2000 {
					t.Errorf("Preferences = %+v, want defaults", cfg.Preferences)
				}
			},
		},
		{
			name:    "unsupported version",
			yaml:    "version: 7\n",
			wantErr: true,
		},
		{
			name:    "unknown protocol version",
			yaml:    "version: 1\npreferences:\n  default_version: 9.9.9.9\n",
			wantErr: true,
		},
		{
			name:    "negative timeout",
			yaml:    "version: 1\npreferences:\n  control_timeout_ms: -5\n",
			wantErr: true,
		},
		{
			name:    "negative refresh interval",
			yaml:    "version: 1\npreferences:\n  refresh_interval: -1\n",
			wantErr: true,
		},
		{
			name:    "port out of range",
			yaml:    "version: 1\npreferences:\n  control_port: 70000\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    "version: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
