package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/dante-control/internal/config"
	"github.com/muurk/dante-control/internal/manager"
	"github.com/muurk/dante-control/internal/ui"
)

func TestAnnounce(t *testing.T) {
	defer func() { quiet = false }()

	tests := []struct {
		quiet bool
		want  string
	}{
		{false, "Discovering Devices...\n"},
		{true, ""},
	}

	for _, tt := range tests {
		quiet = tt.quiet
		var buf bytes.Buffer
		announce(ui.NewPrinter(&buf, true), "Discovering Devices...")
		if buf.String() != tt.want {
			t.Errorf("announce() with quiet=%v wrote %q, want %q", tt.quiet, buf.String(), tt.want)
		}
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"2", 2, false},
		{"65535", 65535, false},
		{"-1", 0, true},
		{"two", 0, true},
		{"65536", 0, true},
	}

	for _, tt := range tests {
		got, err := parseIndex(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseIndex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseIndex(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReceiversIn_SkipsInvalidLines(t *testing.T) {
	data := []byte(strings.Join([]string{
		"# routes",
		"4.4.1.3|Out3@Mixer1:2@Amp",
		"9.9.9.9|Out3@Mixer1:2@Ghost",
		"4.4.1.3|Out3@Mischpult-Ä:2@Ghost",
		"4.4.1.3|0@Ghost",
		"4.2.1.3|0@10.0.0.9",
		"garbage",
		"",
		"1@Stagebox",
	}, "\n"))

	got := receiversIn(data, "4.4.1.3")
	want := []string{"Amp", "10.0.0.9", "Stagebox"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("receiversIn() = %v, want %v", got, want)
	}
}

func TestAwaitReceivers_AddressesSkipDiscovery(t *testing.T) {
	mgr := manager.New(manager.Options{})
	if err := awaitReceivers(mgr, "10.0.0.5", "10.0.0.9"); err != nil {
		t.Fatalf("awaitReceivers() error = %v", err)
	}
	if mgr.Engine().Running() {
		t.Error("discovery should not start when every receiver is an address")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	defer func() { configPath, forceInit = "", false }()

	rootCmd.SetArgs([]string{"--config", path, "config", "init"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Preferences.DiscoveryTime != config.DefaultPreferences().DiscoveryTime {
		t.Errorf("DiscoveryTime = %d, want default", loaded.Preferences.DiscoveryTime)
	}

	rootCmd.SetArgs([]string{"--config", path, "config", "init"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}

	rootCmd.SetArgs([]string{"--config", path, "config", "init", "--force"})
	if err := rootCmd.Execute(); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file missing: %v", err)
	}
}

func TestDebugPrint_UnknownFamily(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "debug", "print", "rtp"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown service family") {
		t.Errorf("debug print rtp error = %v, want unknown service family", err)
	}
}
