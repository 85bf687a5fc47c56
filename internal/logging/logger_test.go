package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		verbose int
		quiet   bool
		want    string
	}{
		{0, false, ""},
		{1, false, "info"},
		{2, false, "debug"},
		{5, false, "debug"},
		{2, true, "error"},
		{0, true, "error"},
	}

	for _, tt := range tests {
		if got := LevelForVerbosity(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("LevelForVerbosity(%d, %v) = %q, want %q", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

func TestInitialize_SilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestLogDeviceEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDeviceEvent("Amp", "subscribed", zap.Int("rx_channel", 2))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["device"] != "Amp" {
		t.Errorf("device field = %v, want Amp", fields["device"])
	}
	if fields["event"] != "subscribed" {
		t.Errorf("event field = %v, want subscribed", fields["event"])
	}
	if fields["rx_channel"] != int64(2) {
		t.Errorf("rx_channel field = %v, want 2", fields["rx_channel"])
	}
}

func TestDumps(t *testing.T) {
	data := []byte{0x27, 0x29, 'A', 'm', 'p', 0x00}
	if got := hexDump(data); got != "2729416d7000" {
		t.Errorf("hexDump() = %q", got)
	}
	if got := asciiDump(data); got != "')Amp." {
		t.Errorf("asciiDump() = %q", got)
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should give empty dumps")
	}

	long := make([]byte, 300)
	if got := hexDump(long); len(got) != 512+3 {
		t.Errorf("hexDump() of 300 bytes has length %d, want 515", len(got))
	}
}
