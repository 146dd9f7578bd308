package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
heap_size = 2097152
log_level = "debug"
sgi_number = 10

[mmio]
uart_phys_base = 305419896
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HeapSize != 2097152 {
		t.Fatalf("HeapSize = %d, want 2097152", cfg.HeapSize)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.SGINumber != 10 {
		t.Fatalf("SGINumber = %d, want 10", cfg.SGINumber)
	}
	if cfg.MMIO.UARTPhysBase != 305419896 {
		t.Fatalf("MMIO.UARTPhysBase = %d, want 305419896", cfg.MMIO.UARTPhysBase)
	}
	// Untouched field keeps its default.
	def := Default()
	if cfg.MMIO.GICDPhysBase != def.MMIO.GICDPhysBase {
		t.Fatalf("MMIO.GICDPhysBase = %#x, want default %#x", cfg.MMIO.GICDPhysBase, def.MMIO.GICDPhysBase)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.toml"); err == nil {
		t.Fatal("expected an error loading a nonexistent config file")
	}
}

func TestDefaultMatchesBSPConstants(t *testing.T) {
	cfg := Default()
	if cfg.SGINumber != 9 {
		t.Fatalf("SGINumber default = %d, want 9", cfg.SGINumber)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel default = %q, want info", cfg.LogLevel)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("unexpected error validating Default(): %v", err)
	}
}

func TestLoadRejectsCoreCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("core_count = 8\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a config with a mismatched core_count")
	}
}

func TestLoadRejectsStackSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("stack_size = 4096\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a config with a mismatched stack_size")
	}
}

func TestLoadRejectsInvalidTickPeriod(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`tick_period = "not-a-duration"`+"\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading a config with an invalid tick_period")
	}
}

func TestTickPeriodDurationParsesDefault(t *testing.T) {
	d, err := Default().TickPeriodDuration()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 10*time.Millisecond {
		t.Fatalf("TickPeriodDuration() = %v, want 10ms", d)
	}
}
