package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateTop(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestValidateTopRejectsCountOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Count = 1 << 21
	if err := cfg.ValidateTop(); err == nil {
		t.Errorf("expected error for count above 2^20")
	}
}

func TestValidateTopRejectsBadFormat(t *testing.T) {
	cfg := Default()
	cfg.Format = "ebcdic"
	if err := cfg.ValidateTop(); err == nil {
		t.Errorf("expected error for unrecognized format")
	}
}

func TestValidateTopRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if err := cfg.ValidateTop(); err == nil {
		t.Errorf("expected error for unrecognized log level")
	}
}

func TestCpuRngValidateRanges(t *testing.T) {
	cfg := DefaultCpuRngConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default cpu_rng config to validate, got %v", err)
	}

	bad := cfg
	bad.Prefer = "quantum"
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for unrecognized prefer value")
	}

	bad = cfg
	bad.Oversample = 0
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for oversample below 1")
	}
}

func TestLoadFileOverlaysSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixrand.ini")
	contents := "[cpu_rng]\nenable_xstore = false\nprefer = rdrand\nrdseed_retries = 50\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := LoadFile(&cfg, path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CpuRng.EnableXstore {
		t.Errorf("expected enable_xstore overridden to false")
	}
	if cfg.CpuRng.Prefer != "rdrand" {
		t.Errorf("expected prefer overridden to rdrand, got %q", cfg.CpuRng.Prefer)
	}
	if cfg.CpuRng.RdseedRetries != 50 {
		t.Errorf("expected rdseed_retries overridden to 50, got %d", cfg.CpuRng.RdseedRetries)
	}
}

func TestLoadFileRejectsMissingPath(t *testing.T) {
	cfg := Default()
	if err := LoadFile(&cfg, "/nonexistent/mixrand.ini"); err == nil {
		t.Errorf("expected error loading a nonexistent config file")
	}
}
