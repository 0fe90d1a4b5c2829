// Package config loads and layers mixrand's configuration: built-in
// defaults, overridden by an INI-style config file's [cpu_rng] section,
// overridden last by CLI flags. The file sets only the [cpu_rng]
// options and the flags set only the other fields; no CpuRng option has
// a command-line flag. This follows the precedence the teacher's
// own main() enforces for its flag.NewFlagSet validation
// (cmd/padlock/main.go), generalized here to a three-tier layering
// instead of flags-only.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/mixrand/mixrand/internal/mixerr"
)

// Config is the fully resolved configuration for one mixrand invocation.
type Config struct {
	CpuRng CpuRngConfig

	// One-shot output
	Count      int
	Format     string
	OutputPath string

	// Daemon
	ThresholdBits int
	IntervalSecs  int
	BatchBytes    int
	Once          bool
	Syslog        bool

	// Disabled sources, beyond the CpuRng instruction-level gates.
	DisableHwRng   bool
	DisableHaveged bool

	LogLevel string
	LogFile  string
}

// Default returns the built-in defaults for every field.
func Default() Config {
	return Config{
		CpuRng:        DefaultCpuRngConfig(),
		Count:         32,
		Format:        "hex",
		OutputPath:    "-",
		ThresholdBits: 2048,
		IntervalSecs:  60,
		BatchBytes:    64,
		LogLevel:      "info",
	}
}

// LoadFile parses an INI-style config file and overlays its [cpu_rng]
// section onto cfg. A missing file, a section that doesn't parse, or
// an out-of-range value surfaces as mixerr.ConfigInvalid.
func LoadFile(cfg *Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return mixerr.New(mixerr.ConfigInvalid, "config.load", err)
	}

	if f.HasSection("cpu_rng") {
		sec := f.Section("cpu_rng")
		if err := sec.MapTo(&cfg.CpuRng); err != nil {
			return mixerr.New(mixerr.ConfigInvalid, "config.cpu_rng", err)
		}
	}

	if err := cfg.CpuRng.Validate(); err != nil {
		return mixerr.New(mixerr.ConfigInvalid, "config.cpu_rng", err)
	}
	return nil
}

// fieldError formats a single out-of-range field complaint, used by
// CpuRngConfig.Validate.
func fieldError(field, reason string) error {
	return fmt.Errorf("%s %s", field, reason)
}

// ValidateTop checks the top-level, non-CpuRng fields (count bounds,
// format name, daemon thresholds) that CLI parsing cannot validate
// until all flags and file values are layered in, then validates the
// CpuRng section. Every failure is a mixerr.ConfigInvalid.
func (c Config) ValidateTop() error {
	const maxCount = 1 << 20
	if c.Count < 0 || c.Count > maxCount {
		return mixerr.New(mixerr.ConfigInvalid, "config.count",
			fmt.Errorf("-n must be between 0 and %d, got %d", maxCount, c.Count))
	}
	switch c.Format {
	case "hex", "hex-upper", "raw", "base64", "base64url", "uuencode", "text", "octal", "binary":
	default:
		return mixerr.New(mixerr.ConfigInvalid, "config.format",
			fmt.Errorf("unrecognized -f format %q", c.Format))
	}
	if c.ThresholdBits <= 0 {
		return mixerr.New(mixerr.ConfigInvalid, "config.threshold",
			fmt.Errorf("-t must be positive, got %d", c.ThresholdBits))
	}
	if c.IntervalSecs <= 0 {
		return mixerr.New(mixerr.ConfigInvalid, "config.interval",
			fmt.Errorf("-i must be positive, got %d", c.IntervalSecs))
	}
	if c.BatchBytes <= 0 {
		return mixerr.New(mixerr.ConfigInvalid, "config.batch",
			fmt.Errorf("-b must be positive, got %d", c.BatchBytes))
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return mixerr.New(mixerr.ConfigInvalid, "config.log-level",
			fmt.Errorf("unrecognized --log-level %q", c.LogLevel))
	}
	if err := c.CpuRng.Validate(); err != nil {
		return mixerr.New(mixerr.ConfigInvalid, "config.cpu_rng", err)
	}
	return nil
}
