package config

// CpuRngConfig holds the tunables for the CpuRng source. Fields mirror
// the `[cpu_rng]` section recognized in the config file. There are no
// CLI flags for these fields; the config file is the only way to
// override the built-in defaults.
type CpuRngConfig struct {
	EnableRdseed bool `ini:"enable_rdseed"`
	EnableRdrand bool `ini:"enable_rdrand"`
	EnableXstore bool `ini:"enable_xstore"`

	RdseedRetries int `ini:"rdseed_retries"`
	RdrandRetries int `ini:"rdrand_retries"`

	XstoreQuality int `ini:"xstore_quality"`

	// Prefer names the CPU instruction tried first: "rdseed", "rdrand",
	// or "xstore".
	Prefer string `ini:"prefer"`

	FallbackMixBytes int `ini:"fallback_mix_bytes"`
	Oversample       int `ini:"oversample"`
}

// DefaultCpuRngConfig returns the built-in defaults, the first
// precedence tier before file values and CLI flags are layered on.
func DefaultCpuRngConfig() CpuRngConfig {
	return CpuRngConfig{
		EnableRdseed:     true,
		EnableRdrand:     true,
		EnableXstore:     true,
		RdseedRetries:    100,
		RdrandRetries:    10,
		XstoreQuality:    2,
		Prefer:           "rdseed",
		FallbackMixBytes: 32,
		Oversample:       4,
	}
}

// Validate enforces the ranges documented for each option.
func (c CpuRngConfig) Validate() error {
	if c.RdseedRetries < 1 || c.RdseedRetries > 65535 {
		return fieldError("rdseed_retries", "must be between 1 and 65535")
	}
	if c.RdrandRetries < 1 || c.RdrandRetries > 65535 {
		return fieldError("rdrand_retries", "must be between 1 and 65535")
	}
	if c.XstoreQuality < 0 || c.XstoreQuality > 3 {
		return fieldError("xstore_quality", "must be between 0 and 3")
	}
	switch c.Prefer {
	case "rdseed", "rdrand", "xstore":
	default:
		return fieldError("prefer", `must be one of "rdseed", "rdrand", "xstore"`)
	}
	if c.FallbackMixBytes < 0 || c.FallbackMixBytes > 1024 {
		return fieldError("fallback_mix_bytes", "must be between 0 and 1024")
	}
	if c.Oversample < 1 || c.Oversample > 16 {
		return fieldError("oversample", "must be between 1 and 16")
	}
	return nil
}
