// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDSN selects the attendance store. Empty means in-memory;
	// anything else is passed to the SQLite driver as a DSN.
	StoreDSN string `koanf:"store_dsn"`

	// FastIntervalMS is the software-decode sampling cadence.
	FastIntervalMS int `koanf:"fast_interval_ms"`

	// SlowIntervalMS is the native-inference sampling cadence.
	SlowIntervalMS int `koanf:"slow_interval_ms"`

	// CooldownMS is the settling window after a detection during which
	// further results are discarded.
	CooldownMS int `koanf:"cooldown_ms"`

	// SubmitAttempts caps attendance submission attempts.
	SubmitAttempts int `koanf:"submit_attempts"`

	// SubmitBackoffMS is the initial submission retry backoff.
	SubmitBackoffMS int `koanf:"submit_backoff_ms"`

	// FacingOrder lists camera facings in negotiation priority order.
	FacingOrder []string `koanf:"facing_order"`

	// NativeInference toggles the platform recognition engine when the
	// device reports support for it.
	NativeInference bool `koanf:"native_inference"`

	// UserID and UserEmail bind the device to one worker account.
	UserID    string `koanf:"user_id"`
	UserEmail string `koanf:"user_email"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		StoreDSN:        "",
		FastIntervalMS:  300,
		SlowIntervalMS:  3000,
		CooldownMS:      2000,
		SubmitAttempts:  3,
		SubmitBackoffMS: 250,
		FacingOrder:     []string{"environment", "user", "any"},
		NativeInference: true,
	}
}
