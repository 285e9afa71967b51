// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package config loads and validates the orchestration core's configuration
// with layered sources: built-in defaults, an optional YAML file, then
// environment variable overrides (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/havenlink/internal/validation"
)

// Config is the root configuration for the orchestration core.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Polling   PollingConfig   `koanf:"polling"`
	Geofence  GeofenceConfig  `koanf:"geofence"`
	Registry  RegistryConfig  `koanf:"registry"`
	Notify    NotifyConfig    `koanf:"notify"`
	Backup    BackupConfig    `koanf:"backup"`
	Analytics AnalyticsConfig `koanf:"analytics"`
}

// LoggingConfig configures the zerolog-backed logging package.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// GatewayConfig configures the simulated remote gateway's latency and fault
// injection policies. Rates are probabilities in [0,1]; tests set them to 0
// or 1 for deterministic outcomes.
type GatewayConfig struct {
	// BaseLatency is the simulated delay for lightweight read operations.
	// Heavier operations scale from it (see gateway.WeightedLatencyPolicy).
	BaseLatency time.Duration `koanf:"base_latency" validate:"gte=0"`

	// FlakyFailureRate is the failure probability for the non-deterministic
	// operations (stream access, snapshot capture).
	FlakyFailureRate float64 `koanf:"flaky_failure_rate" validate:"gte=0,lte=1"`

	// Breaker enables the circuit breaker wrapper around the gateway.
	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the gobreaker circuit breaker.
type BreakerConfig struct {
	Enabled     bool          `koanf:"enabled"`
	MaxRequests uint32        `koanf:"max_requests"`
	Interval    time.Duration `koanf:"interval"`
	Timeout     time.Duration `koanf:"timeout"`

	// MinRequests and FailureRatio control when the breaker trips.
	MinRequests  uint32  `koanf:"min_requests"`
	FailureRatio float64 `koanf:"failure_ratio" validate:"gte=0,lte=1"`
}

// PollingConfig configures the scheduler's three recurring ticks.
type PollingConfig struct {
	// NetworkCheckInterval drives the network-health tick.
	NetworkCheckInterval time.Duration `koanf:"network_check_interval" validate:"gt=0"`

	// RefreshInterval drives the device-status refresh tick and the
	// periodic task bundle.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gt=0"`

	// OnlineProbability is the chance the simulated network-health draw
	// comes up online.
	OnlineProbability float64 `koanf:"online_probability" validate:"gte=0,lte=1"`
}

// GeofenceConfig configures the geofence monitor's detection loop.
type GeofenceConfig struct {
	// CheckInterval is how often simulated enter/exit detection runs.
	CheckInterval time.Duration `koanf:"check_interval" validate:"gt=0"`

	// TransitionProbability is the chance a detection window flips a
	// monitored region's occupancy state.
	TransitionProbability float64 `koanf:"transition_probability" validate:"gte=0,lte=1"`
}

// RegistryConfig configures the device registry.
type RegistryConfig struct {
	// StaleAfter is how long without a last-seen report before a device
	// counts as needing attention.
	StaleAfter time.Duration `koanf:"stale_after" validate:"gt=0"`

	// LowBatteryThreshold is the percentage at or below which a device is
	// flagged low-battery.
	LowBatteryThreshold int `koanf:"low_battery_threshold" validate:"gte=0,lte=100"`
}

// NotifyConfig configures the notification dispatcher's rate limiting.
type NotifyConfig struct {
	// PerCategoryInterval is the minimum spacing between notifications of
	// the same category.
	PerCategoryInterval time.Duration `koanf:"per_category_interval" validate:"gte=0"`

	// Burst is how many notifications a category may send back-to-back
	// before the limiter applies.
	Burst int `koanf:"burst" validate:"gte=1"`

	// DedupWindow suppresses an identical (title, body) pair repeated
	// within the window.
	DedupWindow time.Duration `koanf:"dedup_window" validate:"gte=0"`
}

// BackupConfig configures the backup manager.
type BackupConfig struct {
	// Version is the snapshot-format version stamped into backups and
	// checked on restore.
	Version string `koanf:"version" validate:"required"`

	// Compress gzips serialized snapshots.
	Compress bool `koanf:"compress"`
}

// AnalyticsConfig configures the analytics aggregator.
type AnalyticsConfig struct {
	// MaxEvents bounds the in-memory event log; 0 means unbounded.
	MaxEvents int `koanf:"max_events" validate:"gte=0"`
}

// Default returns a Config with production defaults. The simulated latency
// and fault values mirror the remote service's observed behavior: reads are
// cheaper than capture/stream operations, and the flaky operations fail
// about half the time.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Gateway: GatewayConfig{
			BaseLatency:      500 * time.Millisecond,
			FlakyFailureRate: 0.5,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Polling: PollingConfig{
			NetworkCheckInterval: 10 * time.Second,
			RefreshInterval:      30 * time.Second,
			OnlineProbability:    0.9,
		},
		Geofence: GeofenceConfig{
			CheckInterval:         30 * time.Second,
			TransitionProbability: 0.1,
		},
		Registry: RegistryConfig{
			StaleAfter:          24 * time.Hour,
			LowBatteryThreshold: 20,
		},
		Notify: NotifyConfig{
			PerCategoryInterval: 30 * time.Second,
			Burst:               3,
			DedupWindow:         5 * time.Minute,
		},
		Backup: BackupConfig{
			Version:  "1.0.0",
			Compress: true,
		},
		Analytics: AnalyticsConfig{
			MaxEvents: 10000,
		},
	}
}

// Validate checks the configuration with validator struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("config validation: %w", verr)
	}
	if c.Polling.NetworkCheckInterval > c.Polling.RefreshInterval {
		return fmt.Errorf("config validation: network_check_interval must not exceed refresh_interval")
	}
	return nil
}
