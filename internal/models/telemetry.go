// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// RecordingMode controls how a camera-class device records.
type RecordingMode string

const (
	RecordingAuto      RecordingMode = "auto"
	RecordingManual    RecordingMode = "manual"
	RecordingDisabled  RecordingMode = "disabled"
	RecordingScheduled RecordingMode = "scheduled"
)

// DeviceTelemetry is the richer per-device status snapshot, keyed by device
// id in the registry. It is created lazily on first status fetch and
// overwritten whole on each refresh; partial merges never happen.
type DeviceTelemetry struct {
	DeviceID string `json:"device_id"`

	Online          bool          `json:"online"`
	BatteryLevel    int           `json:"battery_level"`
	MotionDetection bool          `json:"motion_detection"`
	LastMotion      *time.Time    `json:"last_motion,omitempty"`
	SignalStrength  int           `json:"signal_strength"` // 1 (weak) to 4 (strong)
	Firmware        string        `json:"firmware"`
	Temperature     float64       `json:"temperature"`
	RecordingMode   RecordingMode `json:"recording_mode"`

	// Synthetic marks telemetry synthesized locally for a device whose
	// status was read before any remote fetch completed. Real fetches
	// always clear it.
	Synthetic bool `json:"synthetic,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Copy returns a deep copy of the telemetry record.
func (t DeviceTelemetry) Copy() DeviceTelemetry {
	out := t
	if t.LastMotion != nil {
		m := *t.LastMotion
		out.LastMotion = &m
	}
	return out
}
