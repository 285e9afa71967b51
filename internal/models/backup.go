// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// BackupSnapshot is a versioned, atomic copy of registry, schedule and
// geofence state. Restoring replaces all three atomically; a version
// mismatch is a hard failure with no partial write.
type BackupSnapshot struct {
	// Version is the semantic snapshot-format version. Restore rejects
	// snapshots whose version differs from the running version.
	Version string `json:"version"`

	CreatedAt time.Time `json:"created_at"`

	Devices   []Device                   `json:"devices"`
	Telemetry map[string]DeviceTelemetry `json:"telemetry"`
	Schedules map[string]MotionSchedule  `json:"schedules"`
	Geofences []Geofence                 `json:"geofences"`

	// Health and EventCount are informational context captured at backup
	// time; restore does not replay them.
	Health     SystemHealth `json:"health"`
	EventCount int          `json:"event_count"`
}
