// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// AlertType classifies what a motion alert detected.
type AlertType string

const (
	AlertMotion   AlertType = "motion"
	AlertPerson   AlertType = "person"
	AlertVehicle  AlertType = "vehicle"
	AlertPackage  AlertType = "package"
	AlertDoorbell AlertType = "doorbell"
)

// MaxRecentAlerts caps the registry's recent-alert list. Insertion beyond
// the cap evicts the oldest entry.
const MaxRecentAlerts = 50

// MotionAlert is an immutable record of a detected event. The registry keeps
// the most recent MaxRecentAlerts alerts in strict timestamp-descending
// order.
type MotionAlert struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Type        AlertType `json:"type"`
	Confidence  float64   `json:"confidence"` // 0..1
	HasVideo    bool      `json:"has_video"`
}
