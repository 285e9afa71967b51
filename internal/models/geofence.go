// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

// GeofenceAction is one of the typed actions a geofence executes on entry.
// Actions are a closed enum rather than free-form parameter maps so
// consumers get compile-time exhaustiveness.
type GeofenceAction string

const (
	ActionEnableMotionDetection  GeofenceAction = "enable_motion_detection"
	ActionDisableMotionDetection GeofenceAction = "disable_motion_detection"
	ActionSendNotification       GeofenceAction = "send_notification"
	ActionCaptureSnapshot        GeofenceAction = "capture_snapshot"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Geofence is a named circular region with enter/exit-triggered actions.
// Created explicitly, monitored continuously while enabled, removed
// explicitly.
type Geofence struct {
	ID      string           `json:"id"`
	Name    string           `json:"name" validate:"required"`
	Center  Coordinate       `json:"center"`
	RadiusM float64          `json:"radius_m" validate:"gt=0"`
	Enabled bool             `json:"enabled"`
	Actions []GeofenceAction `json:"actions"`
}

// Copy returns a deep copy of the geofence.
func (g Geofence) Copy() Geofence {
	out := g
	if g.Actions != nil {
		out.Actions = make([]GeofenceAction, len(g.Actions))
		copy(out.Actions, g.Actions)
	}
	return out
}
