// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// EventKind classifies an analytics event.
type EventKind string

const (
	EventAuthentication  EventKind = "authentication"
	EventDeviceCount     EventKind = "device_count"
	EventStreamAccess    EventKind = "stream_access"
	EventSnapshotCapture EventKind = "snapshot_capture"
	EventMotionAlert     EventKind = "motion_alert"
	EventGeofence        EventKind = "geofence_event"
)

// Event is one typed analytics record. Each concrete event carries exactly
// the fields its kind needs; there is no free-form metadata map, so
// consumers can switch on the concrete type exhaustively.
type Event interface {
	Kind() EventKind
	OccurredAt() time.Time
}

// eventBase carries the fields shared by all events.
type eventBase struct {
	At time.Time `json:"at"`
}

func (e eventBase) OccurredAt() time.Time { return e.At }

// AuthEvent records a sign-in, refresh or sign-out outcome.
type AuthEvent struct {
	eventBase
	Action  string `json:"action"` // "sign_in", "refresh", "sign_out"
	Success bool   `json:"success"`
}

func (AuthEvent) Kind() EventKind { return EventAuthentication }

// NewAuthEvent builds an AuthEvent stamped with now.
func NewAuthEvent(now time.Time, action string, success bool) AuthEvent {
	return AuthEvent{eventBase: eventBase{At: now}, Action: action, Success: success}
}

// DeviceCountEvent records the fleet size after a full device load.
type DeviceCountEvent struct {
	eventBase
	Count int `json:"count"`
}

func (DeviceCountEvent) Kind() EventKind { return EventDeviceCount }

// NewDeviceCountEvent builds a DeviceCountEvent stamped with now.
func NewDeviceCountEvent(now time.Time, count int) DeviceCountEvent {
	return DeviceCountEvent{eventBase: eventBase{At: now}, Count: count}
}

// StreamAccessEvent records a live-stream URL request.
type StreamAccessEvent struct {
	eventBase
	DeviceID string `json:"device_id"`
	Success  bool   `json:"success"`
}

func (StreamAccessEvent) Kind() EventKind { return EventStreamAccess }

// NewStreamAccessEvent builds a StreamAccessEvent stamped with now.
func NewStreamAccessEvent(now time.Time, deviceID string, success bool) StreamAccessEvent {
	return StreamAccessEvent{eventBase: eventBase{At: now}, DeviceID: deviceID, Success: success}
}

// SnapshotCaptureEvent records a snapshot capture attempt.
type SnapshotCaptureEvent struct {
	eventBase
	DeviceID string `json:"device_id"`
	Success  bool   `json:"success"`
}

func (SnapshotCaptureEvent) Kind() EventKind { return EventSnapshotCapture }

// NewSnapshotCaptureEvent builds a SnapshotCaptureEvent stamped with now.
func NewSnapshotCaptureEvent(now time.Time, deviceID string, success bool) SnapshotCaptureEvent {
	return SnapshotCaptureEvent{eventBase: eventBase{At: now}, DeviceID: deviceID, Success: success}
}

// MotionAlertEvent records an alert entering the registry's recent list.
type MotionAlertEvent struct {
	eventBase
	DeviceID  string    `json:"device_id"`
	AlertType AlertType `json:"alert_type"`
}

func (MotionAlertEvent) Kind() EventKind { return EventMotionAlert }

// NewMotionAlertEvent builds a MotionAlertEvent stamped with now.
func NewMotionAlertEvent(now time.Time, deviceID string, alertType AlertType) MotionAlertEvent {
	return MotionAlertEvent{eventBase: eventBase{At: now}, DeviceID: deviceID, AlertType: alertType}
}

// GeofenceEvent records an enter or exit transition.
type GeofenceEvent struct {
	eventBase
	GeofenceID string `json:"geofence_id"`
	Name       string `json:"name"`
	Entered    bool   `json:"entered"`
}

func (GeofenceEvent) Kind() EventKind { return EventGeofence }

// NewGeofenceEvent builds a GeofenceEvent stamped with now.
func NewGeofenceEvent(now time.Time, id, name string, entered bool) GeofenceEvent {
	return GeofenceEvent{eventBase: eventBase{At: now}, GeofenceID: id, Name: name, Entered: entered}
}
