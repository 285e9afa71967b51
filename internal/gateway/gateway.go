// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package gateway abstracts the remote smart-home device API.
//
// Gateway is the capability set the rest of the core programs against; the
// shipped implementation is Simulated, which reproduces the remote service's
// observable contract in-process: per-operation latency, randomized failure
// on the flaky operations, a fixed error taxonomy, and notification side
// effects on certain successes. Latency and fault behavior are injectable
// policies so tests can force deterministic outcomes.
package gateway

import (
	"context"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

// Operation names one gateway capability, used for latency/fault policy
// lookup and for metrics labels.
type Operation string

const (
	OpListDevices        Operation = "list_devices"
	OpGetDeviceStatus    Operation = "get_device_status"
	OpCaptureSnapshot    Operation = "capture_snapshot"
	OpStreamURL          Operation = "stream_url"
	OpSetRecordingMode   Operation = "set_recording_mode"
	OpSetSiren           Operation = "set_siren"
	OpSetPrivacyMode     Operation = "set_privacy_mode"
	OpSetMotionDetection Operation = "set_motion_detection"
	OpGetMotionSchedule  Operation = "get_motion_schedule"
	OpSetMotionSchedule  Operation = "set_motion_schedule"
	OpCreateGeofence     Operation = "create_geofence"
	OpUpdateGeofence     Operation = "update_geofence"
	OpDeleteGeofence     Operation = "delete_geofence"
	OpListGeofences      Operation = "list_geofences"
	OpGenerateReport     Operation = "generate_report"
	OpExportBackup       Operation = "export_backup"
	OpFetchBackup        Operation = "fetch_backup"
)

// Snapshot is the result of a successful snapshot capture.
type Snapshot struct {
	DeviceID   string    `json:"device_id"`
	ImageURL   string    `json:"image_url"`
	CapturedAt time.Time `json:"captured_at"`
}

// UsageReport is the remote-generated analytics summary.
type UsageReport struct {
	GeneratedAt    time.Time `json:"generated_at"`
	DeviceCount    int       `json:"device_count"`
	OnlineCount    int       `json:"online_count"`
	AlertsLastWeek int       `json:"alerts_last_week"`
	SnapshotCount  int       `json:"snapshot_count"`
	StreamMinutes  int       `json:"stream_minutes"`
}

// Gateway is the remote device API capability set. Every method completes
// after its operation's simulated (or real) latency and returns either a
// typed value or a *models.OpError from the fixed taxonomy; callers never
// see a bare transport error. Callers must already hold authorization:
// calls without a signed-in token fail with ErrNotAuthenticated before any
// latency is incurred.
type Gateway interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDeviceStatus(ctx context.Context, deviceID string) (models.DeviceTelemetry, error)

	CaptureSnapshot(ctx context.Context, deviceID string) (Snapshot, error)
	StreamURL(ctx context.Context, deviceID string) (string, error)

	SetRecordingMode(ctx context.Context, deviceID string, mode models.RecordingMode) error
	SetSiren(ctx context.Context, deviceID string, active bool) error
	SetPrivacyMode(ctx context.Context, deviceID string, enabled bool) error
	SetMotionDetection(ctx context.Context, deviceID string, enabled bool) error

	GetMotionSchedule(ctx context.Context, deviceID string) (models.MotionSchedule, error)
	SetMotionSchedule(ctx context.Context, schedule models.MotionSchedule) error

	CreateGeofence(ctx context.Context, geofence models.Geofence) (models.Geofence, error)
	UpdateGeofence(ctx context.Context, geofence models.Geofence) error
	DeleteGeofence(ctx context.Context, id string) error
	ListGeofences(ctx context.Context) ([]models.Geofence, error)

	GenerateReport(ctx context.Context) (UsageReport, error)

	// ExportBackup stores a serialized snapshot blob remotely and returns
	// its id; FetchBackup retrieves it. Remote storage is quota-limited
	// (ErrStorageExceeded).
	ExportBackup(ctx context.Context, blob []byte) (string, error)
	FetchBackup(ctx context.Context, id string) ([]byte, error)
}

// TokenSource reports the session's current access token. The gateway only
// checks presence; token contents are opaque to it.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Notifier consumes the "send notification" side effects certain successful
// operations emit. internal/notify's Dispatcher satisfies it.
type Notifier interface {
	Notify(category, title, body string)
}
