// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
)

// defaultBackupQuota bounds simulated remote backup storage.
const defaultBackupQuota = 5 << 20 // 5 MiB

// Simulated implements Gateway entirely in-process. It owns a device fleet,
// per-device telemetry, motion schedules, geofences and backup blobs, and
// reproduces the remote contract: auth gating before latency, weighted
// latency per operation, randomized failure on the flaky operations, and
// notification side effects on certain successes.
//
// All state is guarded by a single mutex; the latency wait happens outside
// the lock so slow operations do not serialize the whole gateway.
type Simulated struct {
	tokens   TokenSource
	latency  LatencyPolicy
	faults   FaultPolicy
	notifier Notifier
	validate *validator.Validate

	mu            sync.Mutex
	rng           *rand.Rand
	devices       map[string]models.Device
	deviceOrder   []string
	telemetry     map[string]models.DeviceTelemetry
	schedules     map[string]models.MotionSchedule
	geofences     map[string]models.Geofence
	geofenceOrder []string
	backups       map[string][]byte
	backupUsed    int
	backupQuota   int
	snapshotCount int
	streamCount   int
}

// Option configures a Simulated gateway.
type Option func(*Simulated)

// WithLatencyPolicy replaces the latency policy.
func WithLatencyPolicy(p LatencyPolicy) Option {
	return func(s *Simulated) { s.latency = p }
}

// WithFaultPolicy replaces the fault policy.
func WithFaultPolicy(p FaultPolicy) Option {
	return func(s *Simulated) { s.faults = p }
}

// WithNotifier sets the side-effect notification consumer.
func WithNotifier(n Notifier) Option {
	return func(s *Simulated) { s.notifier = n }
}

// WithSeed seeds the gateway's random source for reproducible telemetry.
func WithSeed(seed int64) Option {
	return func(s *Simulated) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithFleet replaces the default simulated device fleet.
func WithFleet(devices []models.Device) Option {
	return func(s *Simulated) {
		s.devices = make(map[string]models.Device, len(devices))
		s.deviceOrder = s.deviceOrder[:0]
		for _, d := range devices {
			s.devices[d.ID] = d.Copy()
			s.deviceOrder = append(s.deviceOrder, d.ID)
		}
	}
}

// WithBackupQuota overrides the simulated remote backup storage quota.
func WithBackupQuota(bytes int) Option {
	return func(s *Simulated) { s.backupQuota = bytes }
}

// NewSimulated creates a simulated gateway with the default fleet and
// production latency/fault policies (500ms base, 50% flaky failure rate).
func NewSimulated(tokens TokenSource, opts ...Option) *Simulated {
	s := &Simulated{
		tokens:      tokens,
		latency:     WeightedLatencyPolicy{Base: 500 * time.Millisecond},
		faults:      NewRandomFaultPolicy(0.5, 0),
		validate:    validator.New(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		telemetry:   make(map[string]models.DeviceTelemetry),
		schedules:   make(map[string]models.MotionSchedule),
		geofences:   make(map[string]models.Geofence),
		backups:     make(map[string][]byte),
		backupQuota: defaultBackupQuota,
	}
	WithFleet(defaultFleet())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultFleet is the simulated home's device inventory.
func defaultFleet() []models.Device {
	now := time.Now()
	battery := func(pct int) *int { return &pct }
	seen := func(ago time.Duration) *time.Time {
		t := now.Add(-ago)
		return &t
	}
	return []models.Device{
		{ID: uuid.NewString(), Name: "Front Door", Type: models.DeviceTypeDoorbell, Status: models.StatusOn, Battery: battery(84), LastSeen: seen(2 * time.Minute), Location: "Entryway"},
		{ID: uuid.NewString(), Name: "Backyard Cam", Type: models.DeviceTypeCamera, Status: models.StatusOn, Battery: battery(62), LastSeen: seen(5 * time.Minute), Location: "Backyard"},
		{ID: uuid.NewString(), Name: "Driveway Light", Type: models.DeviceTypeFloodlight, Status: models.StatusOff, LastSeen: seen(10 * time.Minute), Location: "Driveway"},
		{ID: uuid.NewString(), Name: "Garage Sensor", Type: models.DeviceTypeMotionSensor, Status: models.StatusClosed, Battery: battery(17), LastSeen: seen(45 * time.Minute), Location: "Garage"},
		{ID: uuid.NewString(), Name: "Hallway Chime", Type: models.DeviceTypeChime, Status: models.StatusOn, LastSeen: seen(time.Minute), Location: "Hallway"},
		{ID: uuid.NewString(), Name: "Side Gate Cam", Type: models.DeviceTypeCamera, Status: models.StatusUnknown, Battery: battery(41), Location: "Side Yard"},
	}
}

// begin enforces the auth gate and then waits out the operation's simulated
// latency. The gate is checked before any latency is incurred, so signed-out
// callers fail immediately.
func (s *Simulated) begin(ctx context.Context, op Operation) error {
	if _, ok := s.tokens.AccessToken(); !ok {
		return models.NewOpError(models.ErrNotAuthenticated, string(op))
	}
	delay := s.latency.Delay(op)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return models.WrapOpError(models.ErrNetwork, string(op), ctx.Err())
	case <-timer.C:
		return nil
	}
}

// requireDevice validates the id and resolves it under the lock.
func (s *Simulated) requireDevice(op Operation, deviceID string) (models.Device, error) {
	if deviceID == "" {
		return models.Device{}, models.NewOpError(models.ErrDeviceNotFound, string(op))
	}
	device, ok := s.devices[deviceID]
	if !ok {
		return models.Device{}, models.NewOpError(models.ErrDeviceNotFound, string(op))
	}
	return device, nil
}

// notify emits a side-effect notification if a consumer is attached.
func (s *Simulated) notify(category, title, body string) {
	if s.notifier != nil {
		s.notifier.Notify(category, title, body)
	}
}

// ListDevices returns the current fleet in stable order.
func (s *Simulated) ListDevices(ctx context.Context) ([]models.Device, error) {
	if err := s.begin(ctx, OpListDevices); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Device, 0, len(s.deviceOrder))
	for _, id := range s.deviceOrder {
		out = append(out, s.devices[id].Copy())
	}
	return out, nil
}

// GetDeviceStatus produces a complete telemetry record for the device. Each
// fetch replaces the previous record whole; fields drift within realistic
// ranges between fetches.
func (s *Simulated) GetDeviceStatus(ctx context.Context, deviceID string) (models.DeviceTelemetry, error) {
	if err := s.begin(ctx, OpGetDeviceStatus); err != nil {
		return models.DeviceTelemetry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	device, err := s.requireDevice(OpGetDeviceStatus, deviceID)
	if err != nil {
		return models.DeviceTelemetry{}, err
	}

	tel := s.driftTelemetry(device)
	s.telemetry[deviceID] = tel

	now := time.Now()
	device.LastSeen = &now
	s.devices[deviceID] = device

	return tel.Copy(), nil
}

// driftTelemetry builds the next telemetry record for a device, drifting
// from the previous one when present. Must be called with mu held.
func (s *Simulated) driftTelemetry(device models.Device) models.DeviceTelemetry {
	prev, hasPrev := s.telemetry[device.ID]

	tel := models.DeviceTelemetry{
		DeviceID:       device.ID,
		Online:         s.rng.Float64() < 0.92,
		SignalStrength: 1 + s.rng.Intn(4),
		Firmware:       "2.4." + fmt.Sprint(1+s.rng.Intn(9)),
		Temperature:    15 + s.rng.Float64()*20,
		RecordingMode:  models.RecordingAuto,
		FetchedAt:      time.Now(),
	}

	if hasPrev {
		// Battery only discharges; mode and motion settings persist.
		tel.BatteryLevel = prev.BatteryLevel - s.rng.Intn(2)
		if tel.BatteryLevel < 0 {
			tel.BatteryLevel = 0
		}
		tel.MotionDetection = prev.MotionDetection
		tel.RecordingMode = prev.RecordingMode
		tel.LastMotion = prev.LastMotion
		tel.Firmware = prev.Firmware
	} else {
		if device.Battery != nil {
			tel.BatteryLevel = *device.Battery
		} else {
			tel.BatteryLevel = 100
		}
		tel.MotionDetection = true
	}

	if tel.Online && s.rng.Float64() < 0.2 {
		m := time.Now().Add(-time.Duration(s.rng.Intn(3600)) * time.Second)
		tel.LastMotion = &m
	}
	return tel
}

// CaptureSnapshot attempts a still capture. Non-deterministic per the fault
// policy; success emits a notification side effect.
func (s *Simulated) CaptureSnapshot(ctx context.Context, deviceID string) (Snapshot, error) {
	if err := s.begin(ctx, OpCaptureSnapshot); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	device, err := s.requireDevice(OpCaptureSnapshot, deviceID)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	if s.faults.ShouldFail(OpCaptureSnapshot) {
		s.mu.Unlock()
		return Snapshot{}, models.NewOpError(models.ErrOperationFailed, string(OpCaptureSnapshot))
	}
	s.snapshotCount++
	snap := Snapshot{
		DeviceID:   deviceID,
		ImageURL:   fmt.Sprintf("https://snapshots.local/%s/%s.jpg", deviceID, uuid.NewString()),
		CapturedAt: time.Now(),
	}
	s.mu.Unlock()

	s.notify("snapshot", "Snapshot Captured", fmt.Sprintf("Snapshot saved from %s", device.Name))
	return snap, nil
}

// StreamURL issues a short-lived live stream URL. Non-deterministic per the
// fault policy; failures surface as ErrStreamUnavailable.
func (s *Simulated) StreamURL(ctx context.Context, deviceID string) (string, error) {
	if err := s.begin(ctx, OpStreamURL); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDevice(OpStreamURL, deviceID); err != nil {
		return "", err
	}
	if s.faults.ShouldFail(OpStreamURL) {
		return "", models.NewOpError(models.ErrStreamUnavailable, string(OpStreamURL))
	}
	s.streamCount++
	return fmt.Sprintf("rtsps://stream.local/%s/live?token=%s", deviceID, uuid.NewString()), nil
}

// SetRecordingMode changes a device's recording mode and emits a
// notification side effect.
func (s *Simulated) SetRecordingMode(ctx context.Context, deviceID string, mode models.RecordingMode) error {
	if err := s.begin(ctx, OpSetRecordingMode); err != nil {
		return err
	}
	switch mode {
	case models.RecordingAuto, models.RecordingManual, models.RecordingDisabled, models.RecordingScheduled:
	default:
		return models.NewOpError(models.ErrOperationFailed, string(OpSetRecordingMode))
	}

	s.mu.Lock()
	device, err := s.requireDevice(OpSetRecordingMode, deviceID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	tel := s.telemetry[deviceID]
	tel.DeviceID = deviceID
	tel.RecordingMode = mode
	s.telemetry[deviceID] = tel
	s.mu.Unlock()

	s.notify("recording", "Recording Mode Changed", fmt.Sprintf("%s is now recording in %s mode", device.Name, mode))
	return nil
}

// SetSiren toggles a device's siren. Activation emits a notification side
// effect; deactivation is silent.
func (s *Simulated) SetSiren(ctx context.Context, deviceID string, active bool) error {
	if err := s.begin(ctx, OpSetSiren); err != nil {
		return err
	}
	s.mu.Lock()
	device, err := s.requireDevice(OpSetSiren, deviceID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if active {
		s.notify("siren", "Siren Activated", fmt.Sprintf("Siren sounding on %s", device.Name))
	}
	logging.Debug().Str("device", deviceID).Bool("active", active).Msg("Siren state changed")
	return nil
}

// SetPrivacyMode toggles privacy mode; while enabled, recording is disabled.
func (s *Simulated) SetPrivacyMode(ctx context.Context, deviceID string, enabled bool) error {
	if err := s.begin(ctx, OpSetPrivacyMode); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDevice(OpSetPrivacyMode, deviceID); err != nil {
		return err
	}
	tel := s.telemetry[deviceID]
	tel.DeviceID = deviceID
	if enabled {
		tel.RecordingMode = models.RecordingDisabled
		tel.MotionDetection = false
	} else {
		tel.RecordingMode = models.RecordingAuto
		tel.MotionDetection = true
	}
	s.telemetry[deviceID] = tel
	return nil
}

// SetMotionDetection enables or disables motion detection for a device.
func (s *Simulated) SetMotionDetection(ctx context.Context, deviceID string, enabled bool) error {
	if err := s.begin(ctx, OpSetMotionDetection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDevice(OpSetMotionDetection, deviceID); err != nil {
		return err
	}
	tel := s.telemetry[deviceID]
	tel.DeviceID = deviceID
	tel.MotionDetection = enabled
	s.telemetry[deviceID] = tel
	return nil
}

// GetMotionSchedule returns the device's schedule, or a disabled default
// when none has been set.
func (s *Simulated) GetMotionSchedule(ctx context.Context, deviceID string) (models.MotionSchedule, error) {
	if err := s.begin(ctx, OpGetMotionSchedule); err != nil {
		return models.MotionSchedule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDevice(OpGetMotionSchedule, deviceID); err != nil {
		return models.MotionSchedule{}, err
	}
	if schedule, ok := s.schedules[deviceID]; ok {
		return schedule.Copy(), nil
	}
	return models.MotionSchedule{DeviceID: deviceID, Timezone: "UTC"}, nil
}

// SetMotionSchedule replaces the device's schedule whole (last write wins)
// and emits a notification side effect.
func (s *Simulated) SetMotionSchedule(ctx context.Context, schedule models.MotionSchedule) error {
	if err := s.begin(ctx, OpSetMotionSchedule); err != nil {
		return err
	}
	s.mu.Lock()
	device, err := s.requireDevice(OpSetMotionSchedule, schedule.DeviceID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.schedules[schedule.DeviceID] = schedule.Copy()
	s.mu.Unlock()

	s.notify("schedule", "Motion Schedule Updated", fmt.Sprintf("Motion schedule saved for %s", device.Name))
	return nil
}

// CreateGeofence validates and stores a geofence, assigning an id when the
// caller did not.
func (s *Simulated) CreateGeofence(ctx context.Context, geofence models.Geofence) (models.Geofence, error) {
	if err := s.begin(ctx, OpCreateGeofence); err != nil {
		return models.Geofence{}, err
	}
	if err := s.validate.Struct(geofence); err != nil {
		return models.Geofence{}, models.WrapOpError(models.ErrOperationFailed, string(OpCreateGeofence), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if geofence.ID == "" {
		geofence.ID = uuid.NewString()
	}
	if _, exists := s.geofences[geofence.ID]; !exists {
		s.geofenceOrder = append(s.geofenceOrder, geofence.ID)
	}
	s.geofences[geofence.ID] = geofence.Copy()
	return geofence.Copy(), nil
}

// UpdateGeofence replaces an existing geofence.
func (s *Simulated) UpdateGeofence(ctx context.Context, geofence models.Geofence) error {
	if err := s.begin(ctx, OpUpdateGeofence); err != nil {
		return err
	}
	if err := s.validate.Struct(geofence); err != nil {
		return models.WrapOpError(models.ErrOperationFailed, string(OpUpdateGeofence), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.geofences[geofence.ID]; !ok {
		return models.NewOpError(models.ErrOperationFailed, string(OpUpdateGeofence))
	}
	s.geofences[geofence.ID] = geofence.Copy()
	return nil
}

// DeleteGeofence removes a geofence. Deleting an unknown id is a no-op.
func (s *Simulated) DeleteGeofence(ctx context.Context, id string) error {
	if err := s.begin(ctx, OpDeleteGeofence); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.geofences, id)
	for i, gid := range s.geofenceOrder {
		if gid == id {
			s.geofenceOrder = append(s.geofenceOrder[:i], s.geofenceOrder[i+1:]...)
			break
		}
	}
	return nil
}

// ListGeofences returns all geofences in creation order.
func (s *Simulated) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	if err := s.begin(ctx, OpListGeofences); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Geofence, 0, len(s.geofenceOrder))
	for _, id := range s.geofenceOrder {
		out = append(out, s.geofences[id].Copy())
	}
	return out, nil
}

// GenerateReport assembles a usage summary from the gateway's own counters.
func (s *Simulated) GenerateReport(ctx context.Context) (UsageReport, error) {
	if err := s.begin(ctx, OpGenerateReport); err != nil {
		return UsageReport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	online := 0
	for _, tel := range s.telemetry {
		if tel.Online {
			online++
		}
	}
	return UsageReport{
		GeneratedAt:    time.Now(),
		DeviceCount:    len(s.devices),
		OnlineCount:    online,
		AlertsLastWeek: s.rng.Intn(40),
		SnapshotCount:  s.snapshotCount,
		StreamMinutes:  s.streamCount * 5,
	}, nil
}

// ExportBackup stores a snapshot blob in simulated remote storage.
func (s *Simulated) ExportBackup(ctx context.Context, blob []byte) (string, error) {
	if err := s.begin(ctx, OpExportBackup); err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", models.NewOpError(models.ErrOperationFailed, string(OpExportBackup))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backupUsed+len(blob) > s.backupQuota {
		return "", models.NewOpError(models.ErrStorageExceeded, string(OpExportBackup))
	}
	id := uuid.NewString()
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.backups[id] = stored
	s.backupUsed += len(stored)
	return id, nil
}

// FetchBackup retrieves a previously exported snapshot blob.
func (s *Simulated) FetchBackup(ctx context.Context, id string) ([]byte, error) {
	if err := s.begin(ctx, OpFetchBackup); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.backups[id]
	if !ok {
		return nil, models.NewOpError(models.ErrInvalidResponse, string(OpFetchBackup))
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}
