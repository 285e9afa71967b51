// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package registry

import (
	"context"
	"time"

	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/models"
)

// Device actions funnel through the registry so every remote mutation is
// tracked, counted and reflected in local state from one place. Foreground
// callers receive the gateway's typed error unchanged.

// CaptureSnapshot requests a still capture from the device.
func (r *Registry) CaptureSnapshot(ctx context.Context, deviceID string) (gateway.Snapshot, error) {
	snap, err := r.gw.CaptureSnapshot(ctx, deviceID)
	r.countCall(gateway.OpCaptureSnapshot, err)
	if r.agg != nil {
		r.agg.Record(models.NewSnapshotCaptureEvent(time.Now(), deviceID, err == nil))
		r.agg.TrackFeature("snapshot")
		r.agg.TrackDeviceInteraction(deviceID)
	}
	return snap, err
}

// StreamURL requests a live stream URL for the device.
func (r *Registry) StreamURL(ctx context.Context, deviceID string) (string, error) {
	url, err := r.gw.StreamURL(ctx, deviceID)
	r.countCall(gateway.OpStreamURL, err)
	if r.agg != nil {
		r.agg.Record(models.NewStreamAccessEvent(time.Now(), deviceID, err == nil))
		r.agg.TrackFeature("live_stream")
		r.agg.TrackDeviceInteraction(deviceID)
	}
	return url, err
}

// SetRecordingMode changes the device's recording mode and mirrors the
// change into cached telemetry on success.
func (r *Registry) SetRecordingMode(ctx context.Context, deviceID string, mode models.RecordingMode) error {
	err := r.gw.SetRecordingMode(ctx, deviceID, mode)
	r.countCall(gateway.OpSetRecordingMode, err)
	if err != nil {
		return err
	}
	r.mutateTelemetry(deviceID, func(tel *models.DeviceTelemetry) {
		tel.RecordingMode = mode
	})
	if r.agg != nil {
		r.agg.TrackFeature("recording_mode")
		r.agg.TrackDeviceInteraction(deviceID)
	}
	return nil
}

// SetSiren toggles the device's siren.
func (r *Registry) SetSiren(ctx context.Context, deviceID string, active bool) error {
	err := r.gw.SetSiren(ctx, deviceID, active)
	r.countCall(gateway.OpSetSiren, err)
	if err == nil && r.agg != nil {
		r.agg.TrackFeature("siren")
		r.agg.TrackDeviceInteraction(deviceID)
	}
	return err
}

// SetPrivacyMode toggles privacy mode, mirroring the implied recording and
// motion-detection changes into cached telemetry on success.
func (r *Registry) SetPrivacyMode(ctx context.Context, deviceID string, enabled bool) error {
	err := r.gw.SetPrivacyMode(ctx, deviceID, enabled)
	r.countCall(gateway.OpSetPrivacyMode, err)
	if err != nil {
		return err
	}
	r.mutateTelemetry(deviceID, func(tel *models.DeviceTelemetry) {
		if enabled {
			tel.RecordingMode = models.RecordingDisabled
			tel.MotionDetection = false
		} else {
			tel.RecordingMode = models.RecordingAuto
			tel.MotionDetection = true
		}
	})
	if r.agg != nil {
		r.agg.TrackFeature("privacy_mode")
	}
	return nil
}

// SetMotionDetection enables or disables motion detection for the device.
// Idempotent: setting the current value is a remote no-op confirmation.
func (r *Registry) SetMotionDetection(ctx context.Context, deviceID string, enabled bool) error {
	err := r.gw.SetMotionDetection(ctx, deviceID, enabled)
	r.countCall(gateway.OpSetMotionDetection, err)
	if err != nil {
		return err
	}
	r.mutateTelemetry(deviceID, func(tel *models.DeviceTelemetry) {
		tel.MotionDetection = enabled
	})
	return nil
}

// MotionDetectionEnabled reports the cached motion-detection flag.
func (r *Registry) MotionDetectionEnabled(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tel, ok := r.telemetry[deviceID]
	return ok && tel.MotionDetection
}

// GetMotionSchedule fetches the device's motion schedule from the remote
// and caches it.
func (r *Registry) GetMotionSchedule(ctx context.Context, deviceID string) (models.MotionSchedule, error) {
	schedule, err := r.gw.GetMotionSchedule(ctx, deviceID)
	r.countCall(gateway.OpGetMotionSchedule, err)
	if err != nil {
		return models.MotionSchedule{}, err
	}

	r.mu.Lock()
	if !r.closed {
		r.schedules[deviceID] = schedule.Copy()
	}
	r.mu.Unlock()
	return schedule, nil
}

// SetMotionSchedule pushes a schedule to the remote, then replaces the
// local entry whole (last write wins).
func (r *Registry) SetMotionSchedule(ctx context.Context, schedule models.MotionSchedule) error {
	err := r.gw.SetMotionSchedule(ctx, schedule)
	r.countCall(gateway.OpSetMotionSchedule, err)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !r.closed {
		r.schedules[schedule.DeviceID] = schedule.Copy()
	}
	r.mu.Unlock()

	if r.agg != nil {
		r.agg.TrackFeature("motion_schedule")
	}
	return nil
}

// mutateTelemetry edits the cached telemetry record for a device in place,
// creating it lazily if the device exists but was never fetched.
func (r *Registry) mutateTelemetry(deviceID string, edit func(*models.DeviceTelemetry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	tel, ok := r.telemetry[deviceID]
	if !ok {
		device, exists := r.devices[deviceID]
		if !exists {
			return
		}
		tel = syntheticTelemetry(device)
	}
	edit(&tel)
	r.telemetry[deviceID] = tel
}
