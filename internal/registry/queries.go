// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package registry

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/havenlink/internal/models"
)

// Devices returns the fleet in stable order. Read-only snapshot.
func (r *Registry) Devices() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Device, 0, len(r.deviceOrder))
	for _, id := range r.deviceOrder {
		out = append(out, r.devices[id].Copy())
	}
	return out
}

// Device returns one device by id.
func (r *Registry) Device(id string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.devices[id]
	if !ok {
		return models.Device{}, false
	}
	return device.Copy(), true
}

// Telemetry returns a copy of the telemetry map.
func (r *Registry) Telemetry() map[string]models.DeviceTelemetry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.DeviceTelemetry, len(r.telemetry))
	for id, tel := range r.telemetry {
		out[id] = tel.Copy()
	}
	return out
}

// Schedules returns a copy of the motion-schedule map.
func (r *Registry) Schedules() map[string]models.MotionSchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.MotionSchedule, len(r.schedules))
	for id, schedule := range r.schedules {
		out[id] = schedule.Copy()
	}
	return out
}

// IsLoading reports whether a device load is in flight.
func (r *Registry) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isLoading
}

// LastError returns the most recent foreground load error, or nil.
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// IsNetworkOnline reports the network-health flag.
func (r *Registry) IsNetworkOnline() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online
}

// SystemHealth returns the most recently computed health record.
func (r *Registry) SystemHealth() models.SystemHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.health.Copy()
}

// OnlineDevices returns devices whose telemetry reports them online.
// Pure query, no side effects; devices without telemetry count as offline.
func (r *Registry) OnlineDevices() []models.Device {
	return r.filterDevices(func(d models.Device, tel models.DeviceTelemetry, hasTel bool) bool {
		return hasTel && tel.Online
	})
}

// OfflineDevices returns devices without an online telemetry record.
func (r *Registry) OfflineDevices() []models.Device {
	return r.filterDevices(func(d models.Device, tel models.DeviceTelemetry, hasTel bool) bool {
		return !hasTel || !tel.Online
	})
}

// LowBatteryDevices returns devices at or below the low-battery threshold.
func (r *Registry) LowBatteryDevices() []models.Device {
	threshold := r.cfg.LowBatteryThreshold
	return r.filterDevices(func(d models.Device, tel models.DeviceTelemetry, hasTel bool) bool {
		if hasTel {
			return tel.BatteryLevel <= threshold
		}
		return d.Battery != nil && *d.Battery <= threshold
	})
}

// HealthyBatteryDevices returns devices above 50% battery.
func (r *Registry) HealthyBatteryDevices() []models.Device {
	return r.filterDevices(func(d models.Device, tel models.DeviceTelemetry, hasTel bool) bool {
		if hasTel {
			return tel.BatteryLevel > 50
		}
		return d.Battery != nil && *d.Battery > 50
	})
}

// DevicesNeedingAttention returns devices that are offline, low on battery,
// or stale (no report within the configured window).
func (r *Registry) DevicesNeedingAttention() []models.Device {
	threshold := r.cfg.LowBatteryThreshold
	staleAfter := r.cfg.StaleAfter
	now := time.Now()
	return r.filterDevices(func(d models.Device, tel models.DeviceTelemetry, hasTel bool) bool {
		if !hasTel || !tel.Online {
			return true
		}
		if hasTel && tel.BatteryLevel <= threshold {
			return true
		}
		return d.IsStale(now, staleAfter)
	})
}

// filterDevices applies a predicate over the fleet under the read lock.
func (r *Registry) filterDevices(keep func(models.Device, models.DeviceTelemetry, bool) bool) []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Device
	for _, id := range r.deviceOrder {
		device := r.devices[id]
		tel, hasTel := r.telemetry[id]
		if keep(device, tel, hasTel) {
			out = append(out, device.Copy())
		}
	}
	return out
}

// Subscribe returns a channel of registry change messages for presentation
// code. See Publisher.Subscribe.
func (r *Registry) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return r.publisher.Subscribe(ctx)
}
