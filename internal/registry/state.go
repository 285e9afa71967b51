// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package registry

import (
	"github.com/tomtom215/havenlink/internal/models"
)

// State is the registry's backup-relevant contents, captured or replaced
// atomically.
type State struct {
	Devices   []models.Device
	Telemetry map[string]models.DeviceTelemetry
	Schedules map[string]models.MotionSchedule
}

// ExportState captures a deep copy of the registry's devices, telemetry and
// schedules under one lock acquisition, so the snapshot is internally
// consistent.
func (r *Registry) ExportState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{
		Devices:   make([]models.Device, 0, len(r.deviceOrder)),
		Telemetry: make(map[string]models.DeviceTelemetry, len(r.telemetry)),
		Schedules: make(map[string]models.MotionSchedule, len(r.schedules)),
	}
	for _, id := range r.deviceOrder {
		state.Devices = append(state.Devices, r.devices[id].Copy())
	}
	for id, tel := range r.telemetry {
		state.Telemetry[id] = tel.Copy()
	}
	for id, schedule := range r.schedules {
		state.Schedules[id] = schedule.Copy()
	}
	return state
}

// ImportState replaces the registry's devices, telemetry and schedules in
// one atomic swap. Used by backup restore; never merges field-by-field.
func (r *Registry) ImportState(state State) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.devices = make(map[string]models.Device, len(state.Devices))
	r.deviceOrder = make([]string, 0, len(state.Devices))
	for _, d := range state.Devices {
		r.devices[d.ID] = d.Copy()
		r.deviceOrder = append(r.deviceOrder, d.ID)
	}
	r.telemetry = make(map[string]models.DeviceTelemetry, len(state.Telemetry))
	for id, tel := range state.Telemetry {
		r.telemetry[id] = tel.Copy()
	}
	r.schedules = make(map[string]models.MotionSchedule, len(state.Schedules))
	for id, schedule := range state.Schedules {
		r.schedules[id] = schedule.Copy()
	}
	r.recomputeHealthLocked()
	count := len(r.devices)
	r.mu.Unlock()

	r.publisher.DevicesUpdated(count)
	r.publisher.HealthUpdated(r.SystemHealth())
}
