// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package models holds the shared vocabulary of the orchestration core:
// devices, telemetry, alerts, geofences, schedules, health, backups, the
// error taxonomy, and the typed analytics events.
//
// Types here are plain data. All mutation of registry-owned state goes
// through internal/registry; models carry no behavior beyond validation
// and deep copies.
package models

import (
	"time"
)

// DeviceType identifies the hardware variant of a registered device.
type DeviceType string

const (
	DeviceTypeCamera       DeviceType = "camera"
	DeviceTypeDoorbell     DeviceType = "doorbell"
	DeviceTypeMotionSensor DeviceType = "motion_sensor"
	DeviceTypeFloodlight   DeviceType = "floodlight"
	DeviceTypeChime        DeviceType = "chime"
)

// DeviceStatus is the coarse status a device reports.
type DeviceStatus string

const (
	StatusOn      DeviceStatus = "on"
	StatusOff     DeviceStatus = "off"
	StatusOpen    DeviceStatus = "open"
	StatusClosed  DeviceStatus = "closed"
	StatusUnknown DeviceStatus = "unknown"
)

// Device is a registered smart-home endpoint. ID is immutable; Status,
// Battery and LastSeen are mutated only by the registry in response to
// gateway responses or simulated background drift.
type Device struct {
	// ID is the opaque unique identifier assigned by the remote.
	ID string `json:"id"`

	// Name is the user-facing display name.
	Name string `json:"name"`

	// Type is the hardware variant.
	Type DeviceType `json:"type"`

	// Status is the coarse reported state.
	Status DeviceStatus `json:"status"`

	// Battery is the charge percentage, nil for mains-powered devices.
	Battery *int `json:"battery,omitempty"`

	// LastSeen is when the device last reported, nil if never.
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Location is an optional room or placement label.
	Location string `json:"location,omitempty"`
}

// Copy returns a deep copy so callers can hold a device without aliasing
// registry state.
func (d Device) Copy() Device {
	out := d
	if d.Battery != nil {
		b := *d.Battery
		out.Battery = &b
	}
	if d.LastSeen != nil {
		t := *d.LastSeen
		out.LastSeen = &t
	}
	return out
}

// HasLowBattery reports whether the device's battery is at or below the
// low-battery threshold (20%). Mains-powered devices are never low.
func (d Device) HasLowBattery() bool {
	return d.Battery != nil && *d.Battery <= 20
}

// HasHealthyBattery reports whether the battery is above 50%.
func (d Device) HasHealthyBattery() bool {
	return d.Battery != nil && *d.Battery > 50
}

// IsStale reports whether the device has not been seen within maxAge of now.
// Devices that never reported are stale.
func (d Device) IsStale(now time.Time, maxAge time.Duration) bool {
	if d.LastSeen == nil {
		return true
	}
	return now.Sub(*d.LastSeen) > maxAge
}
