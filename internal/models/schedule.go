// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// TimeRange is a start/end pair within a single day, minutes since midnight.
type TimeRange struct {
	StartMinute int `json:"start_minute" validate:"gte=0,lt=1440"`
	EndMinute   int `json:"end_minute" validate:"gt=0,lte=1440"`
}

// MotionSchedule configures when motion detection is active for one device.
// At most one schedule exists per device; writes replace the previous
// schedule whole (last write wins).
type MotionSchedule struct {
	DeviceID string `json:"device_id"`
	Enabled  bool   `json:"enabled"`

	// Timezone is an IANA zone name, e.g. "America/Los_Angeles".
	Timezone string `json:"timezone"`

	// Ranges maps day-of-week to the active windows on that day.
	Ranges map[time.Weekday][]TimeRange `json:"ranges"`
}

// Copy returns a deep copy of the schedule.
func (s MotionSchedule) Copy() MotionSchedule {
	out := s
	if s.Ranges != nil {
		out.Ranges = make(map[time.Weekday][]TimeRange, len(s.Ranges))
		for day, ranges := range s.Ranges {
			rs := make([]TimeRange, len(ranges))
			copy(rs, ranges)
			out.Ranges[day] = rs
		}
	}
	return out
}
