// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestHasLowBattery(t *testing.T) {
	tests := []struct {
		name    string
		battery *int
		want    bool
	}{
		{"nil battery", nil, false},
		{"at threshold", intPtr(20), true},
		{"below threshold", intPtr(5), true},
		{"above threshold", intPtr(21), false},
		{"full", intPtr(100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Device{Battery: tt.battery}
			if got := d.HasLowBattery(); got != tt.want {
				t.Errorf("HasLowBattery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasHealthyBattery(t *testing.T) {
	tests := []struct {
		name    string
		battery *int
		want    bool
	}{
		{"nil battery", nil, false},
		{"at boundary", intPtr(50), false},
		{"above boundary", intPtr(51), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Device{Battery: tt.battery}
			if got := d.HasHealthyBattery(); got != tt.want {
				t.Errorf("HasHealthyBattery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	tests := []struct {
		name     string
		lastSeen *time.Time
		want     bool
	}{
		{"never seen", nil, true},
		{"recent", &recent, false},
		{"old", &old, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Device{LastSeen: tt.lastSeen}
			if got := d.IsStale(now, 24*time.Hour); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeviceCopyIsDeep(t *testing.T) {
	seen := time.Now()
	d := Device{ID: "d1", Battery: intPtr(80), LastSeen: &seen}
	c := d.Copy()

	*c.Battery = 10
	if *d.Battery != 80 {
		t.Error("mutating copy's battery changed the original")
	}
	*c.LastSeen = seen.Add(time.Hour)
	if !d.LastSeen.Equal(seen) {
		t.Error("mutating copy's last-seen changed the original")
	}
}

func TestMotionScheduleCopyIsDeep(t *testing.T) {
	s := MotionSchedule{
		DeviceID: "d1",
		Ranges: map[time.Weekday][]TimeRange{
			time.Monday: {{StartMinute: 60, EndMinute: 120}},
		},
	}
	c := s.Copy()
	c.Ranges[time.Monday][0].EndMinute = 999

	if s.Ranges[time.Monday][0].EndMinute != 120 {
		t.Error("mutating copy's ranges changed the original")
	}
}
