// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package analytics

import (
	"testing"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

func TestRecordAndCountByKind(t *testing.T) {
	a := NewAggregator(0)
	now := time.Now()

	a.Record(models.NewAuthEvent(now, "sign_in", true))
	a.Record(models.NewDeviceCountEvent(now, 6))
	a.Record(models.NewAuthEvent(now, "sign_out", true))

	if got := a.CountByKind(models.EventAuthentication); got != 2 {
		t.Errorf("authentication count = %d, want 2", got)
	}
	if got := a.CountByKind(models.EventDeviceCount); got != 1 {
		t.Errorf("device count events = %d, want 1", got)
	}
	if got := a.TotalEvents(); got != 3 {
		t.Errorf("total events = %d, want 3", got)
	}
}

func TestBoundedLogEvictsOldest(t *testing.T) {
	a := NewAggregator(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		a.Record(models.NewDeviceCountEvent(now, i))
	}

	events := a.Events()
	if len(events) != 3 {
		t.Fatalf("retained %d events, want 3", len(events))
	}
	first, ok := events[0].(models.DeviceCountEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if first.Count != 2 {
		t.Errorf("oldest retained count = %d, want 2 after eviction", first.Count)
	}
	// Kind totals keep counting past the cap.
	if got := a.CountByKind(models.EventDeviceCount); got != 5 {
		t.Errorf("kind total = %d, want 5", got)
	}
}

func TestMostUsedFeature(t *testing.T) {
	a := NewAggregator(0)

	if got := a.MostUsedFeature(); got != "" {
		t.Errorf("MostUsedFeature on empty = %q, want empty", got)
	}

	a.TrackFeature("live_stream")
	a.TrackFeature("snapshot")
	a.TrackFeature("snapshot")

	if got := a.MostUsedFeature(); got != "snapshot" {
		t.Errorf("MostUsedFeature = %q, want snapshot", got)
	}
}

func TestMostUsedFeatureTieBreaksDeterministically(t *testing.T) {
	a := NewAggregator(0)
	a.TrackFeature("siren")
	a.TrackFeature("snapshot")

	for i := 0; i < 20; i++ {
		if got := a.MostUsedFeature(); got != "siren" {
			t.Fatalf("run %d: tie broke to %q, want lexicographically smallest", i, got)
		}
	}
}

func TestDeviceInteractions(t *testing.T) {
	a := NewAggregator(0)
	a.TrackDeviceInteraction("cam-1")
	a.TrackDeviceInteraction("cam-1")
	a.TrackDeviceInteraction("cam-2")

	if got := a.DeviceInteractions("cam-1"); got != 2 {
		t.Errorf("cam-1 interactions = %d, want 2", got)
	}
	if got := a.DeviceInteractions("unknown"); got != 0 {
		t.Errorf("unknown interactions = %d, want 0", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	a := NewAggregator(0)
	a.Record(models.NewAuthEvent(time.Now(), "sign_in", true))
	a.TrackFeature("snapshot")
	a.TrackDeviceInteraction("cam-1")

	a.Reset()

	if got := a.TotalEvents(); got != 0 {
		t.Errorf("total events after reset = %d", got)
	}
	if got := a.CountByKind(models.EventAuthentication); got != 0 {
		t.Errorf("kind count after reset = %d", got)
	}
	if got := a.MostUsedFeature(); got != "" {
		t.Errorf("most used feature after reset = %q", got)
	}
	if got := a.DeviceInteractions("cam-1"); got != 0 {
		t.Errorf("interactions after reset = %d", got)
	}
}
