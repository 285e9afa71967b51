// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package geofence

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/models"
	"github.com/tomtom215/havenlink/internal/registry"
)

type signedInTokens struct{}

func (signedInTokens) AccessToken() (string, bool) { return "tok", true }

// captureNotifier records notifications as "category|title|body".
type captureNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *captureNotifier) Notify(category, title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, category+"|"+title+"|"+body)
}

func (n *captureNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.calls))
	copy(out, n.calls)
	return out
}

// captureRecorder records analytics events.
type captureRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *captureRecorder) Record(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestMonitor(t *testing.T) (*Monitor, *registry.Registry, *captureNotifier, *captureRecorder) {
	t.Helper()
	gw := gateway.NewSimulated(signedInTokens{},
		gateway.WithLatencyPolicy(gateway.ZeroLatencyPolicy{}),
		gateway.WithFaultPolicy(gateway.StaticFaultPolicy{}),
		gateway.WithSeed(3),
	)
	reg := registry.New(gw, nil, registry.DefaultConfig())
	t.Cleanup(reg.Close)
	if err := reg.LoadDevices(context.Background()); err != nil {
		t.Fatalf("LoadDevices failed: %v", err)
	}
	notifier := &captureNotifier{}
	recorder := &captureRecorder{}
	monitor := New(gw, reg, notifier, recorder, DefaultConfig(), WithSeed(3))
	return monitor, reg, notifier, recorder
}

func TestCreateAssignsIDAndWatches(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name:    "Home",
		Center:  models.Coordinate{Latitude: 40.7, Longitude: -74.0},
		RadiusM: 150,
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	fences := monitor.Geofences()
	if len(fences) != 1 || fences[0].ID != created.ID {
		t.Fatalf("Geofences() = %v, want the created region", fences)
	}

	statuses := monitor.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("status count = %d, want 1", len(statuses))
	}
	if statuses[0].Inside {
		t.Error("new region should start outside")
	}
	if !statuses[0].Enabled {
		t.Error("enabled flag lost")
	}
}

func TestCreateRejectsInvalidRegion(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)

	cases := []struct {
		name string
		g    models.Geofence
	}{
		{"missing name", models.Geofence{RadiusM: 100, Center: models.Coordinate{Latitude: 40, Longitude: -74}}},
		{"zero radius", models.Geofence{Name: "Home", Center: models.Coordinate{Latitude: 40, Longitude: -74}}},
		{"bad latitude", models.Geofence{Name: "Home", RadiusM: 100, Center: models.Coordinate{Latitude: 95, Longitude: -74}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := monitor.Create(context.Background(), tc.g); err == nil {
				t.Fatal("Create accepted an invalid region")
			}
		})
	}
	if got := len(monitor.Geofences()); got != 0 {
		t.Errorf("watch list has %d entries after rejected creates, want 0", got)
	}
}

func TestUpdateUnknownRegion(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)

	err := monitor.Update(context.Background(), models.Geofence{
		ID: "ghost", Name: "Ghost", RadiusM: 50,
		Center: models.Coordinate{Latitude: 40, Longitude: -74},
	})
	if !models.IsKind(err, models.ErrOperationFailed) {
		t.Errorf("kind = %q, want %q", models.KindOf(err), models.ErrOperationFailed)
	}
}

func TestRemove(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name: "Home", RadiusM: 100,
		Center: models.Coordinate{Latitude: 40, Longitude: -74},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := monitor.Remove(ctx, created.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if got := len(monitor.Geofences()); got != 0 {
		t.Errorf("watch list has %d entries after remove, want 0", got)
	}
}

func TestHandleEventIdempotentPerDirection(t *testing.T) {
	monitor, _, notifier, recorder := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name: "Home", RadiusM: 100, Enabled: true,
		Center: models.Coordinate{Latitude: 40, Longitude: -74},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	monitor.HandleEvent(ctx, created, true)
	monitor.HandleEvent(ctx, created, true) // duplicate enter, dropped
	monitor.HandleEvent(ctx, created, false)
	monitor.HandleEvent(ctx, created, false) // duplicate exit, dropped

	calls := notifier.snapshot()
	if len(calls) != 2 {
		t.Fatalf("notification count = %d, want 2: %v", len(calls), calls)
	}
	if !strings.Contains(calls[0], "Entered Home") || !strings.Contains(calls[0], "You entered the Home zone") {
		t.Errorf("entry notification = %q", calls[0])
	}
	if !strings.Contains(calls[1], "Exited Home") || !strings.Contains(calls[1], "You exited the Home zone") {
		t.Errorf("exit notification = %q", calls[1])
	}
	if recorder.count() != 2 {
		t.Errorf("recorded events = %d, want 2", recorder.count())
	}
}

func TestHandleEventUnknownRegionDropped(t *testing.T) {
	monitor, _, notifier, _ := newTestMonitor(t)

	monitor.HandleEvent(context.Background(), models.Geofence{ID: "ghost", Name: "Ghost"}, true)

	if got := len(notifier.snapshot()); got != 0 {
		t.Errorf("unknown region produced %d notifications, want 0", got)
	}
}

func TestEntryActionsRunInOrder(t *testing.T) {
	monitor, reg, notifier, _ := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name: "Home", RadiusM: 100, Enabled: true,
		Center: models.Coordinate{Latitude: 40, Longitude: -74},
		Actions: []models.GeofenceAction{
			models.ActionDisableMotionDetection,
			models.ActionSendNotification,
			models.ActionCaptureSnapshot,
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	monitor.HandleEvent(ctx, created, true)

	for _, device := range reg.Devices() {
		switch device.Type {
		case models.DeviceTypeCamera, models.DeviceTypeDoorbell, models.DeviceTypeMotionSensor:
			if reg.MotionDetectionEnabled(device.ID) {
				t.Errorf("device %s still has motion detection after disable action", device.ID)
			}
		}
	}

	calls := notifier.snapshot()
	var automation int
	for _, call := range calls {
		if strings.Contains(call, "Home Automation") {
			automation++
		}
	}
	if automation != 1 {
		t.Errorf("Home Automation notifications = %d, want 1", automation)
	}
}

func TestExitDoesNotRunActions(t *testing.T) {
	monitor, reg, _, _ := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name: "Home", RadiusM: 100, Enabled: true,
		Center:  models.Coordinate{Latitude: 40, Longitude: -74},
		Actions: []models.GeofenceAction{models.ActionDisableMotionDetection},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	monitor.HandleEvent(ctx, created, true)
	// Re-arm manually, then exit: the disable action must not run again.
	for _, device := range reg.Devices() {
		if device.Type == models.DeviceTypeCamera {
			if err := reg.SetMotionDetection(ctx, device.ID, true); err != nil {
				t.Fatalf("SetMotionDetection failed: %v", err)
			}
		}
	}
	monitor.HandleEvent(ctx, created, false)

	for _, device := range reg.Devices() {
		if device.Type == models.DeviceTypeCamera && !reg.MotionDetectionEnabled(device.ID) {
			t.Errorf("exit ran the disable action on %s", device.ID)
		}
	}
}

func TestReplaceAllResetsOccupancy(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)
	ctx := context.Background()

	created, err := monitor.Create(ctx, models.Geofence{
		Name: "Home", RadiusM: 100, Enabled: true,
		Center: models.Coordinate{Latitude: 40, Longitude: -74},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	monitor.HandleEvent(ctx, created, true)

	monitor.ReplaceAll([]models.Geofence{created})

	statuses := monitor.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("status count = %d, want 1", len(statuses))
	}
	if statuses[0].Inside {
		t.Error("ReplaceAll should reset occupancy to outside")
	}
}

func TestStartStop(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t)
	ctx := context.Background()

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !monitor.IsRunning() {
		t.Fatal("IsRunning = false after Start")
	}
	if err := monitor.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	monitor.Stop()
	if monitor.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}
	monitor.Stop() // idempotent
}
