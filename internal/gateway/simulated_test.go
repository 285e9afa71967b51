// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

// staticTokens is a TokenSource with a fixed answer.
type staticTokens struct {
	token string
	ok    bool
}

func (s staticTokens) AccessToken() (string, bool) { return s.token, s.ok }

// captureNotifier records Notify calls.
type captureNotifier struct {
	calls []string
}

func (n *captureNotifier) Notify(category, title, body string) {
	n.calls = append(n.calls, category)
}

func signedIn() staticTokens  { return staticTokens{token: "tok", ok: true} }
func signedOut() staticTokens { return staticTokens{} }

func newTestGateway(tokens TokenSource, opts ...Option) *Simulated {
	base := []Option{
		WithLatencyPolicy(ZeroLatencyPolicy{}),
		WithFaultPolicy(StaticFaultPolicy{}),
		WithSeed(1),
	}
	return NewSimulated(tokens, append(base, opts...)...)
}

func TestAuthGateFailsFast(t *testing.T) {
	gw := NewSimulated(signedOut(), WithLatencyPolicy(WeightedLatencyPolicy{Base: 10 * time.Second}))

	start := time.Now()
	_, err := gw.ListDevices(context.Background())
	elapsed := time.Since(start)

	if !models.IsKind(err, models.ErrNotAuthenticated) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrNotAuthenticated)
	}
	if elapsed > time.Second {
		t.Errorf("signed-out call took %v; the gate must run before latency", elapsed)
	}
}

func TestAuthGateCoversAllOperations(t *testing.T) {
	gw := newTestGateway(signedOut())
	ctx := context.Background()

	calls := map[string]func() error{
		"list_devices":      func() error { _, err := gw.ListDevices(ctx); return err },
		"get_device_status": func() error { _, err := gw.GetDeviceStatus(ctx, "x"); return err },
		"capture_snapshot":  func() error { _, err := gw.CaptureSnapshot(ctx, "x"); return err },
		"stream_url":        func() error { _, err := gw.StreamURL(ctx, "x"); return err },
		"set_recording":     func() error { return gw.SetRecordingMode(ctx, "x", models.RecordingAuto) },
		"set_siren":         func() error { return gw.SetSiren(ctx, "x", true) },
		"set_privacy":       func() error { return gw.SetPrivacyMode(ctx, "x", true) },
		"set_motion":        func() error { return gw.SetMotionDetection(ctx, "x", true) },
		"get_schedule":      func() error { _, err := gw.GetMotionSchedule(ctx, "x"); return err },
		"set_schedule":      func() error { return gw.SetMotionSchedule(ctx, models.MotionSchedule{DeviceID: "x"}) },
		"create_geofence":   func() error { _, err := gw.CreateGeofence(ctx, models.Geofence{}); return err },
		"update_geofence":   func() error { return gw.UpdateGeofence(ctx, models.Geofence{}) },
		"delete_geofence":   func() error { return gw.DeleteGeofence(ctx, "x") },
		"list_geofences":    func() error { _, err := gw.ListGeofences(ctx); return err },
		"generate_report":   func() error { _, err := gw.GenerateReport(ctx); return err },
		"export_backup":     func() error { _, err := gw.ExportBackup(ctx, []byte("b")); return err },
		"fetch_backup":      func() error { _, err := gw.FetchBackup(ctx, "x"); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !models.IsKind(err, models.ErrNotAuthenticated) {
				t.Errorf("error kind = %q, want %q", models.KindOf(err), models.ErrNotAuthenticated)
			}
		})
	}
}

func TestListDevicesStableOrder(t *testing.T) {
	gw := newTestGateway(signedIn())
	ctx := context.Background()

	first, err := gw.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("default fleet size = %d, want 6", len(first))
	}

	second, err := gw.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("device order changed between calls at index %d", i)
		}
	}
}

func TestGetDeviceStatusUnknownDevice(t *testing.T) {
	gw := newTestGateway(signedIn())
	_, err := gw.GetDeviceStatus(context.Background(), "nope")
	if !models.IsKind(err, models.ErrDeviceNotFound) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrDeviceNotFound)
	}
}

func TestTelemetryBatteryOnlyDischarges(t *testing.T) {
	gw := newTestGateway(signedIn())
	ctx := context.Background()

	devices, err := gw.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	id := devices[0].ID

	prev, err := gw.GetDeviceStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetDeviceStatus failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		tel, err := gw.GetDeviceStatus(ctx, id)
		if err != nil {
			t.Fatalf("GetDeviceStatus failed: %v", err)
		}
		if tel.BatteryLevel > prev.BatteryLevel {
			t.Fatalf("battery rose from %d to %d", prev.BatteryLevel, tel.BatteryLevel)
		}
		prev = tel
	}
}

func TestCaptureSnapshotFaultInjection(t *testing.T) {
	gw := newTestGateway(signedIn(), WithFaultPolicy(StaticFaultPolicy{Fail: true}))
	devices, _ := gw.ListDevices(context.Background())

	_, err := gw.CaptureSnapshot(context.Background(), devices[0].ID)
	if !models.IsKind(err, models.ErrOperationFailed) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrOperationFailed)
	}
}

func TestCaptureSnapshotNotifies(t *testing.T) {
	notifier := &captureNotifier{}
	gw := newTestGateway(signedIn(), WithNotifier(notifier))
	devices, _ := gw.ListDevices(context.Background())

	snap, err := gw.CaptureSnapshot(context.Background(), devices[0].ID)
	if err != nil {
		t.Fatalf("CaptureSnapshot failed: %v", err)
	}
	if snap.ImageURL == "" {
		t.Error("snapshot has no image URL")
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "snapshot" {
		t.Errorf("notifier calls = %v, want one snapshot notification", notifier.calls)
	}
}

func TestStreamURLFaultMapsToStreamUnavailable(t *testing.T) {
	gw := newTestGateway(signedIn(), WithFaultPolicy(StaticFaultPolicy{Fail: true}))
	devices, _ := gw.ListDevices(context.Background())

	_, err := gw.StreamURL(context.Background(), devices[0].ID)
	if !models.IsKind(err, models.ErrStreamUnavailable) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrStreamUnavailable)
	}
}

func TestSetRecordingModeRejectsUnknownMode(t *testing.T) {
	gw := newTestGateway(signedIn())
	devices, _ := gw.ListDevices(context.Background())

	err := gw.SetRecordingMode(context.Background(), devices[0].ID, models.RecordingMode("bogus"))
	if !models.IsKind(err, models.ErrOperationFailed) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrOperationFailed)
	}
}

func TestSirenActivationNotifiesDeactivationSilent(t *testing.T) {
	notifier := &captureNotifier{}
	gw := newTestGateway(signedIn(), WithNotifier(notifier))
	devices, _ := gw.ListDevices(context.Background())
	ctx := context.Background()

	if err := gw.SetSiren(ctx, devices[0].ID, true); err != nil {
		t.Fatalf("SetSiren(true) failed: %v", err)
	}
	if err := gw.SetSiren(ctx, devices[0].ID, false); err != nil {
		t.Fatalf("SetSiren(false) failed: %v", err)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "siren" {
		t.Errorf("notifier calls = %v, want exactly one siren notification", notifier.calls)
	}
}

func TestGeofenceLifecycle(t *testing.T) {
	gw := newTestGateway(signedIn())
	ctx := context.Background()

	created, err := gw.CreateGeofence(ctx, models.Geofence{
		Name:    "Home",
		Center:  models.Coordinate{Latitude: 37.77, Longitude: -122.42},
		RadiusM: 150,
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateGeofence failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created geofence has no id")
	}

	created.RadiusM = 300
	if err := gw.UpdateGeofence(ctx, created); err != nil {
		t.Fatalf("UpdateGeofence failed: %v", err)
	}

	list, err := gw.ListGeofences(ctx)
	if err != nil {
		t.Fatalf("ListGeofences failed: %v", err)
	}
	if len(list) != 1 || list[0].RadiusM != 300 {
		t.Fatalf("list = %+v, want one geofence with radius 300", list)
	}

	if err := gw.DeleteGeofence(ctx, created.ID); err != nil {
		t.Fatalf("DeleteGeofence failed: %v", err)
	}
	list, _ = gw.ListGeofences(ctx)
	if len(list) != 0 {
		t.Errorf("geofence list not empty after delete: %+v", list)
	}
}

func TestCreateGeofenceRejectsInvalid(t *testing.T) {
	gw := newTestGateway(signedIn())

	_, err := gw.CreateGeofence(context.Background(), models.Geofence{
		Name:    "Bad",
		Center:  models.Coordinate{Latitude: 95, Longitude: 0},
		RadiusM: 100,
	})
	if err == nil {
		t.Fatal("expected validation failure for latitude 95")
	}
}

func TestBackupQuota(t *testing.T) {
	gw := newTestGateway(signedIn(), WithBackupQuota(16))
	ctx := context.Background()

	id, err := gw.ExportBackup(ctx, []byte("0123456789"))
	if err != nil {
		t.Fatalf("first export failed: %v", err)
	}

	_, err = gw.ExportBackup(ctx, []byte("0123456789"))
	if !models.IsKind(err, models.ErrStorageExceeded) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrStorageExceeded)
	}

	blob, err := gw.FetchBackup(ctx, id)
	if err != nil {
		t.Fatalf("FetchBackup failed: %v", err)
	}
	if string(blob) != "0123456789" {
		t.Errorf("fetched blob = %q", blob)
	}
}

func TestFetchBackupUnknownID(t *testing.T) {
	gw := newTestGateway(signedIn())
	_, err := gw.FetchBackup(context.Background(), "missing")
	if !models.IsKind(err, models.ErrInvalidResponse) {
		t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrInvalidResponse)
	}
}

func TestGenerateReportCountsSnapshots(t *testing.T) {
	gw := newTestGateway(signedIn())
	ctx := context.Background()
	devices, _ := gw.ListDevices(ctx)

	for i := 0; i < 3; i++ {
		if _, err := gw.CaptureSnapshot(ctx, devices[0].ID); err != nil {
			t.Fatalf("CaptureSnapshot failed: %v", err)
		}
	}

	report, err := gw.GenerateReport(ctx)
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if report.SnapshotCount != 3 {
		t.Errorf("SnapshotCount = %d, want 3", report.SnapshotCount)
	}
	if report.DeviceCount != len(devices) {
		t.Errorf("DeviceCount = %d, want %d", report.DeviceCount, len(devices))
	}
}
