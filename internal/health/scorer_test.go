// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package health

import (
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

func TestScoreCounts(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		online     int
		total      int
		lowBattery int
		wantScore  int
		wantStatus models.HealthStatus
	}{
		{"empty fleet", 0, 0, 0, 40, models.HealthPoor},
		{"all online no low battery", 6, 6, 0, 100, models.HealthExcellent},
		{"five of six online one low", 5, 6, 1, 86, models.HealthGood},
		{"half online", 3, 6, 0, 70, models.HealthFair},
		{"all offline", 0, 6, 0, 40, models.HealthPoor},
		{"all offline many low batteries", 0, 6, 10, 0, models.HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreCounts(tt.online, tt.total, tt.lowBattery, now)
			if got.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Now()
	devices, telemetry := fleet(6, 5, 1)

	first := Score(devices, telemetry, now)
	for i := 0; i < 10; i++ {
		again := Score(devices, telemetry, now)
		if again.Score != first.Score || again.Status != first.Status {
			t.Fatalf("run %d: score %d/%s differs from first %d/%s",
				i, again.Score, again.Status, first.Score, first.Status)
		}
	}
	if first.Score != 86 {
		t.Errorf("score = %d, want 86", first.Score)
	}
	if first.Status != models.HealthGood {
		t.Errorf("status = %q, want %q", first.Status, models.HealthGood)
	}
}

func TestScoreIssues(t *testing.T) {
	now := time.Now()

	empty := Score(nil, nil, now)
	if len(empty.Issues) != 1 || empty.Issues[0] != "No devices registered" {
		t.Errorf("empty fleet issues = %v", empty.Issues)
	}

	devices, telemetry := fleet(4, 2, 1)
	got := Score(devices, telemetry, now)
	if len(got.Issues) != 2 {
		t.Fatalf("issues = %v, want offline and low-battery entries", got.Issues)
	}
	if got.Issues[0] != "2 of 4 devices offline" {
		t.Errorf("issues[0] = %q", got.Issues[0])
	}
	if got.Issues[1] != "Some devices have low battery" {
		t.Errorf("issues[1] = %q", got.Issues[1])
	}
}

func TestScoreNeverFetchedCountsOffline(t *testing.T) {
	devices := []models.Device{{ID: "d1"}, {ID: "d2"}}
	telemetry := map[string]models.DeviceTelemetry{
		"d1": {DeviceID: "d1", Online: true, BatteryLevel: 90},
	}

	got := Score(devices, telemetry, time.Now())
	// d2 has no telemetry: offline, battery unknown (device.Battery nil).
	want := scoreCounts(1, 2, 0, time.Now()).Score
	if got.Score != want {
		t.Errorf("score = %d, want %d", got.Score, want)
	}
}

// fleet builds total devices with the first online of them online and the
// first lowBattery of them at 10%.
func fleet(total, online, lowBattery int) ([]models.Device, map[string]models.DeviceTelemetry) {
	devices := make([]models.Device, 0, total)
	telemetry := make(map[string]models.DeviceTelemetry, total)
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("dev-%d", i)
		devices = append(devices, models.Device{ID: id, Type: models.DeviceTypeCamera})
		battery := 90
		if i < lowBattery {
			battery = 10
		}
		telemetry[id] = models.DeviceTelemetry{
			DeviceID:     id,
			Online:       i < online,
			BatteryLevel: battery,
		}
	}
	return devices, telemetry
}
