// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package health computes the deterministic 0-100 system health score.
//
// Score is a pure function of (onlineCount, totalCount, lowBatteryCount):
//
//	onlineRate    = onlineCount / totalCount   (0 when the fleet is empty)
//	batteryHealth = max(0, 100 - 10*lowBatteryCount)
//	score         = round(onlineRate*60 + batteryHealth*0.4)
//
// Bands: [90,100] excellent, [75,90) good, [60,75) fair, [40,60) poor,
// below 40 critical. The registry recomputes the whole record after any
// device add/remove or full telemetry refresh; nothing patches it in place.
package health

import (
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

// lowBatteryThreshold matches the registry's low-battery query cutoff.
const lowBatteryThreshold = 20

// Score computes the fleet's health from devices and their telemetry.
// A device counts as online only when a telemetry record says so; devices
// never fetched count as offline. Battery comes from telemetry when present,
// otherwise from the device's coarse battery field.
func Score(devices []models.Device, telemetry map[string]models.DeviceTelemetry, now time.Time) models.SystemHealth {
	total := len(devices)
	online := 0
	lowBattery := 0

	for _, device := range devices {
		tel, hasTel := telemetry[device.ID]
		if hasTel && tel.Online {
			online++
		}
		switch {
		case hasTel:
			if tel.BatteryLevel <= lowBatteryThreshold {
				lowBattery++
			}
		case device.Battery != nil:
			if *device.Battery <= lowBatteryThreshold {
				lowBattery++
			}
		}
	}

	return scoreCounts(online, total, lowBattery, now)
}

// scoreCounts is the arithmetic core, split out so tests can drive the
// counts directly.
func scoreCounts(online, total, lowBattery int, now time.Time) models.SystemHealth {
	onlineRate := 0.0
	if total > 0 {
		onlineRate = float64(online) / float64(total)
	}

	batteryHealth := float64(100 - 10*lowBattery)
	if batteryHealth < 0 {
		batteryHealth = 0
	}

	score := int(math.Round(onlineRate*60 + batteryHealth*0.4))

	var status models.HealthStatus
	switch {
	case score >= 90:
		status = models.HealthExcellent
	case score >= 75:
		status = models.HealthGood
	case score >= 60:
		status = models.HealthFair
	case score >= 40:
		status = models.HealthPoor
	default:
		status = models.HealthCritical
	}

	return models.SystemHealth{
		Status:    status,
		Score:     score,
		Issues:    issues(online, total, lowBattery),
		UpdatedAt: now,
	}
}

// issues derives the deterministic issue list from the same inputs.
func issues(online, total, lowBattery int) []string {
	var out []string
	if total == 0 {
		return append(out, "No devices registered")
	}
	if offline := total - online; offline > 0 {
		out = append(out, fmt.Sprintf("%d of %d devices offline", offline, total))
	}
	if lowBattery > 0 {
		out = append(out, "Some devices have low battery")
	}
	return out
}
