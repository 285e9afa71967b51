// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package models

import "time"

// HealthStatus is the band a system health score falls into.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent" // [90,100]
	HealthGood      HealthStatus = "good"      // [75,90)
	HealthFair      HealthStatus = "fair"      // [60,75)
	HealthPoor      HealthStatus = "poor"      // [40,60)
	HealthCritical  HealthStatus = "critical"  // [0,40)
)

// SystemHealth is a deterministic 0-100 summary of fleet-wide online rate
// and battery health. It is recomputed whole after any device add/remove or
// full telemetry refresh, never patched incrementally.
type SystemHealth struct {
	Status    HealthStatus `json:"status"`
	Score     int          `json:"score"` // 0..100
	Issues    []string     `json:"issues"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Copy returns a deep copy of the health record.
func (h SystemHealth) Copy() SystemHealth {
	out := h
	if h.Issues != nil {
		out.Issues = make([]string, len(h.Issues))
		copy(out.Issues, h.Issues)
	}
	return out
}
