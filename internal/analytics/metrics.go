// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation mirroring the in-memory tallies, so a host
// application that exposes /metrics gets fleet observability for free.
var (
	eventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenlink_events_total",
			Help: "Total analytics events recorded, by kind",
		},
		[]string{"kind"},
	)

	featureUsage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenlink_feature_usage_total",
			Help: "Total feature usage tracked, by feature",
		},
		[]string{"feature"},
	)

	deviceInteractions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "havenlink_device_interactions_total",
			Help: "Total device interactions tracked",
		},
	)

	// GatewayCalls counts gateway operations by outcome. Incremented by the
	// registry around its remote calls.
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenlink_gateway_calls_total",
			Help: "Total remote gateway calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// FleetOnline tracks the registry's current online device count.
	FleetOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "havenlink_fleet_online_devices",
			Help: "Devices currently reporting online",
		},
	)

	// HealthScore tracks the most recently computed system health score.
	HealthScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "havenlink_system_health_score",
			Help: "Most recent system health score (0-100)",
		},
	)
)
