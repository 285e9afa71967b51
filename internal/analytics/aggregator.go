// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package analytics records typed usage events and interaction counters for
// the orchestration core. The log is bounded (oldest events evicted past
// the cap) and fully cleared on sign-out.
package analytics

import (
	"sync"

	"github.com/tomtom215/havenlink/internal/models"
)

// Aggregator is an append-only typed event log plus free-running counters
// for feature usage and per-device interactions. Safe for concurrent use.
type Aggregator struct {
	maxEvents int

	mu          sync.RWMutex
	events      []models.Event
	byKind      map[models.EventKind]int
	featureUse  map[string]int
	deviceTouch map[string]int
}

// NewAggregator creates an aggregator keeping at most maxEvents events.
// maxEvents <= 0 means unbounded.
func NewAggregator(maxEvents int) *Aggregator {
	return &Aggregator{
		maxEvents:   maxEvents,
		byKind:      make(map[models.EventKind]int),
		featureUse:  make(map[string]int),
		deviceTouch: make(map[string]int),
	}
}

// Record appends one event. Past the cap the oldest event is evicted; kind
// totals keep counting regardless.
func (a *Aggregator) Record(event models.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, event)
	if a.maxEvents > 0 && len(a.events) > a.maxEvents {
		a.events = a.events[len(a.events)-a.maxEvents:]
	}
	a.byKind[event.Kind()]++
	eventsRecorded.WithLabelValues(string(event.Kind())).Inc()
}

// TrackFeature increments the usage counter for a named feature.
func (a *Aggregator) TrackFeature(feature string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.featureUse[feature]++
	featureUsage.WithLabelValues(feature).Inc()
}

// TrackDeviceInteraction increments the interaction counter for a device.
func (a *Aggregator) TrackDeviceInteraction(deviceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deviceTouch[deviceID]++
	deviceInteractions.Inc()
}

// Events returns a copy of the retained event log, oldest first.
func (a *Aggregator) Events() []models.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Event, len(a.events))
	copy(out, a.events)
	return out
}

// CountByKind returns the total recorded events of one kind, including any
// evicted from the bounded log.
func (a *Aggregator) CountByKind(kind models.EventKind) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.byKind[kind]
}

// MostUsedFeature returns the feature with the highest usage count, or ""
// when nothing has been tracked. Ties break lexicographically smallest so
// the answer is deterministic.
func (a *Aggregator) MostUsedFeature() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	best := ""
	bestCount := 0
	for feature, count := range a.featureUse {
		if count > bestCount || (count == bestCount && bestCount > 0 && feature < best) {
			best = feature
			bestCount = count
		}
	}
	return best
}

// DeviceInteractions returns the interaction count for one device.
func (a *Aggregator) DeviceInteractions(deviceID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.deviceTouch[deviceID]
}

// TotalEvents returns the number of events currently retained.
func (a *Aggregator) TotalEvents() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

// Reset clears all recorded state. Called on sign-out.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
	a.byKind = make(map[models.EventKind]int)
	a.featureUse = make(map[string]int)
	a.deviceTouch = make(map[string]int)
}
