// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package registry owns the authoritative in-memory view of the device
// fleet: the device list, per-device telemetry, the recent-alert list and
// motion schedules. Every mutation funnels through the Registry so
// presentation code never sees a torn read; timer ticks, gateway responses
// and geofence actions all post their changes here.
//
// Concurrency model: one mutex guards all state, and gateway calls happen
// outside the lock. Full loads are sequenced by a generation counter -
// loads are totally ordered by start time, and a response from a stale load
// is discarded once a newer load has started. After Close (sign-out) every
// apply path discards its result, so an in-flight call can complete without
// mutating a torn-down registry.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/havenlink/internal/analytics"
	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/health"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
)

// Config tunes registry behavior.
type Config struct {
	// StaleAfter is how long without a last-seen report before a device
	// counts as needing attention.
	StaleAfter time.Duration

	// LowBatteryThreshold is the percentage at or below which a device is
	// flagged low-battery.
	LowBatteryThreshold int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		StaleAfter:          24 * time.Hour,
		LowBatteryThreshold: 20,
	}
}

// Registry is the single owner of authoritative device state.
type Registry struct {
	gw        gateway.Gateway
	agg       *analytics.Aggregator
	cfg       Config
	publisher *Publisher

	mu        sync.RWMutex
	closed    bool
	loadSeq   uint64
	isLoading bool
	lastError error
	online    bool

	devices     map[string]models.Device
	deviceOrder []string
	telemetry   map[string]models.DeviceTelemetry
	schedules   map[string]models.MotionSchedule
	alerts      []models.MotionAlert
	health      models.SystemHealth
}

// New creates a registry backed by the given gateway. The aggregator may be
// nil, in which case analytics recording is skipped.
func New(gw gateway.Gateway, agg *analytics.Aggregator, cfg Config) *Registry {
	r := &Registry{
		gw:        gw,
		agg:       agg,
		cfg:       cfg,
		publisher: NewPublisher(),
		online:    true,
		devices:   make(map[string]models.Device),
		telemetry: make(map[string]models.DeviceTelemetry),
		schedules: make(map[string]models.MotionSchedule),
	}
	r.health = health.Score(nil, nil, time.Now())
	return r
}

// LoadDevices fetches the device list, replaces the registry's full set,
// then fetches telemetry for every device and backfills recent alerts.
// Concurrent loads do not interleave: if a newer load starts before this
// one's response lands, this one's response is discarded entirely.
func (r *Registry) LoadDevices(ctx context.Context) error {
	const op = "registry.load_devices"

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return models.NewOpError(models.ErrNotAuthenticated, op)
	}
	r.loadSeq++
	seq := r.loadSeq
	r.isLoading = true
	r.lastError = nil
	r.mu.Unlock()

	devices, err := r.gw.ListDevices(ctx)
	r.countCall(gateway.OpListDevices, err)

	r.mu.Lock()
	if r.closed || seq != r.loadSeq {
		// A newer load started (or the session ended) while this response
		// was in flight; discard it without touching state.
		r.mu.Unlock()
		logging.Debug().Uint64("seq", seq).Msg("Discarding stale device load")
		return nil
	}
	if err != nil {
		r.isLoading = false
		r.lastError = err
		r.mu.Unlock()
		return err
	}

	r.devices = make(map[string]models.Device, len(devices))
	r.deviceOrder = r.deviceOrder[:0]
	for _, d := range devices {
		r.devices[d.ID] = d.Copy()
		r.deviceOrder = append(r.deviceOrder, d.ID)
	}
	// Drop telemetry and schedules for devices no longer present.
	for id := range r.telemetry {
		if _, ok := r.devices[id]; !ok {
			delete(r.telemetry, id)
		}
	}
	for id := range r.schedules {
		if _, ok := r.devices[id]; !ok {
			delete(r.schedules, id)
		}
	}
	r.recomputeHealthLocked()
	r.mu.Unlock()

	if r.agg != nil {
		r.agg.Record(models.NewDeviceCountEvent(time.Now(), len(devices)))
	}
	r.publisher.DevicesUpdated(len(devices))
	logging.Info().Int("count", len(devices)).Msg("Device list loaded")

	r.fetchAllTelemetry(ctx, seq)
	r.backfillAlerts(seq)

	r.mu.Lock()
	if seq == r.loadSeq {
		r.isLoading = false
	}
	r.mu.Unlock()
	return nil
}

// fetchAllTelemetry refreshes telemetry for every device known at call
// time. seq > 0 ties the applies to a specific load generation; seq == 0
// (scheduler refresh) applies unless the registry is closed.
func (r *Registry) fetchAllTelemetry(ctx context.Context, seq uint64) {
	r.mu.RLock()
	ids := make([]string, len(r.deviceOrder))
	copy(ids, r.deviceOrder)
	r.mu.RUnlock()

	for _, id := range ids {
		tel, err := r.gw.GetDeviceStatus(ctx, id)
		r.countCall(gateway.OpGetDeviceStatus, err)
		if err != nil {
			// Background refresh failures are retried on the next tick and
			// never surfaced to the user.
			logging.Warn().Err(err).Str("device", id).Msg("Telemetry fetch failed")
			continue
		}
		if !r.applyTelemetry(seq, id, tel) {
			return
		}
	}

	// When every fetch errored the loop never consulted applyTelemetry, so
	// re-check the generation before touching health.
	r.mu.Lock()
	if r.closed || (seq > 0 && seq != r.loadSeq) {
		r.mu.Unlock()
		return
	}
	r.recomputeHealthLocked()
	r.mu.Unlock()
	r.publisher.HealthUpdated(r.SystemHealth())
}

// applyTelemetry stores one fetched record, replacing the previous record
// whole. Returns false when the generation is stale and the caller should
// abandon its remaining fetches.
func (r *Registry) applyTelemetry(seq uint64, id string, tel models.DeviceTelemetry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || (seq > 0 && seq != r.loadSeq) {
		return false
	}
	if _, ok := r.devices[id]; !ok {
		return true
	}
	tel.Synthetic = false
	r.telemetry[id] = tel

	device := r.devices[id]
	now := tel.FetchedAt
	device.LastSeen = &now
	if tel.Online {
		if device.Status == models.StatusUnknown || device.Status == models.StatusOff {
			device.Status = models.StatusOn
		}
	} else {
		device.Status = models.StatusOff
	}
	battery := tel.BatteryLevel
	if device.Battery != nil {
		device.Battery = &battery
	}
	r.devices[id] = device
	return true
}

// RefreshAllTelemetry re-fetches telemetry for every registered device.
// Used by the device-status polling tick; results apply unless the registry
// closed mid-flight.
func (r *Registry) RefreshAllTelemetry(ctx context.Context) {
	if r.isClosed() {
		return
	}
	r.fetchAllTelemetry(ctx, 0)
}

// AddDevice registers a device locally. Adding an existing id replaces it.
func (r *Registry) AddDevice(device models.Device) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, exists := r.devices[device.ID]; !exists {
		r.deviceOrder = append(r.deviceOrder, device.ID)
	}
	r.devices[device.ID] = device.Copy()
	r.recomputeHealthLocked()
	count := len(r.devices)
	r.mu.Unlock()

	if r.agg != nil {
		r.agg.TrackDeviceInteraction(device.ID)
	}
	r.publisher.DevicesUpdated(count)
}

// RemoveDevice deletes a device along with its telemetry and schedule.
// Removing an unknown id is a no-op.
func (r *Registry) RemoveDevice(id string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, ok := r.devices[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.devices, id)
	delete(r.telemetry, id)
	delete(r.schedules, id)
	for i, did := range r.deviceOrder {
		if did == id {
			r.deviceOrder = append(r.deviceOrder[:i], r.deviceOrder[i+1:]...)
			break
		}
	}
	r.recomputeHealthLocked()
	count := len(r.devices)
	r.mu.Unlock()

	r.publisher.DevicesUpdated(count)
}

// GetDeviceStatus returns cached telemetry for the device. When no fetch
// has completed yet, a synthetic placeholder is created from default
// ranges, cached and returned, so status appears even for never-fetched
// devices. Placeholders are marked Synthetic so callers that care can tell
// them from real readings.
func (r *Registry) GetDeviceStatus(id string) (models.DeviceTelemetry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tel, ok := r.telemetry[id]; ok {
		return tel.Copy(), true
	}
	device, ok := r.devices[id]
	if !ok {
		return models.DeviceTelemetry{}, false
	}

	tel := syntheticTelemetry(device)
	r.telemetry[id] = tel
	return tel.Copy(), true
}

// syntheticTelemetry builds the lazy placeholder for a never-fetched
// device.
func syntheticTelemetry(device models.Device) models.DeviceTelemetry {
	battery := 100
	if device.Battery != nil {
		battery = *device.Battery
	}
	return models.DeviceTelemetry{
		DeviceID:        device.ID,
		Online:          device.Status == models.StatusOn || device.Status == models.StatusOpen,
		BatteryLevel:    battery,
		MotionDetection: true,
		SignalStrength:  3,
		Firmware:        "unknown",
		Temperature:     20,
		RecordingMode:   models.RecordingAuto,
		Synthetic:       true,
		FetchedAt:       time.Now(),
	}
}

// SetNetworkOnline records the network-health flag. Transitions are logged
// and published; repeated sets of the same value are silent.
func (r *Registry) SetNetworkOnline(online bool) {
	r.mu.Lock()
	if r.closed || r.online == online {
		r.mu.Unlock()
		return
	}
	r.online = online
	r.mu.Unlock()

	logging.Info().Bool("online", online).Msg("Network status changed")
	r.publisher.NetworkChanged(online)
}

// recomputeHealthLocked rebuilds the health record from current state.
// Must be called with mu held.
func (r *Registry) recomputeHealthLocked() {
	devices := make([]models.Device, 0, len(r.deviceOrder))
	for _, id := range r.deviceOrder {
		devices = append(devices, r.devices[id])
	}
	r.health = health.Score(devices, r.telemetry, time.Now())

	online := 0
	for _, tel := range r.telemetry {
		if tel.Online {
			online++
		}
	}
	analytics.FleetOnline.Set(float64(online))
	analytics.HealthScore.Set(float64(r.health.Score))
}

// countCall records a gateway call outcome metric.
func (r *Registry) countCall(op gateway.Operation, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(models.KindOf(err))
	}
	analytics.GatewayCalls.WithLabelValues(string(op), outcome).Inc()
}

// isClosed reports whether the registry has been shut down.
func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close shuts the registry down: subsequent mutations are discarded and the
// event publisher is closed. Called on sign-out.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.publisher.Close()
}
