// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package scheduler runs the core's recurring background ticks while a
// session is signed in:
//
//  1. Network-health check (short interval): a high-probability-true random
//     draw flips the registry's online flag; transitions are logged once.
//  2. Device-status refresh (longer interval): re-fetches telemetry for
//     every registered device.
//  3. Periodic task bundle (same cadence as #2): alert injection, geofence
//     occupancy check and maintenance-threshold check in one pass.
//
// Overlap rule: if a tick's previous execution is still in flight when the
// next firing is due, that firing is skipped rather than queued -
// overlapping refreshes of the same registry are not safe. Each tick
// carries an explicit busy flag; skips are logged at debug.
//
// All ticks stop immediately and deterministically on sign-out; a tick
// never fires after teardown.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/havenlink/internal/geofence"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
	"github.com/tomtom215/havenlink/internal/registry"
)

// Config tunes the three tick cadences.
type Config struct {
	// NetworkCheckInterval drives the network-health tick.
	NetworkCheckInterval time.Duration

	// RefreshInterval drives both the device-status refresh tick and the
	// periodic task bundle.
	RefreshInterval time.Duration

	// OnlineProbability is the chance a network-health draw comes up
	// online.
	OnlineProbability float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		NetworkCheckInterval: 10 * time.Second,
		RefreshInterval:      30 * time.Second,
		OnlineProbability:    0.9,
	}
}

// Notifier receives maintenance notifications. internal/notify's Dispatcher
// satisfies it.
type Notifier interface {
	Notify(category, title, body string)
}

// Scheduler drives the recurring ticks against the registry and geofence
// monitor.
type Scheduler struct {
	registry *registry.Registry
	monitor  *geofence.Monitor
	notifier Notifier
	config   Config

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand

	networkBusy  atomic.Bool
	refreshBusy  atomic.Bool
	periodicBusy atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSeed seeds the scheduler's random source for reproducible draws.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a scheduler. The monitor and notifier may be nil; the
// corresponding periodic-bundle steps are skipped.
func New(reg *registry.Registry, monitor *geofence.Monitor, notifier Notifier, config Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: reg,
		monitor:  monitor,
		notifier: notifier,
		config:   config,
		stopChan: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the tick loops. Idempotent while running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	logging.Info().
		Dur("network_interval", s.config.NetworkCheckInterval).
		Dur("refresh_interval", s.config.RefreshInterval).
		Msg("Starting polling scheduler")

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Stop halts all ticks and waits for any in-flight tick to finish, so no
// tick fires after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Polling scheduler stopped")
}

// IsRunning reports whether the tick loops are active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// loop multiplexes the three tickers on one goroutine. Tick bodies run on
// spawned goroutines guarded by their busy flags, so a slow refresh cannot
// stall the network check.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	networkTicker := time.NewTicker(s.config.NetworkCheckInterval)
	defer networkTicker.Stop()
	refreshTicker := time.NewTicker(s.config.RefreshInterval)
	defer refreshTicker.Stop()
	periodicTicker := time.NewTicker(s.config.RefreshInterval)
	defer periodicTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-networkTicker.C:
			s.spawn(ctx, &s.networkBusy, "network_check", s.NetworkCheck)
		case <-refreshTicker.C:
			s.spawn(ctx, &s.refreshBusy, "device_refresh", s.DeviceRefresh)
		case <-periodicTicker.C:
			s.spawn(ctx, &s.periodicBusy, "periodic_tasks", s.PeriodicTasks)
		}
	}
}

// spawn runs one tick body unless its previous execution is still in
// flight, in which case this firing is skipped.
func (s *Scheduler) spawn(ctx context.Context, busy *atomic.Bool, name string, tick func(context.Context)) {
	if !busy.CompareAndSwap(false, true) {
		logging.Debug().Str("tick", name).Msg("Skipping tick, previous execution still running")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer busy.Store(false)
		tick(ctx)
	}()
}

// NetworkCheck is tick #1: draw the simulated network state and record it.
// Exported so tests can fire a tick deterministically.
func (s *Scheduler) NetworkCheck(context.Context) {
	s.rngMu.Lock()
	online := s.rng.Float64() < s.config.OnlineProbability
	s.rngMu.Unlock()

	s.registry.SetNetworkOnline(online)
}

// DeviceRefresh is tick #2: re-fetch telemetry for every registered device.
// Failures are logged by the registry and silently retried next tick.
func (s *Scheduler) DeviceRefresh(ctx context.Context) {
	s.registry.RefreshAllTelemetry(ctx)
}

// PeriodicTasks is tick #3: alert injection, geofence occupancy check and
// maintenance-threshold check bundled into one pass.
func (s *Scheduler) PeriodicTasks(ctx context.Context) {
	s.injectAlert()
	s.checkGeofences()
	s.checkMaintenance()
}

// injectAlert occasionally synthesizes a motion alert on a random
// camera-class device, standing in for the remote's push channel.
func (s *Scheduler) injectAlert() {
	devices := s.registry.Devices()
	var candidates []models.Device
	for _, d := range devices {
		switch d.Type {
		case models.DeviceTypeCamera, models.DeviceTypeDoorbell, models.DeviceTypeMotionSensor:
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return
	}

	s.rngMu.Lock()
	fire := s.rng.Float64() < 0.3
	var device models.Device
	var confidence float64
	if fire {
		device = candidates[s.rng.Intn(len(candidates))]
		confidence = 0.5 + s.rng.Float64()*0.5
	}
	s.rngMu.Unlock()
	if !fire {
		return
	}

	s.registry.AddAlert(models.MotionAlert{
		ID:          uuid.NewString(),
		DeviceID:    device.ID,
		Timestamp:   time.Now(),
		Description: fmt.Sprintf("Motion detected at %s", device.Name),
		Type:        models.AlertMotion,
		Confidence:  confidence,
		HasVideo:    device.Type != models.DeviceTypeMotionSensor,
	})
}

// checkGeofences logs current region occupancy so drift shows up in traces.
func (s *Scheduler) checkGeofences() {
	if s.monitor == nil {
		return
	}
	for _, status := range s.monitor.Statuses() {
		logging.Debug().
			Str("geofence", status.Name).
			Bool("occupied", status.Inside).
			Bool("enabled", status.Enabled).
			Msg("Geofence status")
	}
}

// checkMaintenance raises maintenance notifications for devices that are
// low on battery or offline. The dispatcher's rate limiting keeps repeated
// ticks from storming the user.
func (s *Scheduler) checkMaintenance() {
	if s.notifier == nil {
		return
	}
	if low := s.registry.LowBatteryDevices(); len(low) > 0 {
		s.notifier.Notify("maintenance", "Low Battery",
			fmt.Sprintf("%d device(s) need charging", len(low)))
	}
	if offline := s.registry.OfflineDevices(); len(offline) > 0 {
		s.notifier.Notify("maintenance", "Devices Offline",
			fmt.Sprintf("%d device(s) are offline", len(offline)))
	}
}
