// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package geofence owns the named circular regions and their enter/exit
// actions. The simulated detection loop stands in for native region
// callbacks: each detection window draws per enabled region and may flip
// its occupancy; a flip dispatches HandleEvent. Transitions are idempotent
// per (region, direction) - repeating an enter without an intervening exit
// does nothing - and every action is itself idempotent.
package geofence

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
	"github.com/tomtom215/havenlink/internal/registry"
	"github.com/tomtom215/havenlink/internal/validation"
)

// Config tunes the simulated detection loop.
type Config struct {
	// CheckInterval is how often a detection window runs.
	CheckInterval time.Duration

	// TransitionProbability is the chance one window flips one region's
	// occupancy.
	TransitionProbability float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:         30 * time.Second,
		TransitionProbability: 0.1,
	}
}

// Notifier receives geofence transition notifications.
type Notifier interface {
	Notify(category, title, body string)
}

// Recorder receives typed geofence analytics events.
type Recorder interface {
	Record(event models.Event)
}

// Status is one region's monitoring state.
type Status struct {
	ID      string
	Name    string
	Enabled bool
	Inside  bool
}

// Monitor owns the geofence list and its occupancy state. Region CRUD goes
// through the gateway so the remote stays authoritative; the monitor keeps
// the watch list and executes entry actions against the registry.
type Monitor struct {
	gw       gateway.Gateway
	registry *registry.Registry
	notifier Notifier
	recorder Recorder
	config   Config

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand

	stateMu sync.Mutex
	regions map[string]models.Geofence
	order   []string
	inside  map[string]bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSeed seeds the detection loop's random source.
func WithSeed(seed int64) Option {
	return func(m *Monitor) { m.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a monitor. notifier and recorder may be nil.
func New(gw gateway.Gateway, reg *registry.Registry, notifier Notifier, recorder Recorder, config Config, opts ...Option) *Monitor {
	m := &Monitor{
		gw:       gw,
		registry: reg,
		notifier: notifier,
		recorder: recorder,
		config:   config,
		stopChan: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		regions:  make(map[string]models.Geofence),
		inside:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a geofence with the remote and begins watching it.
func (m *Monitor) Create(ctx context.Context, g models.Geofence) (models.Geofence, error) {
	if verr := validation.ValidateStruct(&g); verr != nil {
		return models.Geofence{}, verr.ToOpError("geofence.create")
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	created, err := m.gw.CreateGeofence(ctx, g)
	if err != nil {
		return models.Geofence{}, err
	}

	m.stateMu.Lock()
	if _, exists := m.regions[created.ID]; !exists {
		m.order = append(m.order, created.ID)
	}
	m.regions[created.ID] = created.Copy()
	m.inside[created.ID] = false
	m.stateMu.Unlock()

	logging.Info().Str("geofence", created.Name).Float64("radius_m", created.RadiusM).Msg("Geofence created")
	return created, nil
}

// Update replaces a watched geofence's definition. Occupancy is preserved.
func (m *Monitor) Update(ctx context.Context, g models.Geofence) error {
	if verr := validation.ValidateStruct(&g); verr != nil {
		return verr.ToOpError("geofence.update")
	}
	if err := m.gw.UpdateGeofence(ctx, g); err != nil {
		return err
	}

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if _, ok := m.regions[g.ID]; !ok {
		return models.NewOpError(models.ErrOperationFailed, "geofence.update")
	}
	m.regions[g.ID] = g.Copy()
	return nil
}

// Remove stops watching and deletes the geofence. Removing an unknown id
// is a no-op.
func (m *Monitor) Remove(ctx context.Context, id string) error {
	if err := m.gw.DeleteGeofence(ctx, id); err != nil {
		return err
	}

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	delete(m.regions, id)
	delete(m.inside, id)
	for i, gid := range m.order {
		if gid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Geofences returns the watched regions in creation order.
func (m *Monitor) Geofences() []models.Geofence {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	out := make([]models.Geofence, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.regions[id].Copy())
	}
	return out
}

// ReplaceAll swaps the watched region set atomically. Used by backup
// restore; all occupancy state resets to outside.
func (m *Monitor) ReplaceAll(geofences []models.Geofence) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.regions = make(map[string]models.Geofence, len(geofences))
	m.order = m.order[:0]
	m.inside = make(map[string]bool, len(geofences))
	for _, g := range geofences {
		m.regions[g.ID] = g.Copy()
		m.order = append(m.order, g.ID)
		m.inside[g.ID] = false
	}
}

// Statuses returns each watched region's occupancy state.
func (m *Monitor) Statuses() []Status {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	out := make([]Status, 0, len(m.order))
	for _, id := range m.order {
		g := m.regions[id]
		out = append(out, Status{ID: g.ID, Name: g.Name, Enabled: g.Enabled, Inside: m.inside[id]})
	}
	return out
}

// Start begins the detection loop. Idempotent while running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	logging.Info().Dur("interval", m.config.CheckInterval).Msg("Starting geofence monitor")

	m.wg.Add(1)
	go m.detectLoop(ctx)
	return nil
}

// Serve implements suture.Service.
func (m *Monitor) Serve(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return ctx.Err()
}

// Stop halts the detection loop and waits for an in-flight window.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	logging.Info().Msg("Geofence monitor stopped")
}

// IsRunning reports whether the detection loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// detectLoop runs detection windows until stopped.
func (m *Monitor) detectLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.detectOnce(ctx)
		}
	}
}

// detectOnce is one detection window: per enabled region, draw and maybe
// flip occupancy. Exported indirectly for tests via HandleEvent.
func (m *Monitor) detectOnce(ctx context.Context) {
	m.stateMu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	m.stateMu.Unlock()

	for _, id := range ids {
		m.stateMu.Lock()
		g, ok := m.regions[id]
		inside := m.inside[id]
		m.stateMu.Unlock()
		if !ok || !g.Enabled {
			continue
		}

		m.rngMu.Lock()
		flip := m.rng.Float64() < m.config.TransitionProbability
		m.rngMu.Unlock()
		if flip {
			m.HandleEvent(ctx, g, !inside)
		}
	}
}

// HandleEvent processes one enter/exit transition for a region. Idempotent
// per (region, direction): a repeated enter without an intervening exit is
// dropped. Entry executes the region's action list in order; exit only
// notifies.
func (m *Monitor) HandleEvent(ctx context.Context, g models.Geofence, entered bool) {
	m.stateMu.Lock()
	if _, ok := m.regions[g.ID]; !ok {
		m.stateMu.Unlock()
		return
	}
	if m.inside[g.ID] == entered {
		m.stateMu.Unlock()
		logging.Debug().Str("geofence", g.Name).Bool("entered", entered).Msg("Duplicate geofence transition ignored")
		return
	}
	m.inside[g.ID] = entered
	actions := make([]models.GeofenceAction, len(g.Actions))
	copy(actions, g.Actions)
	m.stateMu.Unlock()

	direction := "Exited"
	if entered {
		direction = "Entered"
	}
	logging.Info().Str("geofence", g.Name).Bool("entered", entered).Msg("Geofence transition")

	if m.notifier != nil {
		m.notifier.Notify("geofence", fmt.Sprintf("%s %s", direction, g.Name),
			fmt.Sprintf("You %s the %s zone", lower(direction), g.Name))
	}
	if m.recorder != nil {
		m.recorder.Record(models.NewGeofenceEvent(time.Now(), g.ID, g.Name, entered))
	}

	if entered {
		for _, action := range actions {
			m.runAction(ctx, g, action)
		}
	}
}

// runAction executes one entry action. Action failures are logged and do
// not stop the remaining actions; every action is idempotent.
func (m *Monitor) runAction(ctx context.Context, g models.Geofence, action models.GeofenceAction) {
	switch action {
	case models.ActionEnableMotionDetection:
		m.setAllMotionDetection(ctx, true)
	case models.ActionDisableMotionDetection:
		m.setAllMotionDetection(ctx, false)
	case models.ActionSendNotification:
		if m.notifier != nil {
			m.notifier.Notify("geofence", "Home Automation", fmt.Sprintf("Running %s arrival actions", g.Name))
		}
	case models.ActionCaptureSnapshot:
		m.captureEntrySnapshot(ctx)
	default:
		logging.Warn().Str("action", string(action)).Msg("Unknown geofence action")
	}
}

// setAllMotionDetection applies the motion-detection flag to every camera
// class device. Devices already in the target state are remote no-ops.
func (m *Monitor) setAllMotionDetection(ctx context.Context, enabled bool) {
	for _, device := range m.registry.Devices() {
		switch device.Type {
		case models.DeviceTypeCamera, models.DeviceTypeDoorbell, models.DeviceTypeMotionSensor:
		default:
			continue
		}
		if m.registry.MotionDetectionEnabled(device.ID) == enabled {
			continue
		}
		if err := m.registry.SetMotionDetection(ctx, device.ID, enabled); err != nil {
			logging.Warn().Err(err).Str("device", device.ID).Msg("Geofence motion-detection action failed")
		}
	}
}

// captureEntrySnapshot captures a still from the first camera.
func (m *Monitor) captureEntrySnapshot(ctx context.Context) {
	for _, device := range m.registry.Devices() {
		if device.Type != models.DeviceTypeCamera && device.Type != models.DeviceTypeDoorbell {
			continue
		}
		if _, err := m.registry.CaptureSnapshot(ctx, device.ID); err != nil {
			logging.Warn().Err(err).Str("device", device.ID).Msg("Geofence snapshot action failed")
		}
		return
	}
}

// lower maps the two direction labels to sentence case.
func lower(direction string) string {
	if direction == "Entered" {
		return "entered"
	}
	return "exited"
}
