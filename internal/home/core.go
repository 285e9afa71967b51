// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package home is the composition root. Core wires the session, gateway,
// registry, monitor, scheduler and backup manager together, runs the
// background services under a per-session supervisor tree, and tears the
// whole graph down on sign-out.
package home

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/havenlink/internal/analytics"
	"github.com/tomtom215/havenlink/internal/auth"
	"github.com/tomtom215/havenlink/internal/backup"
	"github.com/tomtom215/havenlink/internal/config"
	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/geofence"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
	"github.com/tomtom215/havenlink/internal/notify"
	"github.com/tomtom215/havenlink/internal/registry"
	"github.com/tomtom215/havenlink/internal/scheduler"
	"github.com/tomtom215/havenlink/internal/supervisor"
)

// Core owns the application object graph. The session, dispatcher and
// analytics aggregator live for the process; everything else is built on
// sign-in and discarded on sign-out.
type Core struct {
	config     *config.Config
	session    *auth.Session
	dispatcher *notify.Dispatcher
	analytics  *analytics.Aggregator

	gatewayOpts   []gateway.Option
	schedulerOpts []scheduler.Option
	monitorOpts   []geofence.Option
	treeConfig    supervisor.TreeConfig

	mu       sync.Mutex
	gateway  gateway.Gateway
	registry *registry.Registry
	monitor  *geofence.Monitor
	backups  *backup.Manager
	cancel   context.CancelFunc
	done     <-chan error
}

// Option configures a Core.
type Option func(*Core)

// WithGatewayOptions forwards options to the simulated gateway built on
// each sign-in. Tests use this to zero latency and pin fault outcomes.
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(c *Core) { c.gatewayOpts = append(c.gatewayOpts, opts...) }
}

// WithSchedulerOptions forwards options to the per-session scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(c *Core) { c.schedulerOpts = append(c.schedulerOpts, opts...) }
}

// WithMonitorOptions forwards options to the per-session geofence monitor.
func WithMonitorOptions(opts ...geofence.Option) Option {
	return func(c *Core) { c.monitorOpts = append(c.monitorOpts, opts...) }
}

// WithTreeConfig overrides the supervisor tree configuration.
func WithTreeConfig(tc supervisor.TreeConfig) Option {
	return func(c *Core) { c.treeConfig = tc }
}

// New builds a Core from cfg. sink receives delivered notifications;
// sessionOpts configure the authentication session (tests pin its outcome
// and latency there).
func New(cfg *config.Config, sink notify.Sink, sessionOpts []auth.SessionOption, opts ...Option) *Core {
	c := &Core{
		config:  cfg,
		session: auth.NewSession(sessionOpts...),
		dispatcher: notify.NewDispatcher(sink, notify.Config{
			PerCategoryInterval: cfg.Notify.PerCategoryInterval,
			Burst:               cfg.Notify.Burst,
			DedupWindow:         cfg.Notify.DedupWindow,
		}),
		analytics:  analytics.NewAggregator(cfg.Analytics.MaxEvents),
		treeConfig: supervisor.DefaultTreeConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session.OnSignOut(c.teardown)
	return c
}

// SignIn authenticates, builds the session object graph, starts the
// background services and performs the initial device load. A failed
// sign-in leaves the Core exactly as it was.
func (c *Core) SignIn(ctx context.Context) error {
	if err := c.session.SignIn(ctx); err != nil {
		c.analytics.Record(models.NewAuthEvent(time.Now(), "sign_in", false))
		return err
	}
	c.analytics.Record(models.NewAuthEvent(time.Now(), "sign_in", true))

	c.mu.Lock()
	c.buildSessionGraphLocked()
	reg := c.registry
	c.mu.Unlock()

	if err := reg.LoadDevices(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial device load failed")
	}
	return nil
}

// buildSessionGraphLocked constructs the per-session components and starts
// the supervisor tree. Caller holds c.mu.
func (c *Core) buildSessionGraphLocked() {
	gwOpts := append([]gateway.Option{
		gateway.WithLatencyPolicy(gateway.WeightedLatencyPolicy{Base: c.config.Gateway.BaseLatency}),
		gateway.WithFaultPolicy(gateway.NewRandomFaultPolicy(c.config.Gateway.FlakyFailureRate, time.Now().UnixNano())),
		gateway.WithNotifier(c.dispatcher),
	}, c.gatewayOpts...)

	var gw gateway.Gateway = gateway.NewSimulated(c.session, gwOpts...)
	if c.config.Gateway.Breaker.Enabled {
		gw = gateway.NewBreaker(gw, gateway.BreakerSettings{
			MaxRequests:  c.config.Gateway.Breaker.MaxRequests,
			Interval:     c.config.Gateway.Breaker.Interval,
			Timeout:      c.config.Gateway.Breaker.Timeout,
			MinRequests:  c.config.Gateway.Breaker.MinRequests,
			FailureRatio: c.config.Gateway.Breaker.FailureRatio,
		})
	}

	reg := registry.New(gw, c.analytics, registry.Config{
		StaleAfter:          c.config.Registry.StaleAfter,
		LowBatteryThreshold: c.config.Registry.LowBatteryThreshold,
	})

	monitor := geofence.New(gw, reg, c.dispatcher, c.analytics, geofence.Config{
		CheckInterval:         c.config.Geofence.CheckInterval,
		TransitionProbability: c.config.Geofence.TransitionProbability,
	}, c.monitorOpts...)

	sched := scheduler.New(reg, monitor, c.dispatcher, scheduler.Config{
		NetworkCheckInterval: c.config.Polling.NetworkCheckInterval,
		RefreshInterval:      c.config.Polling.RefreshInterval,
		OnlineProbability:    c.config.Polling.OnlineProbability,
	}, c.schedulerOpts...)

	tree := supervisor.NewSessionTree(logging.NewSlogLogger(), c.treeConfig)
	tree.AddPollingService(sched)
	tree.AddAutomationService(monitor)

	runCtx, cancel := context.WithCancel(context.Background())

	c.gateway = gw
	c.registry = reg
	c.monitor = monitor
	c.backups = backup.New(reg, monitor, gw, c.analytics, c.config.Backup)
	c.cancel = cancel
	c.done = tree.ServeBackground(runCtx)

	logging.Info().Msg("Session services started")
}

// SignOut ends the session. Teardown runs through the session's sign-out
// hook so expired refreshes tear down the same way.
func (c *Core) SignOut() {
	c.analytics.Record(models.NewAuthEvent(time.Now(), "sign_out", true))
	c.session.SignOut()
}

// teardown stops the supervisor tree, closes the registry and clears the
// per-session graph. Runs exactly once per session via the sign-out hook.
func (c *Core) teardown() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	reg := c.registry
	c.gateway = nil
	c.registry = nil
	c.monitor = nil
	c.backups = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	if reg != nil {
		reg.Close()
	}
	c.analytics.Reset()
	logging.Info().Msg("Session services stopped")
}

// Session returns the authentication session.
func (c *Core) Session() *auth.Session { return c.session }

// Notifications returns the dispatcher.
func (c *Core) Notifications() *notify.Dispatcher { return c.dispatcher }

// Analytics returns the aggregator.
func (c *Core) Analytics() *analytics.Aggregator { return c.analytics }

// Registry returns the device registry, or nil when signed out.
func (c *Core) Registry() *registry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// Monitor returns the geofence monitor, or nil when signed out.
func (c *Core) Monitor() *geofence.Monitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor
}

// Backups returns the backup manager, or nil when signed out.
func (c *Core) Backups() *backup.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backups
}

// Gateway returns the active gateway, or nil when signed out.
func (c *Core) Gateway() gateway.Gateway {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateway
}
