// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package supervisor hosts the background services of a signed-in session
// under a suture tree. The tree is session-scoped: it is built on sign-in,
// serves until sign-out, and restarting a crashed poller never outlives
// the session that owns it.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production-ready defaults. These values match
// suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SessionTree supervises the per-session background services.
//
// Two layers give failure isolation: a crash in the polling layer (network
// checks, telemetry refresh) does not restart the automation layer
// (geofence detection) and vice versa.
type SessionTree struct {
	root       *suture.Supervisor
	polling    *suture.Supervisor
	automation *suture.Supervisor
	logger     *slog.Logger
	config     TreeConfig
}

// NewSessionTree creates a supervisor tree with the given configuration.
func NewSessionTree(logger *slog.Logger, config TreeConfig) *SessionTree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// MustHook has a pointer receiver, so take the handler's address.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("havenlink-session", rootSpec)
	polling := suture.New("polling-layer", childSpec)
	automation := suture.New("automation-layer", childSpec)

	root.Add(polling)
	root.Add(automation)

	return &SessionTree{
		root:       root,
		polling:    polling,
		automation: automation,
		logger:     logger,
		config:     config,
	}
}

// Root returns the root supervisor for direct access if needed.
func (t *SessionTree) Root() *suture.Supervisor {
	return t.root
}

// AddPollingService adds a service to the polling layer supervisor.
// Use this for the scheduler's tick loops.
func (t *SessionTree) AddPollingService(svc suture.Service) suture.ServiceToken {
	return t.polling.Add(svc)
}

// AddAutomationService adds a service to the automation layer supervisor.
// Use this for the geofence monitor.
func (t *SessionTree) AddAutomationService(svc suture.Service) suture.ServiceToken {
	return t.automation.Add(svc)
}

// Serve starts the tree and blocks until the context is canceled.
func (t *SessionTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine. Returns a
// channel that receives the error (or nil) when the supervisor stops.
func (t *SessionTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns services that failed to stop within the
// configured shutdown timeout.
func (t *SessionTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove removes a service from the tree by its token. Tokens belong to
// the layer supervisor that issued them, so removal is routed to the layer
// that recognizes the token.
func (t *SessionTree) Remove(token suture.ServiceToken) error {
	if err := t.polling.Remove(token); !errors.Is(err, suture.ErrWrongSupervisor) {
		return err
	}
	return t.automation.Remove(token)
}

// RemoveAndWait removes a service and waits for it to fully stop.
func (t *SessionTree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	if err := t.polling.RemoveAndWait(token, timeout); !errors.Is(err, suture.ErrWrongSupervisor) {
		return err
	}
	return t.automation.RemoveAndWait(token, timeout)
}
