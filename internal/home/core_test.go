// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package home

import (
	"context"
	"sync"
	"testing"

	"github.com/tomtom215/havenlink/internal/auth"
	"github.com/tomtom215/havenlink/internal/config"
	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/models"
)

type memorySink struct {
	mu    sync.Mutex
	count int
}

func (s *memorySink) Deliver(title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Gateway.BaseLatency = 0
	cfg.Gateway.FlakyFailureRate = 0
	return cfg
}

func newTestCore(t *testing.T, sessionOpts ...auth.SessionOption) *Core {
	t.Helper()
	sessionOpts = append([]auth.SessionOption{auth.WithLatency(0)}, sessionOpts...)
	core := New(testConfig(), &memorySink{}, sessionOpts,
		WithGatewayOptions(
			gateway.WithLatencyPolicy(gateway.ZeroLatencyPolicy{}),
			gateway.WithFaultPolicy(gateway.StaticFaultPolicy{}),
			gateway.WithSeed(9),
		),
	)
	t.Cleanup(core.SignOut)
	return core
}

func TestSignInBuildsSessionGraph(t *testing.T) {
	core := newTestCore(t)

	if core.Registry() != nil || core.Monitor() != nil || core.Backups() != nil || core.Gateway() != nil {
		t.Fatal("session accessors should be nil before sign-in")
	}

	if err := core.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if !core.Session().IsSignedIn() {
		t.Error("session not signed in")
	}
	if core.Registry() == nil || core.Monitor() == nil || core.Backups() == nil || core.Gateway() == nil {
		t.Fatal("session accessors should be live after sign-in")
	}
	if got := len(core.Registry().Devices()); got == 0 {
		t.Error("initial device load left the registry empty")
	}
}

func TestFailedSignInLeavesCoreUntouched(t *testing.T) {
	core := newTestCore(t, auth.WithOutcome(auth.StaticOutcome{SignIn: false}))

	err := core.SignIn(context.Background())
	if !models.IsKind(err, models.ErrAuthenticationFailed) {
		t.Fatalf("kind = %q, want %q", models.KindOf(err), models.ErrAuthenticationFailed)
	}
	if core.Session().IsSignedIn() {
		t.Error("session signed in after failed sign-in")
	}
	if core.Registry() != nil || core.Gateway() != nil {
		t.Error("failed sign-in built the session graph")
	}
	if got := core.Analytics().CountByKind(models.EventAuthentication); got != 1 {
		t.Errorf("auth event count = %d, want 1", got)
	}
}

func TestSignOutTearsDown(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	if err := core.SignIn(ctx); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	reg := core.Registry()

	core.SignOut()

	if core.Session().IsSignedIn() {
		t.Error("session still signed in")
	}
	if core.Registry() != nil || core.Monitor() != nil || core.Backups() != nil || core.Gateway() != nil {
		t.Error("session accessors should be nil after sign-out")
	}
	if err := reg.LoadDevices(ctx); !models.IsKind(err, models.ErrNotAuthenticated) {
		t.Errorf("old registry load kind = %q, want %q", models.KindOf(err), models.ErrNotAuthenticated)
	}
	if got := core.Analytics().TotalEvents(); got != 0 {
		t.Errorf("analytics kept %d events after teardown, want 0", got)
	}

	core.SignOut() // idempotent
}

func TestSignInAgainAfterSignOut(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	if err := core.SignIn(ctx); err != nil {
		t.Fatalf("first SignIn failed: %v", err)
	}
	first := core.Registry()
	core.SignOut()

	if err := core.SignIn(ctx); err != nil {
		t.Fatalf("second SignIn failed: %v", err)
	}
	second := core.Registry()
	if second == nil {
		t.Fatal("no registry after re-sign-in")
	}
	if second == first {
		t.Error("re-sign-in reused the closed registry")
	}
	if got := len(second.Devices()); got == 0 {
		t.Error("re-sign-in did not reload devices")
	}
}

func TestNotificationsFlowThroughDispatcher(t *testing.T) {
	sink := &memorySink{}
	core := New(testConfig(), sink, []auth.SessionOption{auth.WithLatency(0)},
		WithGatewayOptions(
			gateway.WithLatencyPolicy(gateway.ZeroLatencyPolicy{}),
			gateway.WithFaultPolicy(gateway.StaticFaultPolicy{}),
			gateway.WithSeed(9),
		),
	)
	t.Cleanup(core.SignOut)
	ctx := context.Background()
	if err := core.SignIn(ctx); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	var camera string
	for _, d := range core.Registry().Devices() {
		if d.Type == models.DeviceTypeCamera {
			camera = d.ID
			break
		}
	}
	if camera == "" {
		t.Fatal("fleet has no camera")
	}
	if _, err := core.Registry().CaptureSnapshot(ctx, camera); err != nil {
		t.Fatalf("CaptureSnapshot failed: %v", err)
	}

	sink.mu.Lock()
	delivered := sink.count
	sink.mu.Unlock()
	if delivered == 0 {
		t.Error("snapshot capture produced no desktop notification")
	}
}
