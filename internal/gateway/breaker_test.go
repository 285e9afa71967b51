// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/havenlink/internal/models"
)

func newBreakerUnderTest(inner Gateway) *Breaker {
	return NewBreaker(inner, BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  4,
		FailureRatio: 0.5,
	})
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := newBreakerUnderTest(newTestGateway(signedIn()))

	devices, err := b.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 6 {
		t.Errorf("device count = %d, want 6", len(devices))
	}
}

func TestBreakerTripsOnSustainedFailure(t *testing.T) {
	inner := newTestGateway(signedIn(), WithFaultPolicy(StaticFaultPolicy{Fail: true}))
	b := newBreakerUnderTest(inner)
	ctx := context.Background()
	devices, err := b.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	id := devices[0].ID

	// Drive failures past MinRequests at FailureRatio 0.5. The ListDevices
	// success above is one request, so the third snapshot failure reaches
	// 4 requests at 75% failure and trips the breaker.
	for i := 0; i < 3; i++ {
		if _, err := b.CaptureSnapshot(ctx, id); !models.IsKind(err, models.ErrOperationFailed) {
			t.Fatalf("attempt %d: error kind = %q, want %q", i, models.KindOf(err), models.ErrOperationFailed)
		}
	}

	_, err = b.CaptureSnapshot(ctx, id)
	if !models.IsKind(err, models.ErrRateLimitExceeded) {
		t.Fatalf("error kind after trip = %q, want %q", models.KindOf(err), models.ErrRateLimitExceeded)
	}
}

func TestBreakerIgnoresCallerMistakes(t *testing.T) {
	b := newBreakerUnderTest(newTestGateway(signedIn()))
	ctx := context.Background()

	// Not-found failures are caller mistakes; they never trip the breaker.
	for i := 0; i < 20; i++ {
		if _, err := b.GetDeviceStatus(ctx, "missing"); !models.IsKind(err, models.ErrDeviceNotFound) {
			t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrDeviceNotFound)
		}
	}

	if _, err := b.ListDevices(ctx); err != nil {
		t.Errorf("breaker tripped on not-found failures: %v", err)
	}
}

func TestBreakerIgnoresSignedOutCalls(t *testing.T) {
	b := newBreakerUnderTest(newTestGateway(signedOut()))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := b.ListDevices(ctx); !models.IsKind(err, models.ErrNotAuthenticated) {
			t.Fatalf("error kind = %q, want %q", models.KindOf(err), models.ErrNotAuthenticated)
		}
	}
}
