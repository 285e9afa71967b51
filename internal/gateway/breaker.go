// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
)

// BreakerSettings tunes the circuit breaker wrapper.
type BreakerSettings struct {
	// MaxRequests allowed through in half-open state.
	MaxRequests uint32
	// Interval resets counts while closed.
	Interval time.Duration
	// Timeout before an open breaker transitions to half-open.
	Timeout time.Duration
	// MinRequests before the failure ratio is considered.
	MinRequests uint32
	// FailureRatio at or above which the breaker trips.
	FailureRatio float64
}

// DefaultBreakerSettings mirrors production defaults: trip at a 60% failure
// rate over at least 10 requests, recover after 2 minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker wraps a Gateway with circuit breaker protection so a persistently
// failing remote cannot soak every caller in full simulated latency.
//
// Not-authenticated and not-found failures do not count against the breaker:
// they are caller mistakes, not remote health signals.
//
// DETERMINISM NOTE: the breaker uses real time for its interval and timeout
// bookkeeping. Tests exercise the wrapped gateway directly or force outcomes
// through the fault policy rather than racing the breaker's clock.
type Breaker struct {
	inner Gateway
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps inner with a circuit breaker using the given settings.
func NewBreaker(inner Gateway, settings BreakerSettings) *Breaker {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "remote-gateway",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch models.KindOf(err) {
			case models.ErrNotAuthenticated, models.ErrDeviceNotFound:
				return true
			default:
				return false
			}
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

// execute funnels a call through the breaker, mapping rejection onto the
// rate-limit taxonomy entry.
func execute[T any](b *Breaker, op Operation, fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, models.WrapOpError(models.ErrRateLimitExceeded, string(op), err)
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, models.WrapOpError(models.ErrInvalidResponse, string(op),
			fmt.Errorf("unexpected result type %T", result))
	}
	return typed, nil
}

// executeErr is execute for error-only operations.
func executeErr(b *Breaker, op Operation, fn func() error) error {
	_, err := execute(b, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (b *Breaker) ListDevices(ctx context.Context) ([]models.Device, error) {
	return execute(b, OpListDevices, func() ([]models.Device, error) {
		return b.inner.ListDevices(ctx)
	})
}

func (b *Breaker) GetDeviceStatus(ctx context.Context, deviceID string) (models.DeviceTelemetry, error) {
	return execute(b, OpGetDeviceStatus, func() (models.DeviceTelemetry, error) {
		return b.inner.GetDeviceStatus(ctx, deviceID)
	})
}

func (b *Breaker) CaptureSnapshot(ctx context.Context, deviceID string) (Snapshot, error) {
	return execute(b, OpCaptureSnapshot, func() (Snapshot, error) {
		return b.inner.CaptureSnapshot(ctx, deviceID)
	})
}

func (b *Breaker) StreamURL(ctx context.Context, deviceID string) (string, error) {
	return execute(b, OpStreamURL, func() (string, error) {
		return b.inner.StreamURL(ctx, deviceID)
	})
}

func (b *Breaker) SetRecordingMode(ctx context.Context, deviceID string, mode models.RecordingMode) error {
	return executeErr(b, OpSetRecordingMode, func() error {
		return b.inner.SetRecordingMode(ctx, deviceID, mode)
	})
}

func (b *Breaker) SetSiren(ctx context.Context, deviceID string, active bool) error {
	return executeErr(b, OpSetSiren, func() error {
		return b.inner.SetSiren(ctx, deviceID, active)
	})
}

func (b *Breaker) SetPrivacyMode(ctx context.Context, deviceID string, enabled bool) error {
	return executeErr(b, OpSetPrivacyMode, func() error {
		return b.inner.SetPrivacyMode(ctx, deviceID, enabled)
	})
}

func (b *Breaker) SetMotionDetection(ctx context.Context, deviceID string, enabled bool) error {
	return executeErr(b, OpSetMotionDetection, func() error {
		return b.inner.SetMotionDetection(ctx, deviceID, enabled)
	})
}

func (b *Breaker) GetMotionSchedule(ctx context.Context, deviceID string) (models.MotionSchedule, error) {
	return execute(b, OpGetMotionSchedule, func() (models.MotionSchedule, error) {
		return b.inner.GetMotionSchedule(ctx, deviceID)
	})
}

func (b *Breaker) SetMotionSchedule(ctx context.Context, schedule models.MotionSchedule) error {
	return executeErr(b, OpSetMotionSchedule, func() error {
		return b.inner.SetMotionSchedule(ctx, schedule)
	})
}

func (b *Breaker) CreateGeofence(ctx context.Context, geofence models.Geofence) (models.Geofence, error) {
	return execute(b, OpCreateGeofence, func() (models.Geofence, error) {
		return b.inner.CreateGeofence(ctx, geofence)
	})
}

func (b *Breaker) UpdateGeofence(ctx context.Context, geofence models.Geofence) error {
	return executeErr(b, OpUpdateGeofence, func() error {
		return b.inner.UpdateGeofence(ctx, geofence)
	})
}

func (b *Breaker) DeleteGeofence(ctx context.Context, id string) error {
	return executeErr(b, OpDeleteGeofence, func() error {
		return b.inner.DeleteGeofence(ctx, id)
	})
}

func (b *Breaker) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	return execute(b, OpListGeofences, func() ([]models.Geofence, error) {
		return b.inner.ListGeofences(ctx)
	})
}

func (b *Breaker) GenerateReport(ctx context.Context) (UsageReport, error) {
	return execute(b, OpGenerateReport, func() (UsageReport, error) {
		return b.inner.GenerateReport(ctx)
	})
}

func (b *Breaker) ExportBackup(ctx context.Context, blob []byte) (string, error) {
	return execute(b, OpExportBackup, func() (string, error) {
		return b.inner.ExportBackup(ctx, blob)
	})
}

func (b *Breaker) FetchBackup(ctx context.Context, id string) ([]byte, error) {
	return execute(b, OpFetchBackup, func() ([]byte, error) {
		return b.inner.FetchBackup(ctx, id)
	})
}

// compile-time interface checks
var (
	_ Gateway = (*Simulated)(nil)
	_ Gateway = (*Breaker)(nil)
)
