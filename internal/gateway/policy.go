// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package gateway

import (
	"math/rand"
	"sync"
	"time"
)

// LatencyPolicy returns the simulated delay for one operation.
type LatencyPolicy interface {
	Delay(op Operation) time.Duration
}

// FaultPolicy decides whether an operation's current invocation fails.
// Only the flaky operations (stream access, snapshot capture) consult it in
// the simulated gateway.
type FaultPolicy interface {
	ShouldFail(op Operation) bool
}

// latencyWeights scales the base latency per operation class. Reads are
// cheapest; state mutations cost more; capture and stream issuance are the
// heaviest. The relative ordering matches the remote service's observed
// timing (0.5-3.0s at the default 500ms base).
var latencyWeights = map[Operation]int{
	OpListDevices:        2,
	OpGetDeviceStatus:    1,
	OpGetMotionSchedule:  1,
	OpListGeofences:      1,
	OpSetRecordingMode:   2,
	OpSetSiren:           2,
	OpSetPrivacyMode:     2,
	OpSetMotionDetection: 2,
	OpSetMotionSchedule:  2,
	OpCreateGeofence:     2,
	OpUpdateGeofence:     2,
	OpDeleteGeofence:     2,
	OpGenerateReport:     4,
	OpExportBackup:       4,
	OpFetchBackup:        3,
	OpCaptureSnapshot:    5,
	OpStreamURL:          6,
}

// WeightedLatencyPolicy derives each operation's delay from a base latency
// and the operation's weight class.
type WeightedLatencyPolicy struct {
	Base time.Duration
}

// Delay returns the weighted delay for op. Unknown operations get the base.
func (p WeightedLatencyPolicy) Delay(op Operation) time.Duration {
	w, ok := latencyWeights[op]
	if !ok {
		w = 1
	}
	return time.Duration(w) * p.Base
}

// ZeroLatencyPolicy removes all simulated delay. For tests.
type ZeroLatencyPolicy struct{}

// Delay always returns zero.
func (ZeroLatencyPolicy) Delay(Operation) time.Duration { return 0 }

// flakyOps are the operations that fail non-deterministically.
var flakyOps = map[Operation]bool{
	OpCaptureSnapshot: true,
	OpStreamURL:       true,
}

// RandomFaultPolicy fails flaky operations with a fixed probability drawn
// from its own rand source. The source is guarded because gateway calls run
// concurrently.
type RandomFaultPolicy struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFaultPolicy creates a fault policy with the given failure rate
// for flaky operations. A zero seed seeds from the clock.
func NewRandomFaultPolicy(rate float64, seed int64) *RandomFaultPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomFaultPolicy{
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// ShouldFail draws once per flaky-operation invocation.
func (p *RandomFaultPolicy) ShouldFail(op Operation) bool {
	if !flakyOps[op] {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.rate
}

// StaticFaultPolicy fails (or never fails) deterministically. For tests.
type StaticFaultPolicy struct {
	Fail bool
}

// ShouldFail returns the configured outcome for flaky operations.
func (p StaticFaultPolicy) ShouldFail(op Operation) bool {
	return flakyOps[op] && p.Fail
}
