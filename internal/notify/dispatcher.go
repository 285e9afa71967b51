// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package notify turns internal events into user-visible local
// notifications. The dispatcher is a stateless fan-out at the API surface,
// but it carries two protective stages in front of the sink: a per-category
// token-bucket rate limiter and a short-window duplicate suppressor, so the
// periodic ticks cannot storm the user.
package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/havenlink/internal/logging"
)

// Sink delivers one notification to the user. The production sink posts a
// desktop notification with the default system sound.
type Sink interface {
	Deliver(title, body string) error
}

// Config tunes the dispatcher's protective stages.
type Config struct {
	// PerCategoryInterval is the minimum steady-state spacing between
	// notifications of the same category. Zero disables rate limiting.
	PerCategoryInterval time.Duration

	// Burst is how many notifications a category may deliver back-to-back.
	Burst int

	// DedupWindow suppresses identical (title, body) pairs repeated within
	// the window. Zero disables deduplication.
	DedupWindow time.Duration
}

// DefaultConfig matches the production notification budget.
func DefaultConfig() Config {
	return Config{
		PerCategoryInterval: 30 * time.Second,
		Burst:               3,
		DedupWindow:         5 * time.Minute,
	}
}

// Dispatcher fans notifications out to the sink, applying rate limiting and
// dedup first. Safe for concurrent use by all producers.
type Dispatcher struct {
	sink Sink
	cfg  Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	recent   map[string]time.Time

	suppressed int
	delivered  int
}

// NewDispatcher creates a dispatcher delivering through sink.
func NewDispatcher(sink Sink, cfg Config) *Dispatcher {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &Dispatcher{
		sink:     sink,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		recent:   make(map[string]time.Time),
	}
}

// Notify schedules a local notification. Suppressed notifications (rate
// limited or duplicate) are logged at debug and dropped; delivery errors
// are logged at warn and never propagated, since notifications are a side
// effect that must not alter caller control flow.
func (d *Dispatcher) Notify(category, title, body string) {
	if !d.admit(category, title, body) {
		return
	}

	if err := d.sink.Deliver(title, body); err != nil {
		logging.Warn().Err(err).Str("category", category).Msg("Notification delivery failed")
		return
	}

	d.mu.Lock()
	d.delivered++
	d.mu.Unlock()

	logging.Debug().Str("category", category).Str("title", title).Msg("Notification delivered")
}

// admit applies the dedup and rate-limit stages.
func (d *Dispatcher) admit(category, title, body string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()

	if d.cfg.DedupWindow > 0 {
		key := category + "\x00" + title + "\x00" + body
		if last, ok := d.recent[key]; ok && now.Sub(last) < d.cfg.DedupWindow {
			d.suppressed++
			logging.Debug().Str("category", category).Msg("Duplicate notification suppressed")
			return false
		}
		d.recent[key] = now
		d.pruneRecent(now)
	}

	if d.cfg.PerCategoryInterval > 0 {
		limiter, ok := d.limiters[category]
		if !ok {
			limiter = rate.NewLimiter(rate.Every(d.cfg.PerCategoryInterval), d.cfg.Burst)
			d.limiters[category] = limiter
		}
		if !limiter.Allow() {
			d.suppressed++
			logging.Debug().Str("category", category).Msg("Notification rate limited")
			return false
		}
	}

	return true
}

// pruneRecent drops dedup entries older than the window. Called with mu
// held; the map stays small because entries age out every window.
func (d *Dispatcher) pruneRecent(now time.Time) {
	for key, at := range d.recent {
		if now.Sub(at) >= d.cfg.DedupWindow {
			delete(d.recent, key)
		}
	}
}

// Stats returns delivered/suppressed counts since construction.
func (d *Dispatcher) Stats() (delivered, suppressed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delivered, d.suppressed
}
