// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
)

// DesktopSink posts local notifications through the OS notification center
// with the default system sound.
type DesktopSink struct {
	// AppIcon is an optional icon path passed to the notification center.
	AppIcon string
}

// Deliver implements Sink.
func (s *DesktopSink) Deliver(title, body string) error {
	return beeep.Notify(title, body, s.AppIcon)
}

// Delivered is one notification captured by a RecordingSink.
type Delivered struct {
	Title string
	Body  string
}

// RecordingSink captures notifications in memory. For tests.
type RecordingSink struct {
	mu        sync.Mutex
	delivered []Delivered
}

// Deliver implements Sink.
func (s *RecordingSink) Deliver(title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, Delivered{Title: title, Body: body})
	return nil
}

// All returns a copy of the captured notifications.
func (s *RecordingSink) All() []Delivered {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivered, len(s.delivered))
	copy(out, s.delivered)
	return out
}
