// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package registry

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
)

// Topic carries every registry change notification. Presentation code
// subscribes once and switches on the payload's Kind.
const Topic = "registry.updates"

// ChangeKind classifies a registry update notification.
type ChangeKind string

const (
	ChangeDevices ChangeKind = "devices_updated"
	ChangeAlerts  ChangeKind = "alerts_updated"
	ChangeHealth  ChangeKind = "health_updated"
	ChangeNetwork ChangeKind = "network_status"
)

// Change is the JSON payload published for each registry update.
type Change struct {
	Kind        ChangeKind           `json:"kind"`
	At          time.Time            `json:"at"`
	DeviceCount int                  `json:"device_count,omitempty"`
	AlertCount  int                  `json:"alert_count,omitempty"`
	Online      *bool                `json:"online,omitempty"`
	Health      *models.SystemHealth `json:"health,omitempty"`
}

// Publisher fans registry change notifications out to subscribers over an
// in-process watermill Pub/Sub. Delivery is best-effort: subscriber
// back-pressure never blocks the registry's write path beyond the channel
// buffer.
type Publisher struct {
	pubsub *gochannel.GoChannel
}

// NewPublisher creates the in-process change publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermillLogger{}),
	}
}

// Subscribe returns a channel of change messages. The subscription ends
// when ctx is canceled or the publisher closes.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, Topic)
}

// Close shuts the pub/sub down, ending all subscriptions.
func (p *Publisher) Close() {
	if err := p.pubsub.Close(); err != nil {
		logging.Warn().Err(err).Msg("Registry publisher close failed")
	}
}

// publish marshals and sends one change notification.
func (p *Publisher) publish(change Change) {
	change.At = time.Now()
	payload, err := json.Marshal(change)
	if err != nil {
		logging.Error().Err(err).Str("kind", string(change.Kind)).Msg("Change payload marshal failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubsub.Publish(Topic, msg); err != nil {
		// Publishing after close happens during sign-out races; harmless.
		logging.Debug().Err(err).Str("kind", string(change.Kind)).Msg("Change publish dropped")
	}
}

// DevicesUpdated announces a device list change.
func (p *Publisher) DevicesUpdated(count int) {
	p.publish(Change{Kind: ChangeDevices, DeviceCount: count})
}

// AlertsUpdated announces a recent-alert list change.
func (p *Publisher) AlertsUpdated(count int) {
	p.publish(Change{Kind: ChangeAlerts, AlertCount: count})
}

// HealthUpdated announces a recomputed health record.
func (p *Publisher) HealthUpdated(h models.SystemHealth) {
	p.publish(Change{Kind: ChangeHealth, Health: &h})
}

// NetworkChanged announces a network-health flag transition.
func (p *Publisher) NetworkChanged(online bool) {
	p.publish(Change{Kind: ChangeNetwork, Online: &online})
}

// watermillLogger adapts watermill's logging onto zerolog.
type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	event := logging.Error().Err(err)
	addFields(event, l.fields, fields)
	event.Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	addFields(event, l.fields, fields)
	event.Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	event := logging.Trace()
	addFields(event, l.fields, fields)
	event.Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	event := logging.Trace()
	addFields(event, l.fields, fields)
	event.Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{fields: l.fields.Add(fields)}
}

func addFields(event *zerolog.Event, base, extra watermill.LogFields) {
	for k, v := range base {
		event.Interface(k, v)
	}
	for k, v := range extra {
		event.Interface(k, v)
	}
}
