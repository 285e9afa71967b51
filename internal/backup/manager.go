// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package backup captures and restores versioned snapshots of the
// orchestration state. A snapshot carries registry devices, telemetry,
// motion schedules and geofences; restore is all-or-nothing and rejects
// snapshots from an incompatible format version before touching anything.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/havenlink/internal/config"
	"github.com/tomtom215/havenlink/internal/gateway"
	"github.com/tomtom215/havenlink/internal/geofence"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
	"github.com/tomtom215/havenlink/internal/registry"
)

// EventCounter reports how many analytics events have been recorded.
type EventCounter interface {
	TotalEvents() int
}

// Manager builds snapshots from the live registry and geofence monitor and
// restores them atomically. Remote transport goes through the gateway's
// backup storage.
type Manager struct {
	registry *registry.Registry
	monitor  *geofence.Monitor
	gw       gateway.Gateway
	counter  EventCounter
	config   config.BackupConfig

	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a backup manager. counter may be nil.
func New(reg *registry.Registry, monitor *geofence.Monitor, gw gateway.Gateway, counter EventCounter, cfg config.BackupConfig, opts ...Option) *Manager {
	m := &Manager{
		registry: reg,
		monitor:  monitor,
		gw:       gw,
		counter:  counter,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capture builds a snapshot of the current state.
func (m *Manager) Capture() models.BackupSnapshot {
	state := m.registry.ExportState()

	snapshot := models.BackupSnapshot{
		Version:   m.config.Version,
		CreatedAt: m.now().UTC(),
		Devices:   state.Devices,
		Telemetry: state.Telemetry,
		Schedules: state.Schedules,
		Geofences: m.monitor.Geofences(),
		Health:    m.registry.SystemHealth(),
	}
	if m.counter != nil {
		snapshot.EventCount = m.counter.TotalEvents()
	}
	return snapshot
}

// Restore applies a snapshot. The version gate runs first: a snapshot
// whose version differs from the configured format version fails with no
// state touched. On success the registry state and geofence set are
// replaced atomically.
func (m *Manager) Restore(snapshot models.BackupSnapshot) error {
	if snapshot.Version != m.config.Version {
		logging.Warn().
			Str("snapshot_version", snapshot.Version).
			Str("supported_version", m.config.Version).
			Msg("Rejecting backup with incompatible version")
		return models.NewOpError(models.ErrIncompatibleVersion, "backup.restore")
	}

	m.registry.ImportState(registry.State{
		Devices:   snapshot.Devices,
		Telemetry: snapshot.Telemetry,
		Schedules: snapshot.Schedules,
	})
	m.monitor.ReplaceAll(snapshot.Geofences)

	logging.Info().
		Int("devices", len(snapshot.Devices)).
		Int("geofences", len(snapshot.Geofences)).
		Time("created_at", snapshot.CreatedAt).
		Msg("Backup restored")
	return nil
}

// Export captures a snapshot, encodes it and stores it remotely. Returns
// the remote id for later Import.
func (m *Manager) Export(ctx context.Context) (string, error) {
	blob, err := Encode(m.Capture(), m.config.Compress)
	if err != nil {
		return "", err
	}

	id, err := m.gw.ExportBackup(ctx, blob)
	if err != nil {
		return "", err
	}
	logging.Info().Str("backup_id", id).Int("bytes", len(blob)).Msg("Backup exported")
	return id, nil
}

// Import fetches a remote snapshot and restores it.
func (m *Manager) Import(ctx context.Context, id string) error {
	blob, err := m.gw.FetchBackup(ctx, id)
	if err != nil {
		return err
	}

	snapshot, err := Decode(blob)
	if err != nil {
		return err
	}
	return m.Restore(snapshot)
}

// envelope is the wire form of an encoded snapshot: a JSON payload,
// optionally gzip-compressed, with a SHA-256 digest over the uncompressed
// bytes.
type envelope struct {
	Checksum   string `json:"checksum"`
	Compressed bool   `json:"compressed"`
	Payload    []byte `json:"payload"`
}

// Encode serializes a snapshot to its transportable form.
func Encode(snapshot models.BackupSnapshot, compress bool) ([]byte, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, models.WrapOpError(models.ErrInvalidResponse, "backup.encode", err)
	}

	payload := raw
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, models.WrapOpError(models.ErrOperationFailed, "backup.encode", err)
		}
		if err := zw.Close(); err != nil {
			return nil, models.WrapOpError(models.ErrOperationFailed, "backup.encode", err)
		}
		payload = buf.Bytes()
	}

	digest := sha256.Sum256(raw)
	return json.Marshal(envelope{
		Checksum:   hex.EncodeToString(digest[:]),
		Compressed: compress,
		Payload:    payload,
	})
}

// Decode reverses Encode, verifying the checksum before unmarshaling.
func Decode(blob []byte) (models.BackupSnapshot, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return models.BackupSnapshot{}, models.WrapOpError(models.ErrInvalidResponse, "backup.decode", err)
	}

	raw := env.Payload
	if env.Compressed {
		zr, err := gzip.NewReader(bytes.NewReader(env.Payload))
		if err != nil {
			return models.BackupSnapshot{}, models.WrapOpError(models.ErrInvalidResponse, "backup.decode", err)
		}
		raw, err = io.ReadAll(zr)
		if err != nil {
			return models.BackupSnapshot{}, models.WrapOpError(models.ErrInvalidResponse, "backup.decode", err)
		}
		if err := zr.Close(); err != nil {
			return models.BackupSnapshot{}, models.WrapOpError(models.ErrInvalidResponse, "backup.decode", err)
		}
	}

	digest := sha256.Sum256(raw)
	if hex.EncodeToString(digest[:]) != env.Checksum {
		return models.BackupSnapshot{}, models.NewOpError(models.ErrInvalidResponse, "backup.decode")
	}

	var snapshot models.BackupSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.BackupSnapshot{}, models.WrapOpError(models.ErrInvalidResponse, "backup.decode", err)
	}
	return snapshot, nil
}
