// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package main runs the Havenlink orchestration core headless.
//
// Havenlink is the device orchestration engine behind the in-car smart home
// companion: it signs into the (simulated) remote service, loads the device
// fleet, keeps telemetry fresh with background polling, watches geofences,
// and emits rate-limited notifications so an automotive shell stays glanceable.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment overrides (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Core: session, simulated gateway (circuit-breaker wrapped), registry,
//     geofence monitor, scheduler and backup manager
//  4. Sign-in: authenticates and starts the per-session supervisor tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HAVENLINK_ prefix, "__" nests sections)
//   - Config file (config.yaml, or HAVENLINK_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM sign the session out: the supervisor tree drains its
// pollers, the registry closes and the process exits cleanly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/havenlink/internal/config"
	"github.com/tomtom215/havenlink/internal/home"
	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/notify"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Havenlink orchestration core")

	core := home.New(cfg, &notify.DesktopSink{}, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := core.SignIn(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Sign-in failed")
	}
	logging.Info().
		Int("devices", len(core.Registry().Devices())).
		Msg("Device fleet loaded")

	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received")
	core.SignOut()
}
