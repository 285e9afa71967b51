// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingService runs until its context is canceled.
type blockingService struct {
	started atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.started.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

// crashOnceService fails its first run and then blocks.
type crashOnceService struct {
	runs atomic.Int32
}

func (s *crashOnceService) Serve(ctx context.Context) error {
	if s.runs.Add(1) == 1 {
		return errors.New("transient failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestDefaultsApplied(t *testing.T) {
	tree := NewSessionTree(discardLogger(), TreeConfig{})
	want := DefaultTreeConfig()
	if tree.config != want {
		t.Errorf("zero-value config = %+v, want defaults %+v", tree.config, want)
	}
	if tree.Root() == nil {
		t.Error("root supervisor missing")
	}
}

func TestPartialConfigKeepsExplicitValues(t *testing.T) {
	tree := NewSessionTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if tree.config.ShutdownTimeout != time.Second {
		t.Errorf("shutdown timeout = %v, want 1s", tree.config.ShutdownTimeout)
	}
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("failure threshold = %v, want defaulted 5", tree.config.FailureThreshold)
	}
}

func TestServeBackgroundRunsServices(t *testing.T) {
	tree := NewSessionTree(discardLogger(), DefaultTreeConfig())
	polling := &blockingService{}
	automation := &blockingService{}
	tree.AddPollingService(polling)
	tree.AddAutomationService(automation)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for polling.started.Load() == 0 || automation.started.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("services never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestCrashedServiceRestarts(t *testing.T) {
	tree := NewSessionTree(discardLogger(), TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	svc := &crashOnceService{}
	tree.AddPollingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for svc.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("crashed service was not restarted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRemoveAndWait(t *testing.T) {
	tree := NewSessionTree(discardLogger(), DefaultTreeConfig())
	svc := &blockingService{}
	token := tree.AddPollingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for svc.started.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("service never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := tree.RemoveAndWait(token, time.Second); err != nil {
		t.Fatalf("RemoveAndWait failed: %v", err)
	}

	cancel()
	<-done
}
