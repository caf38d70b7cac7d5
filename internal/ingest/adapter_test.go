package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/config"
	"ark/internal/bus"
	"ark/pkg/models"
)

// TestAdapterPublishesLineEventsFromStdout runs a real subprocess (a shell
// one-liner standing in for a probe) and checks that its stdout lines reach
// the bus as parsed events.
func TestAdapterPublishesLineEventsFromStdout(t *testing.T) {
	b := bus.New(4)
	cfg := config.ProbeConfig{
		Name:       "test-probe",
		Command:    "sh",
		Args:       []string{"-c", `echo '{"event_type":"compute.util","entity_id":"gpu-0","value":"92"}'`},
		RestartMin: time.Hour,
		RestartMax: time.Hour,
	}
	a := New(cfg, b)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go a.Run(ctx)

	select {
	case ev := <-b.Events():
		assert.Equal(t, models.KindComputeUtil, ev.Kind)
		assert.Equal(t, "gpu-0", ev.EntityID)
	case <-time.After(time.Second):
		t.Fatal("expected an event parsed from the probe's stdout")
	}
}

// TestAdapterSynthesizesCrashEventOnExit covers spec.md's probe-crash
// requirement: a probe that exits nonzero must publish one error.hw event
// keyed to the probe's configured name before the adapter restarts it.
func TestAdapterSynthesizesCrashEventOnExit(t *testing.T) {
	b := bus.New(4)
	cfg := config.ProbeConfig{
		Name:       "flaky-probe",
		Command:    "sh",
		Args:       []string{"-c", "exit 1"},
		RestartMin: time.Hour,
		RestartMax: time.Hour,
	}
	a := New(cfg, b)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go a.Run(ctx)

	select {
	case ev := <-b.Events():
		assert.Equal(t, models.KindErrorHw, ev.Kind)
		assert.Equal(t, "flaky-probe", ev.EntityID)
	case <-time.After(time.Second):
		t.Fatal("expected a synthesized error.hw event on probe crash")
	}
}

// TestRunOnceSendsSIGTERMBeforeKillOnCancel exercises the drain path
// directly: a probe that ignores SIGTERM's default action briefly still
// gets a bounded grace period rather than an immediate SIGKILL.
func TestRunOnceSendsSIGTERMBeforeKillOnCancel(t *testing.T) {
	b := bus.New(4)
	cfg := config.ProbeConfig{
		Name:          "slow-shutdown-probe",
		Command:       "sh",
		Args:          []string{"-c", "trap 'sleep 0.2; exit 0' TERM; while :; do sleep 0.05; done"},
		ShutdownGrace: 2 * time.Second,
	}
	a := New(cfg, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.runOnce(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("expected runOnce to return after the probe drained on SIGTERM")
	}
}
