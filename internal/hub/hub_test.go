package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/pkg/models"
)

func TestApplyEventCreatesHostAndFeedsEngine(t *testing.T) {
	h := New(nil, nil, nil)
	now := time.Now()

	h.applyEvent("host-a", models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 1, Value: "10"})

	st, ok := h.hostByID("host-a")
	require.True(t, ok)
	entries := st.engine.PS()
	require.Len(t, entries, 1) // the Consumes derivation creates pid-1's process node; with no state it counts as active

	snap := st.graph.Snapshot()
	assert.NotEmpty(t, snap.Nodes)
}

func TestSendIntentFailsWithNoSession(t *testing.T) {
	h := New(nil, nil, nil)
	ok := h.SendIntent("host-a", models.ActionIntent{Kind: models.ActionKill, PID: 1})
	assert.False(t, ok)
}

func TestSendIntentDeliversToRegisteredSession(t *testing.T) {
	h := New(nil, nil, nil)
	outbound := make(chan models.ActionIntent, 1)
	h.registerSession("host-a", outbound)

	ok := h.SendIntent("host-a", models.ActionIntent{Kind: models.ActionKill, PID: 7})
	require.True(t, ok)

	select {
	case got := <-outbound:
		assert.Equal(t, 7, got.PID)
	default:
		t.Fatal("expected queued intent")
	}
}
