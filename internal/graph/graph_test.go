package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/pkg/models"
)

func TestConsumesEdgeCreatedFromComputeEvent(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 100, Value: "92"})

	snap := g.Snapshot()
	edges := snap.OutEdges(models.EdgeConsumes, models.NodeID{Kind: models.NodeProcess, ID: "pid-100"})
	require.Len(t, edges, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeResource, ID: "gpu-0"}, edges[0].To)
}

func TestBandwidthEventNeverCreatesWaitsOn(t *testing.T) {
	// spec.md's derivation table routes transport.bw to Consumes only,
	// regardless of the value it reports — no threshold on bandwidth ever
	// derives a WaitsOn edge.
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportBw, EntityID: "mlx5_0", PID: 200, Value: "0.4"})

	snap := g.Snapshot()
	assert.Empty(t, snap.OutEdges(models.EdgeWaitsOn, models.NodeID{Kind: models.NodeProcess, ID: "pid-200"}))
	consumes := snap.OutEdges(models.EdgeConsumes, models.NodeID{Kind: models.NodeProcess, ID: "pid-200"})
	require.Len(t, consumes, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeResource, ID: "mlx5_0"}, consumes[0].To)
}

func TestSentinelDropValueCreatesWaitsOn(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportDrop, EntityID: "nic-0", PID: 200, Value: "IO_WAIT"})

	snap := g.Snapshot()
	edges := snap.OutEdges(models.EdgeWaitsOn, models.NodeID{Kind: models.NodeProcess, ID: "pid-200"})
	require.Len(t, edges, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeResource, ID: "nic-0"}, edges[0].To)
}

func TestNumericDropValueIncrementsDropCountWithoutAnEdge(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportDrop, EntityID: "mlx5_0", PID: 200, Value: "3"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportDrop, EntityID: "mlx5_0", PID: 200, Value: "4"})

	snap := g.Snapshot()
	assert.Empty(t, snap.OutEdges(models.EdgeWaitsOn, models.NodeID{Kind: models.NodeProcess, ID: "pid-200"}))
	n, ok := snap.Node(models.NodeID{Kind: models.NodeResource, ID: "mlx5_0"})
	require.True(t, ok)
	assert.Equal(t, "7", n.Attrs["drop_count"])
}

func TestQueueDepthBelowThresholdDoesNotCreateWaitsOn(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindStorageQDepth, EntityID: "storage-0", PID: 300, Value: "5"})

	snap := g.Snapshot()
	assert.Empty(t, snap.OutEdges(models.EdgeWaitsOn, models.NodeID{Kind: models.NodeProcess, ID: "pid-300"}))
}

func TestQueueDepthAtThresholdCreatesWaitsOn(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindStorageQDepth, EntityID: "storage-0", PID: 300, Value: "100"})

	snap := g.Snapshot()
	edges := snap.OutEdges(models.EdgeWaitsOn, models.NodeID{Kind: models.NodeProcess, ID: "pid-300"})
	require.Len(t, edges, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeResource, ID: "storage-0"}, edges[0].To)
}

func TestErrorEventCreatesBlockedByForConsumers(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 100, Value: "92"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "XID_79"})

	snap := g.Snapshot()
	edges := snap.OutEdges(models.EdgeBlockedBy, models.NodeID{Kind: models.NodeProcess, ID: "pid-100"})
	require.Len(t, edges, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeError, ID: "error-gpu-0"}, edges[0].To)
}

func TestErrorEventCreatesBlockedByForTheResourceItself(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 100, Value: "92"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "XID_79"})

	snap := g.Snapshot()
	edges := snap.OutEdges(models.EdgeBlockedBy, models.NodeID{Kind: models.NodeResource, ID: "gpu-0"})
	require.Len(t, edges, 1)
	assert.Equal(t, models.NodeID{Kind: models.NodeError, ID: "error-gpu-0"}, edges[0].To)
}

func TestRootCauseChainThroughBlockedByAndWaitsOn(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 100, Value: "92"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "XID_79"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportDrop, EntityID: "mlx5_0", PID: 100, Value: "IO_WAIT"})

	chain, truncated := g.RootCause(100, 32)
	assert.False(t, truncated)
	require.Len(t, chain, 2)
	assert.Contains(t, chain, models.NodeID{Kind: models.NodeError, ID: "error-gpu-0"})
	assert.Contains(t, chain, models.NodeID{Kind: models.NodeResource, ID: "mlx5_0"})
}

func TestSweepEvictsStaleErrorAndTerminalProcess(t *testing.T) {
	g := New("host-a")
	base := time.Now().Add(-time.Hour)

	g.ApplyEvent(models.Event{Timestamp: base, Kind: models.KindProcessState, EntityID: "proc", PID: 1, Value: "start"})
	g.ApplyEvent(models.Event{Timestamp: base, Kind: models.KindProcessState, EntityID: "proc", PID: 1, Value: "exit"})
	g.ApplyEvent(models.Event{Timestamp: base, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "XID_1"})

	g.Sweep(time.Now(), 5*time.Minute, 10*time.Minute, 5*time.Minute)

	snap := g.Snapshot()
	_, procFound := snap.Node(models.NodeID{Kind: models.NodeProcess, ID: "pid-1"})
	_, errFound := snap.Node(models.NodeID{Kind: models.NodeError, ID: "error-gpu-0"})
	assert.False(t, procFound)
	assert.False(t, errFound)
}

// TestSweepEvictsStaleResourceNode covers spec.md's Invariant 5 and §4.3
// windowing case (c): a Resource node whose last heartbeat is older than
// resource_window is evicted the same way stale Error/Process nodes are,
// cascading to any edge touching it.
func TestSweepEvictsStaleResourceNode(t *testing.T) {
	g := New("host-a")
	base := time.Now().Add(-time.Hour)

	g.ApplyEvent(models.Event{Timestamp: base, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 1, Value: "100"})
	g.ApplyEvent(models.Event{Timestamp: base, Kind: models.KindProcessState, EntityID: "proc", PID: 1, Value: "start"})

	g.Sweep(time.Now(), 5*time.Minute, 10*time.Minute, 5*time.Minute)

	snap := g.Snapshot()
	_, resFound := snap.Node(models.NodeID{Kind: models.NodeResource, ID: "gpu-0"})
	assert.False(t, resFound)
	assert.Empty(t, snap.OutEdges(models.EdgeConsumes, models.NodeID{Kind: models.NodeProcess, ID: "pid-1"}))
}

// TestSweepKeepsResourceNodeFreshenedByRecentHeartbeat mirrors the process
// grace-period test: a resource still reporting inside the window survives.
func TestSweepKeepsResourceNodeFreshenedByRecentHeartbeat(t *testing.T) {
	g := New("host-a")
	now := time.Now()

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", Value: "100"})
	g.Sweep(now.Add(time.Minute), 5*time.Minute, 10*time.Minute, 5*time.Minute)

	snap := g.Snapshot()
	_, found := snap.Node(models.NodeID{Kind: models.NodeResource, ID: "gpu-0"})
	assert.True(t, found)
}
