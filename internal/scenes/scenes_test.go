package scenes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/internal/graph"
	"ark/pkg/models"
)

func TestGpuOomDetected(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 100, Value: "10"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "CUDA_OOM"})

	reg := NewRegistry()
	reports := reg.Analyze(g.Snapshot(), 100)

	require.NotEmpty(t, reports)
	found := false
	for _, r := range reports {
		if r.Tag == models.SceneGpuOom {
			found = true
			assert.Greater(t, r.Confidence, 0.0)
		}
	}
	assert.True(t, found)
}

func TestWorkloadStalledRequiresRunningState(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 200, Value: "0.1"})

	report := analyzeWorkloadStalled(g.Snapshot(), 200)
	assert.Equal(t, 0.0, report.Confidence)
}

func TestWorkloadStalledFiresWhenRunningAndIdle(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindProcessState, EntityID: "proc", PID: 200, Value: "start"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 200, Value: "0.1"})

	report := analyzeWorkloadStalled(g.Snapshot(), 200)
	assert.Greater(t, report.Confidence, 0.0)
}

func TestCheckpointTimeoutAliasesProcessBlocked(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindStorageQDepth, EntityID: "storage-0", PID: 300, Value: "150"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindStorageIops, EntityID: "storage-0", PID: 300, Value: "0.5"})

	report := analyzeCheckpointTimeout(g.Snapshot(), 300)
	assert.Equal(t, models.SceneProcessBlocked, report.Tag)
	assert.NotEmpty(t, report.RootCauseSecondary)
}

// TestWorkloadStalledYieldsToProcessBlockedOnNic covers spec.md's scenario 3
// literally: once a transport.drop sentinel wires a WaitsOn edge to "nic-0",
// WorkloadStalled must stop reporting even though the process still looks
// idle by utilization.
func TestWorkloadStalledYieldsToProcessBlockedOnNic(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindProcessState, EntityID: "proc", PID: 200, Value: "start"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 200, Value: "0"})

	stalled := analyzeWorkloadStalled(g.Snapshot(), 200)
	assert.Greater(t, stalled.Confidence, 0.0)

	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindTransportDrop, EntityID: "nic-0", PID: 200, Value: "IO_WAIT"})

	stalled = analyzeWorkloadStalled(g.Snapshot(), 200)
	assert.Equal(t, 0.0, stalled.Confidence)

	blocked := analyzeProcessBlocked(g.Snapshot(), 200)
	assert.Equal(t, models.SceneProcessBlocked, blocked.Tag)
	assert.Greater(t, blocked.Confidence, 0.0)
}
