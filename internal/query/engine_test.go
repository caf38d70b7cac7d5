package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/internal/graph"
	"ark/internal/rules"
	"ark/internal/scenes"
	"ark/pkg/models"
)

func TestPSListsActiveProcessesWithNeighbors(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindProcessState, EntityID: "p", PID: 1, Value: "start"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 1, Value: "50"})

	eng := New(g, nil, scenes.NewRegistry(), 32, 100)
	entries := eng.PS()

	require.Len(t, entries, 1)
	assert.Equal(t, "pid-1", entries[0].PID)
	assert.Equal(t, "running", entries[0].State)
	assert.Contains(t, entries[0].Consumes, "gpu-0")
}

func TestPSExcludesExitedProcesses(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindProcessState, EntityID: "p", PID: 1, Value: "start"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindProcessState, EntityID: "p", PID: 1, Value: "exit"})

	eng := New(g, nil, scenes.NewRegistry(), 32, 100)
	assert.Empty(t, eng.PS())
}

func TestWhyReturnsRootCauseChainAndScenes(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 7, Value: "10"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "CUDA_OOM"})

	eng := New(g, nil, scenes.NewRegistry(), 32, 100)
	result := eng.Why(7)

	assert.Equal(t, "pid-7", result.PID)
	assert.NotEmpty(t, result.Chain)
	assert.NotEmpty(t, result.RootCauses)
	found := false
	for _, s := range result.Scenes {
		if s.Tag == models.SceneGpuOom {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWhyReportsNotFoundForUnknownPid(t *testing.T) {
	g := graph.New("host-a")
	eng := New(g, nil, scenes.NewRegistry(), 32, 100)

	result := eng.Why(999)

	assert.True(t, result.NotFound)
	assert.Equal(t, "pid-999", result.PID)
	assert.Empty(t, result.Chain)
	assert.Empty(t, result.RootCauses)
}

func TestDiagReportsNotFoundForUnknownPid(t *testing.T) {
	g := graph.New("host-a")
	eng := New(g, nil, scenes.NewRegistry(), 32, 100)

	result := eng.Diag(999)

	assert.True(t, result.Why.NotFound)
	assert.Empty(t, result.Nodes)
}

const highPriorityRuleYAML = `
name: high-priority-gpu-oom
scene: gpu_oom
priority: 100
conditions:
  - type: event
    event_type: compute.util
solution_steps:
  - step: 1
    action: restart the job from last checkpoint
root_cause_pattern:
  primary: gpu-hardware-fault
`

const lowPriorityRuleYAML = `
name: low-priority-generic-stall
scene: workload_stalled
priority: 95
conditions:
  - type: event
    event_type: compute.util
solution_steps:
  - step: 1
    action: investigate manually
root_cause_pattern:
  primary: generic-stall
`

func TestWhySurfacesOnlyTheHighestPriorityRuleMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "high.yaml"), []byte(highPriorityRuleYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "low.yaml"), []byte(lowPriorityRuleYAML), 0o644))
	rulesEngine, _, err := rules.Load(dir)
	require.NoError(t, err)

	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 7, Value: "10"})

	eng := New(g, rulesEngine, scenes.NewRegistry(), 32, 100)
	eng.RecordEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 7, Value: "10"})

	result := eng.Why(7)

	assert.Equal(t, "gpu_oom", result.Scene)
	require.Len(t, result.RootCauses, 1)
	assert.Equal(t, "gpu-hardware-fault", result.RootCauses[0].ID)
	require.Len(t, result.SolutionSteps, 1)
	assert.Equal(t, "restart the job from last checkpoint", result.SolutionSteps[0].Action)
}

func TestDiagCapsExcerptAndReportsEventKinds(t *testing.T) {
	g := graph.New("host-a")
	now := time.Now()
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 7, Value: "10"})
	g.ApplyEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "CUDA_OOM"})

	eng := New(g, nil, scenes.NewRegistry(), 32, 100)
	eng.RecordEvent(models.Event{Timestamp: now, Kind: models.KindComputeUtil, EntityID: "gpu-0", PID: 7, Value: "10"})
	eng.RecordEvent(models.Event{Timestamp: now, Kind: models.KindErrorHw, EntityID: "gpu-0", Value: "CUDA_OOM"})

	result := eng.Diag(7)

	assert.NotEmpty(t, result.Nodes)
	assert.LessOrEqual(t, len(result.Nodes), 200)
	assert.Contains(t, result.EventKinds, models.KindComputeUtil)
	assert.Contains(t, result.EventKinds, models.KindErrorHw)
	assert.False(t, result.NodesTruncated)
}
