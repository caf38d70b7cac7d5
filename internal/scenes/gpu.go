package scenes

import (
	"fmt"
	"strings"

	"ark/internal/graph"
	"ark/pkg/models"
)

// analyzeGpuOom is grounded on
// original_source/agent/src/scene/gpu_oom.rs's GpuOomAnalyzer.
func analyzeGpuOom(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	for _, e := range snap.OutEdges(models.EdgeBlockedBy, target) {
		n, ok := snap.Node(e.To)
		if !ok || !(strings.HasPrefix(n.ID, "gpu-") || strings.Contains(n.ID, "gpu")) {
			continue
		}
		if et := n.Attrs["error_type"]; strings.Contains(et, "OOM") || strings.Contains(strings.ToLower(et), "out of memory") {
			rootCauses = append(rootCauses, fmt.Sprintf("GPU %s out of memory", n.ID))
		}
	}

	for _, e := range snap.OutEdges(models.EdgeConsumes, target) {
		if !strings.HasPrefix(e.To.ID, "gpu-") {
			continue
		}
		n, ok := snap.Node(e.To)
		if !ok {
			continue
		}
		if usage, ok := parseFloat(n.Attrs["mem_usage"]); ok && usage > 95.0 {
			rootCauses = append(rootCauses, fmt.Sprintf("GPU %s memory usage critical: %.1f%%", e.To.ID, usage))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneGpuOom, Confidence: 0}
	}

	confidence := 0.7
	if len(rootCauses) > 1 {
		confidence = 0.9
	}

	return models.SceneReport{
		Tag:        models.SceneGpuOom,
		Confidence: confidence,
		RootCauses: rootCauses,
		Recommendations: []string{
			"inspect memory usage with nvidia-smi",
			"reduce batch size or model precision",
			"check for a memory leak in the training loop",
		},
		RecommendedActions: []models.ActionIntent{
			{Kind: models.ActionSignal, PID: pid, Signal: "SIGUSR1", Reason: "trigger framework checkpoint dump before recovery"},
		},
		Severity: models.SeverityCritical,
	}
}

// analyzeGpuUtilLow flags a process consuming a GPU whose utilization has
// been near zero — the low-utilization counterpart to workload_stalled,
// specific to the resource rather than the process side of the edge. No
// literal source exists for this scene in original_source; it is built
// from spec.md's own text plus the WorkloadStalled utilization check in
// original_source/src/scene/workload_stalled.rs, adapted to a per-resource
// view.
func analyzeGpuUtilLow(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	for _, e := range snap.OutEdges(models.EdgeConsumes, target) {
		if !strings.HasPrefix(e.To.ID, "gpu-") {
			continue
		}
		n, ok := snap.Node(e.To)
		if !ok {
			continue
		}
		if util, ok := parseFloat(n.Attrs["util"]); ok && util < 1.0 {
			rootCauses = append(rootCauses, fmt.Sprintf("GPU %s utilization near zero: %.2f%%", e.To.ID, util))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneGpuUtilLow, Confidence: 0}
	}

	return models.SceneReport{
		Tag:        models.SceneGpuUtilLow,
		Confidence: 0.75,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check whether the process is stuck on host-side preprocessing",
			"confirm the data loader is feeding the GPU",
		},
		Severity: models.SeverityWarning,
	}
}

// analyzeGpuError flags a BlockedBy edge into a GPU error node whose type
// isn't OOM (which is claimed by GpuOom), e.g. an XID hardware fault.
func analyzeGpuError(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	for _, e := range snap.OutEdges(models.EdgeBlockedBy, target) {
		n, ok := snap.Node(e.To)
		if !ok || !(strings.HasPrefix(n.ID, "gpu-") || strings.Contains(n.ID, "gpu")) {
			continue
		}
		et := n.Attrs["error_type"]
		if et == "" {
			continue
		}
		if strings.Contains(et, "OOM") {
			continue
		}
		rootCauses = append(rootCauses, fmt.Sprintf("GPU %s hardware error: %s", n.ID, et))
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneGpuError, Confidence: 0}
	}

	return models.SceneReport{
		Tag:        models.SceneGpuError,
		Confidence: 0.85,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check dmesg / nvidia-smi -q for XID codes",
			"consider draining the node for hardware inspection",
		},
		Severity: models.SeverityCritical,
	}
}
