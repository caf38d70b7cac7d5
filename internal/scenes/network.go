package scenes

import (
	"fmt"
	"strings"

	"ark/internal/graph"
	"ark/pkg/models"
)

// analyzeNetworkStall is grounded on
// original_source/agent/src/scene/network_stall.rs's NetworkStallAnalyzer.
func analyzeNetworkStall(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string
	waitCount := 0

	for _, e := range snap.OutEdges(models.EdgeWaitsOn, target) {
		if !isNetworkEntity(e.To.ID) {
			continue
		}
		waitCount++
		rootCauses = append(rootCauses, fmt.Sprintf("waiting on network resource: %s", e.To.ID))

		if n, ok := snap.Node(e.To); ok {
			if rate, ok := parseFloat(n.Attrs["drop"]); ok && rate > 10.0 {
				rootCauses = append(rootCauses, fmt.Sprintf("network %s drop rate high: %.1f%%", e.To.ID, rate))
			}
		}
	}

	for _, e := range snap.OutEdges(models.EdgeBlockedBy, target) {
		if !isNetworkEntity(e.To.ID) {
			continue
		}
		if strings.Contains(e.To.ID, "error") {
			rootCauses = append(rootCauses, fmt.Sprintf("network error: %s", e.To.ID))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneNetworkStall, Confidence: 0}
	}

	confidence := 0.6
	if waitCount > 0 {
		confidence = 0.85
	}

	return models.SceneReport{
		Tag:        models.SceneNetworkStall,
		Confidence: confidence,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check network bandwidth utilization",
			"check packet drop statistics",
			"check RDMA link status if applicable",
		},
		RecommendedActions: []models.ActionIntent{
			{Kind: models.ActionSignal, PID: pid, Signal: "SIGUSR1", Reason: "checkpoint before restart"},
		},
		Severity: models.SeverityWarning,
	}
}

// analyzeNetworkDrop is the counterpart focused purely on drop-rate
// evidence rather than a WaitsOn stall, for cases where a process still
// consumes the network resource but is being degraded by packet loss.
func analyzeNetworkDrop(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	for _, e := range snap.OutEdges(models.EdgeConsumes, target) {
		if !isNetworkEntity(e.To.ID) {
			continue
		}
		n, ok := snap.Node(e.To)
		if !ok {
			continue
		}
		if rate, ok := parseFloat(n.Attrs["drop"]); ok && rate > 0 {
			rootCauses = append(rootCauses, fmt.Sprintf("network %s dropping packets: %.1f%%", e.To.ID, rate))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneNetworkDrop, Confidence: 0}
	}

	return models.SceneReport{
		Tag:        models.SceneNetworkDrop,
		Confidence: 0.7,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check switch PFC configuration",
			"check for a flapping link",
		},
		Severity: models.SeverityWarning,
	}
}

// networkEntityPrefixes are the resource id prefixes spec.md's scenarios use
// for network hardware (RDMA NICs like "mlx5_0", plain NICs like "nic-0",
// and the generic "network-" namespace). This is a stopgap for not having a
// resource `class` attribute to switch on instead of the id string.
var networkEntityPrefixes = []string{"network-", "nic", "mlx", "eth", "ib"}

func isNetworkEntity(id string) bool {
	for _, p := range networkEntityPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
