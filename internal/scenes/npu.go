package scenes

import (
	"fmt"
	"strings"

	"ark/internal/graph"
	"ark/pkg/models"
)

// analyzeNpuSubhealth is grounded on
// original_source/src/scene/npu_subhealth.rs's NpuSubhealthAnalyzer.
func analyzeNpuSubhealth(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	for _, e := range snap.OutEdges(models.EdgeConsumes, target) {
		if !(strings.HasPrefix(e.To.ID, "npu-") || strings.Contains(e.To.ID, "ascend")) {
			continue
		}
		n, ok := snap.Node(e.To)
		if !ok {
			continue
		}

		if temp, ok := parseFloat(n.Attrs["temperature"]); ok && temp > 85.0 {
			rootCauses = append(rootCauses, fmt.Sprintf("NPU %s SOC overtemperature: %.1fC", e.To.ID, temp))
		}

		if status := n.Attrs["hccs_lane_status"]; status == "degraded" {
			rootCauses = append(rootCauses, fmt.Sprintf("NPU %s HCCS link degraded", e.To.ID))
		}

		freq, fok := parseFloat(n.Attrs["frequency"])
		maxFreq, mok := parseFloat(n.Attrs["max_frequency"])
		if fok && mok && maxFreq > 0 && freq < maxFreq*0.9 {
			rootCauses = append(rootCauses, fmt.Sprintf("NPU %s throttled: %.0fMHz of %.0fMHz", e.To.ID, freq, maxFreq))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneNpuSubhealth, Confidence: 0}
	}

	confidence := 0.7
	if len(rootCauses) > 1 {
		confidence = 0.85
	}

	return models.SceneReport{
		Tag:        models.SceneNpuSubhealth,
		Confidence: confidence,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check chassis cooling and fan status",
			"check NPU firmware and driver versions",
			"monitor NPU temperature trend",
			"contact hardware maintenance to inspect the NPU",
		},
		Severity: models.SeverityWarning,
	}
}
