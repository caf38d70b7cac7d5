package scenes

import (
	"fmt"
	"strings"

	"ark/internal/graph"
	"ark/pkg/models"
)

// analyzeProcessCrash is grounded on
// original_source/src/scene/process_crash.rs's ProcessCrashAnalyzer.
func analyzeProcessCrash(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	var rootCauses []string

	if n, ok := snap.Node(target); ok {
		state := n.Attrs["state"]
		if state == "exit" || state == "crash" || state == "failed" {
			rootCauses = append(rootCauses, fmt.Sprintf("process state: %s", state))
		}
	}

	for _, e := range snap.OutEdges(models.EdgeBlockedBy, target) {
		n, ok := snap.Node(e.To)
		if !ok || !strings.Contains(n.ID, "error") {
			continue
		}
		if et := n.Attrs["error_type"]; et != "" {
			rootCauses = append(rootCauses, fmt.Sprintf("error: %s", et))
		} else {
			rootCauses = append(rootCauses, fmt.Sprintf("error node: %s", e.To.ID))
		}
	}

	if len(rootCauses) == 0 {
		return models.SceneReport{Tag: models.SceneProcessCrash, Confidence: 0}
	}

	return models.SceneReport{
		Tag:        models.SceneProcessCrash,
		Confidence: 0.75,
		RootCauses: rootCauses,
		Recommendations: []string{
			"check the process exit code",
			"check system logs",
			"check memory/CPU resource usage at time of crash",
			"check dependent service health",
		},
		Severity: models.SeverityCritical,
	}
}

// analyzeProcessBlocked reports any process with at least one WaitsOn edge —
// spec.md's catch-all ProcessBlocked scene. It fires whether or not another
// analyzer also reports on the same wait.
func analyzeProcessBlocked(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)
	waits := snap.OutEdges(models.EdgeWaitsOn, target)
	if len(waits) == 0 {
		return models.SceneReport{Tag: models.SceneProcessBlocked, Confidence: 0}
	}

	var rootCauses []string
	for _, e := range waits {
		rootCauses = append(rootCauses, fmt.Sprintf("waiting on: %s", e.To.ID))
	}

	return models.SceneReport{
		Tag:        models.SceneProcessBlocked,
		Confidence: 0.6,
		RootCauses: rootCauses,
		Recommendations: []string{
			"inspect the resource(s) this process is waiting on",
		},
		Severity: models.SeverityWarning,
	}
}

// analyzeWorkloadStalled is grounded on
// original_source/src/scene/workload_stalled.rs's WorkloadStalledAnalyzer:
// a running process whose every consumed resource reports near-zero
// utilization and which isn't waiting on network/storage IO is treated as
// deadlocked rather than merely idle.
func analyzeWorkloadStalled(snap graph.Snapshot, pid int) models.SceneReport {
	target := pidNodeID(pid)

	n, ok := snap.Node(target)
	if !ok || n.Attrs["state"] != "running" {
		return models.SceneReport{Tag: models.SceneWorkloadStalled, Confidence: 0}
	}

	total := 0
	lowUtil := 0
	for _, e := range snap.OutEdges(models.EdgeConsumes, target) {
		total++
		if resNode, ok := snap.Node(e.To); ok {
			if util, ok := parseFloat(resNode.Attrs["util"]); ok && util < 1.0 {
				lowUtil++
			}
		}
	}

	hasIOWait := false
	for _, e := range snap.OutEdges(models.EdgeWaitsOn, target) {
		if isNetworkEntity(e.To.ID) || isStorageEntity(e.To.ID) {
			hasIOWait = true
		}
	}

	if total == 0 || lowUtil != total || hasIOWait {
		return models.SceneReport{Tag: models.SceneWorkloadStalled, Confidence: 0}
	}

	return models.SceneReport{
		Tag:        models.SceneWorkloadStalled,
		Confidence: 0.9,
		RootCauses: []string{
			"process is running but consumes no measurable resources",
			fmt.Sprintf("all %d consumed resources report utilization under 1%%", total),
			"no network or storage IO wait detected",
		},
		Recommendations: []string{
			"check whether the process is blocked on a lock or semaphore",
			"check whether the process is waiting on another process",
			"check application logs for deadlock diagnostics",
		},
		RecommendedActions: []models.ActionIntent{
			{Kind: models.ActionKill, PID: pid, Reason: "workload appears deadlocked with no measurable progress"},
		},
		Severity: models.SeverityWarning,
	}
}
