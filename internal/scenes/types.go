// Package scenes classifies a stalled or crashed process into one of a
// closed set of scene tags by walking its immediate causal neighborhood in
// a graph snapshot.
package scenes

import (
	"strconv"

	"ark/internal/graph"
	"ark/pkg/models"
)

// AnalyzerFunc inspects the graph around one process and returns a scene
// report if that analyzer's scene applies.
type AnalyzerFunc func(snap graph.Snapshot, pid int) models.SceneReport

type entry struct {
	Tag models.SceneTag
	Fn  AnalyzerFunc
}

// Registry runs every registered analyzer against a target process in a
// fixed order — a slice, not a map, so results are reproducible run to
// run, grounded on original_source/agent/src/scene/analyzer.rs's
// SceneRegistry (Vec<Box<dyn SceneAnalyzer>>).
type Registry struct {
	entries []entry
}

func (r *Registry) register(tag models.SceneTag, fn AnalyzerFunc) {
	r.entries = append(r.entries, entry{Tag: tag, Fn: fn})
}

// Analyze runs every analyzer and returns the reports with nonzero
// confidence, in registration order.
func (r *Registry) Analyze(snap graph.Snapshot, pid int) []models.SceneReport {
	var out []models.SceneReport
	for _, e := range r.entries {
		report := e.Fn(snap, pid)
		if report.Confidence > 0 {
			out = append(out, report)
		}
	}
	return out
}

// ForTag runs only the first analyzer registered for tag, if any; later
// analyzers sharing the tag are not run.
func (r *Registry) ForTag(tag models.SceneTag, snap graph.Snapshot, pid int) (models.SceneReport, bool) {
	for _, e := range r.entries {
		if e.Tag == tag {
			return e.Fn(snap, pid), true
		}
	}
	return models.SceneReport{}, false
}

func pidNodeID(pid int) models.NodeID {
	return models.NodeID{Kind: models.NodeProcess, ID: pidLabel(pid)}
}

func pidLabel(pid int) string {
	if pid == 0 {
		return "pid-0"
	}
	neg := pid < 0
	n := pid
	if neg {
		n = -n
	}
	var buf [24]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	s := string(buf[i:])
	if neg {
		s = "-" + s
	}
	return "pid-" + s
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
