package graph

import (
	"time"

	"ark/pkg/models"
)

// Sweep evicts Error nodes older than errorWindow, terminal Process nodes
// past processGrace, and Resource nodes whose last heartbeat is older than
// resourceWindow, plus any edge touching an evicted node — the
// windowed-eviction half of cleanup_old_errors in original_source/src/graph.rs,
// extended to cover the Resource case that source leaves unswept but
// spec.md's windowing rules require.
func (g *Graph) Sweep(now time.Time, errorWindow, processGrace, resourceWindow time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	errorCutoff := now.Add(-errorWindow)
	processCutoff := now.Add(-processGrace)
	resourceCutoff := now.Add(-resourceWindow)

	dead := make(map[models.NodeID]struct{})

	for id, n := range g.nodes {
		switch n.Kind {
		case models.NodeError:
			if n.LastSeen.Before(errorCutoff) {
				dead[id] = struct{}{}
			}
		case models.NodeProcess:
			state := n.Attrs["state"]
			explicitlyDead := (state == "exit" || state == "zombie") && n.LastSeen.Before(processCutoff)
			staleNonRunning := n.LastSeen.Before(processCutoff) && state != "running"
			if explicitlyDead || staleNonRunning {
				dead[id] = struct{}{}
			}
		case models.NodeResource:
			if n.LastSeen.Before(resourceCutoff) {
				dead[id] = struct{}{}
			}
		}
	}

	for id := range dead {
		delete(g.nodes, id)
	}
	for k := range g.edges {
		_, fromDead := dead[k.From]
		_, toDead := dead[k.To]
		if fromDead || toDead {
			delete(g.edges, k)
		}
	}
}
