package graph

import "ark/pkg/models"

// RootCause walks the causal chain backward from a pid via BlockedBy edges
// (to their terminal Error nodes) and WaitsOn edges (to the resource being
// waited on), the reverse-DFS pattern of dfs_backward in
// original_source/src/graph.rs. A visited set prevents cycles and maxHops
// bounds the walk depth; the result is deduplicated by (kind,id), first
// encounter wins, so the caller sees each cause once in discovery order.
func (g *Graph) RootCause(pid int, maxHops int) (chain []models.NodeID, truncated bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[models.NodeID]bool)
	seen := make(map[models.NodeID]bool)
	start := pidNode(pid)

	truncated = g.dfsBackward(start, 0, maxHops, visited, seen, &chain)
	return chain, truncated
}

func (g *Graph) dfsBackward(id models.NodeID, depth, maxHops int, visited, seen map[models.NodeID]bool, chain *[]models.NodeID) bool {
	if visited[id] {
		return false
	}
	visited[id] = true

	if depth >= maxHops {
		return true
	}

	truncated := false

	for k := range g.edges {
		if k.Kind != models.EdgeBlockedBy || k.From != id {
			continue
		}
		if n, ok := g.nodes[k.To]; ok && n.Kind == models.NodeError {
			if !seen[k.To] {
				seen[k.To] = true
				*chain = append(*chain, k.To)
			}
		}
		if g.dfsBackward(k.To, depth+1, maxHops, visited, seen, chain) {
			truncated = true
		}
	}

	for k := range g.edges {
		if k.Kind != models.EdgeWaitsOn || k.From != id {
			continue
		}
		if !seen[k.To] {
			seen[k.To] = true
			*chain = append(*chain, k.To)
		}
		if g.dfsBackward(k.To, depth+1, maxHops, visited, seen, chain) {
			truncated = true
		}
	}

	return truncated
}
