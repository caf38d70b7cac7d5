package query

import (
	"ark/internal/graph"
	"ark/pkg/models"
)

// bfsExcerpt collects the neighborhood of start out to radius hops, over
// both edge directions, into a node/edge set capped at maxNodes. Traversal
// order is breadth-first so a cap always keeps the closest neighborhood,
// matching original_source/src/diag.rs's bounded packaging for its
// external LLM caller.
func bfsExcerpt(snap graph.Snapshot, start models.NodeID, radius, maxNodes int) (nodes []models.Node, edges []models.Edge, truncated bool) {
	visited := map[models.NodeID]bool{start: true}
	edgeSeen := map[edgeRef]bool{}
	queue := []models.NodeID{start}

	for depth := 0; depth <= radius && len(queue) > 0; depth++ {
		var next []models.NodeID
		for _, id := range queue {
			for _, e := range snap.Edges {
				var neighbor models.NodeID
				switch {
				case e.From == id:
					neighbor = e.To
				case e.To == id:
					neighbor = e.From
				default:
					continue
				}

				ref := edgeRef{Kind: e.Kind, From: e.From, To: e.To}
				if !edgeSeen[ref] {
					edgeSeen[ref] = true
					edges = append(edges, e)
				}

				if visited[neighbor] {
					continue
				}
				if len(visited) >= maxNodes {
					truncated = true
					continue
				}
				visited[neighbor] = true
				next = append(next, neighbor)
			}
		}
		queue = next
	}

	nodes = make([]models.Node, 0, len(visited))
	for id := range visited {
		if n, ok := snap.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, edges, truncated
}

type edgeRef struct {
	Kind models.EdgeKind
	From models.NodeID
	To   models.NodeID
}
