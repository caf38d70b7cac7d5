package graph

import "ark/pkg/models"

// Snapshot is an immutable clone of the graph's node and edge sets, taken
// under a read lock and safe to traverse or marshal after the lock is
// released.
type Snapshot struct {
	Nodes []models.Node
	Edges []models.Edge
}

// Snapshot copies the current node and edge maps into flat, ordering-free
// slices. Every read-only query path (ps/why/diag, JSON responses to the
// hub) must go through this rather than holding the RWMutex across I/O.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]models.Node, 0, len(g.nodes)),
		Edges: make([]models.Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, *n)
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, *e)
	}
	return snap
}

// ActiveProcesses returns every Process node not marked exit/zombie,
// mirroring get_active_processes.
func (s Snapshot) ActiveProcesses() []models.Node {
	var out []models.Node
	for _, n := range s.Nodes {
		if n.Kind != models.NodeProcess {
			continue
		}
		state := n.Attrs["state"]
		if state == "exit" || state == "zombie" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// OutEdges returns every edge of the given kind leaving id.
func (s Snapshot) OutEdges(kind models.EdgeKind, id models.NodeID) []models.Edge {
	var out []models.Edge
	for _, e := range s.Edges {
		if e.Kind == kind && e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Node looks up a node by id within the snapshot.
func (s Snapshot) Node(id models.NodeID) (models.Node, bool) {
	for _, n := range s.Nodes {
		if n.Kind == id.Kind && n.ID == id.ID {
			return n, true
		}
	}
	return models.Node{}, false
}
