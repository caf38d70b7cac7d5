// Package query answers ps/why/diag questions against a graph snapshot,
// the loaded rule set, and the scene analyzer registry — the read side of
// the causal pipeline, exposed to the IPC and hub layers.
package query

import (
	"sort"
	"sync"

	"ark/internal/graph"
	"ark/internal/rules"
	"ark/internal/scenes"
	"ark/pkg/models"
)

// Engine composes a graph, an optional rule engine, and the scene registry
// into the ps/why/diag handlers described by original_source/agent/src/ipc.rs's
// handle_request and original_source/src/diag.rs's diagnosis packaging.
type Engine struct {
	g         *graph.Graph
	rules     *rules.Engine
	scenes    *scenes.Registry
	maxHops   int
	diagRadius int
	diagCap   int

	mu        sync.Mutex
	recent    []models.Event
	recentCap int
}

// New builds a query engine. rulesEngine may be nil if rule matching is
// disabled; every other field is required.
func New(g *graph.Graph, rulesEngine *rules.Engine, sceneRegistry *scenes.Registry, maxHops, recentCap int) *Engine {
	return &Engine{
		g:          g,
		rules:      rulesEngine,
		scenes:     sceneRegistry,
		maxHops:    maxHops,
		diagRadius: 2,
		diagCap:    200,
		recentCap:  recentCap,
	}
}

// RecordEvent appends an event to the bounded recent-event tail used both
// for rule condition matching and for diag's event-kinds-referenced set.
func (e *Engine) RecordEvent(ev models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = append(e.recent, ev)
	if over := len(e.recent) - e.recentCap; over > 0 {
		e.recent = e.recent[over:]
	}
}

func (e *Engine) recentEvents() []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Event, len(e.recent))
	copy(out, e.recent)
	return out
}

// PS lists every active process node, mirroring ListProcesses's
// active-process-plus-resources shape.
func (e *Engine) PS() []models.PsEntry {
	snap := e.g.Snapshot()
	active := snap.ActiveProcesses()

	entries := make([]models.PsEntry, 0, len(active))
	for _, n := range active {
		id := models.NodeID{Kind: n.Kind, ID: n.ID}
		entry := models.PsEntry{
			PID:      n.ID,
			HostID:   n.HostID,
			State:    n.Attrs["state"],
			LastSeen: n.LastSeen,
		}
		for _, edge := range snap.OutEdges(models.EdgeConsumes, id) {
			entry.Consumes = append(entry.Consumes, edge.To.ID)
		}
		for _, edge := range snap.OutEdges(models.EdgeWaitsOn, id) {
			entry.WaitsOn = append(entry.WaitsOn, edge.To.ID)
		}
		for _, edge := range snap.OutEdges(models.EdgeBlockedBy, id) {
			entry.BlockedBy = append(entry.BlockedBy, edge.To.ID)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].PID < entries[j].PID })
	return entries
}

// Why answers why_process: the reverse-DFS root cause chain plus every
// scene report the registry finds for that pid. An unknown pid returns
// NotFound rather than an error, per spec.md's not_found response shape.
func (e *Engine) Why(pid int) models.WhyResult {
	snap := e.g.Snapshot()

	target := models.NodeID{Kind: models.NodeProcess, ID: pidLabel(pid)}
	if _, ok := snap.Node(target); !ok {
		return models.WhyResult{PID: pidLabel(pid), NotFound: true}
	}

	chain, truncated := e.g.RootCause(pid, e.maxHops)

	result := models.WhyResult{
		PID:           pidLabel(pid),
		Chain:         chain,
		TruncatedHops: truncated,
	}

	if e.scenes != nil {
		result.Scenes = e.scenes.Analyze(snap, pid)
	}
	if e.rules != nil {
		if matches := e.rules.Evaluate(e.recentEvents(), snap); len(matches) > 0 {
			// matches is priority-sorted by rules.Load; the highest-priority
			// match alone determines the reported scene and solution, per
			// spec.md's selection rule rather than a merge of every match.
			top := matches[0].Rule
			result.Scene = top.Scene
			result.RootCauses = append(result.RootCauses, models.NodeID{
				Kind: models.NodeError,
				ID:   top.RootCausePattern.Primary,
			})
			for _, sec := range top.RootCausePattern.Secondary {
				result.RootCauses = append(result.RootCauses, models.NodeID{Kind: models.NodeError, ID: sec})
			}
			for _, step := range top.SolutionSteps {
				result.SolutionSteps = append(result.SolutionSteps, models.SolutionStep{
					Step:    step.Step,
					Action:  step.Action,
					Command: step.Command,
					Manual:  step.Manual,
				})
			}
		}
	}
	if len(result.RootCauses) == 0 {
		result.RootCauses = firstErrorNodes(chain)
	}

	return result
}

// firstErrorNodes falls back to the error nodes already present in the
// root-cause chain when no rule fired, so `why` never returns an empty
// root_causes list purely because rules are disabled or none matched.
func firstErrorNodes(chain []models.NodeID) []models.NodeID {
	var out []models.NodeID
	for _, id := range chain {
		if id.Kind == models.NodeError {
			out = append(out, id)
		}
	}
	return out
}

// Diag answers diag: a Why result plus a bounded adjacency excerpt around
// the target process, breadth-first to radius 2 over both edge directions
// and capped at 200 nodes — the packaging original_source/src/diag.rs
// builds for its (out-of-scope here) LLM caller.
func (e *Engine) Diag(pid int) models.DiagResult {
	why := e.Why(pid)
	if why.NotFound {
		return models.DiagResult{Why: why}
	}
	snap := e.g.Snapshot()

	target := models.NodeID{Kind: models.NodeProcess, ID: pidLabel(pid)}
	nodes, edges, truncated := bfsExcerpt(snap, target, e.diagRadius, e.diagCap)

	kindSet := make(map[models.Kind]bool)
	for _, ev := range e.recentEvents() {
		kindSet[ev.Kind] = true
	}
	kinds := make([]models.Kind, 0, len(kindSet))
	for k := range kindSet {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return models.DiagResult{
		Why:            why,
		Nodes:          nodes,
		Edges:          edges,
		EventKinds:     kinds,
		NodesTruncated: truncated,
	}
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
	var buf [20]byte
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
