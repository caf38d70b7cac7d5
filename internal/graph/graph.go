// Package graph maintains the in-memory, time-windowed causal state graph
// derived from the agent's event stream: Process, Resource, Error, and Host
// nodes joined by Consumes, WaitsOn, and BlockedBy edges.
package graph

import (
	"sync"
	"time"

	"ark/pkg/models"
)

type edgeKey struct {
	Kind models.EdgeKind
	From models.NodeID
	To   models.NodeID
}

// Graph is the RWMutex-guarded causal state graph for one agent's host.
// Every mutation happens under a write lock. Snapshot copies the maps under
// a read lock so callers work off the copy; RootCause instead walks the live
// maps under one held read lock. Neither holds a lock across I/O or JSON
// marshaling. sync.RWMutex does not prefer readers: while a writer waits,
// new readers block.
type Graph struct {
	mu    sync.RWMutex
	hosts string

	nodes map[models.NodeID]*models.Node
	edges map[edgeKey]*models.Edge

	qdepthThreshold float64
}

// defaultQDepthThreshold is the storage/network queue-depth level at or
// above which a consuming process is considered stalled on the resource,
// grounded on original_source/agent/src/scene/storage_slow.rs's
// `qdepth_val > 100.0` check.
const defaultQDepthThreshold = 100.0

// New creates an empty Graph for the given host id.
func New(hostID string) *Graph {
	return &Graph{
		hosts:           hostID,
		nodes:           make(map[models.NodeID]*models.Node),
		edges:           make(map[edgeKey]*models.Edge),
		qdepthThreshold: defaultQDepthThreshold,
	}
}

// SetQDepthThreshold overrides the queue-depth threshold used to derive
// WaitsOn from storage.iops/storage.qdepth events. A non-positive value is
// ignored.
func (g *Graph) SetQDepthThreshold(v float64) {
	if v <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.qdepthThreshold = v
}

func pidNode(pid int) models.NodeID {
	return models.NodeID{Kind: models.NodeProcess, ID: pidLabel(pid)}
}

func pidLabel(pid int) string {
	return "pid-" + itoa(pid)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
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
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// upsertNode creates or touches a node's LastSeen under the caller's write
// lock.
func (g *Graph) upsertNode(id models.NodeID, ts time.Time, mutate func(*models.Node)) *models.Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &models.Node{
			Kind:      id.Kind,
			ID:        id.ID,
			HostID:    g.hosts,
			FirstSeen: ts,
			LastSeen:  ts,
			Attrs:     make(map[string]string),
		}
		g.nodes[id] = n
	}
	n.LastSeen = ts
	if mutate != nil {
		mutate(n)
	}
	return n
}

// upsertEdge creates an edge if it doesn't already exist, else refreshes
// UpdatedAt — the map lookup replaces the Rust source's O(edges) linear
// existence scan with an O(1) check.
func (g *Graph) upsertEdge(kind models.EdgeKind, from, to models.NodeID, ts time.Time) {
	k := edgeKey{Kind: kind, From: from, To: to}
	if e, ok := g.edges[k]; ok {
		e.UpdatedAt = ts
		return
	}
	g.edges[k] = &models.Edge{
		Kind:      kind,
		From:      from,
		To:        to,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// ApplyEvent updates graph state from one event, mirroring
// StateGraph::process_event's dispatch by event domain.
func (g *Graph) ApplyEvent(ev models.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch ev.Kind {
	case models.KindProcessState:
		g.handleProcessState(ev)
	case models.KindComputeUtil, models.KindComputeMem:
		g.handleComputeEvent(ev)
	case models.KindTransportBw, models.KindTransportDrop, models.KindStorageIops, models.KindStorageQDepth:
		g.handleFlowEvent(ev)
	case models.KindErrorHw, models.KindErrorNet, models.KindTopoLinkDown:
		g.handleErrorEvent(ev)
	case models.KindActionExec:
		g.handleActionExec(ev)
	case models.KindIntentRun:
		// Scheduler metadata; not part of the causal graph.
	}
}

// handleActionExec records a dispatched intervention as metadata on the
// target process node, per spec.md's derivation table row for action.exec:
// no edges, just an attribute trail of what was last done to the process.
func (g *Graph) handleActionExec(ev models.Event) {
	if ev.PID == 0 {
		return
	}
	pid := pidNode(ev.PID)
	g.upsertNode(pid, ev.Timestamp, func(n *models.Node) {
		n.Attrs["last_action"] = ev.Value
	})
}

func (g *Graph) handleProcessState(ev models.Event) {
	if ev.PID == 0 {
		return
	}
	id := pidNode(ev.PID)

	switch ev.Value {
	case "start":
		n := g.upsertNode(id, ev.Timestamp, func(n *models.Node) {
			n.Attrs["state"] = "running"
			if ev.JobID != "" {
				n.Attrs["job_id"] = ev.JobID
			}
		})
		n.Terminal = false
	case "exit", "zombie":
		if n, ok := g.nodes[id]; ok {
			n.Attrs["state"] = ev.Value
			n.LastSeen = ev.Timestamp
			n.Terminal = true
		}
	}
}

func (g *Graph) handleComputeEvent(ev models.Event) {
	resID := models.NodeID{Kind: models.NodeResource, ID: ev.EntityID}
	key := "util"
	if ev.Kind == models.KindComputeMem {
		key = "mem"
	}
	g.upsertNode(resID, ev.Timestamp, func(n *models.Node) {
		n.Attrs[key] = ev.Value
	})

	if ev.PID != 0 {
		pid := pidNode(ev.PID)
		g.upsertNode(pid, ev.Timestamp, nil)
		g.upsertEdge(models.EdgeConsumes, pid, resID, ev.Timestamp)
	}
}

// handleFlowEvent covers both the transport and storage domains, following
// spec.md's derivation table row-by-row per kind rather than the Rust
// source's one-size-fits-all handle_transport_event (which every storage
// event also went through via handle_storage_event's direct delegation):
// bw always derives Consumes, never WaitsOn; drop only derives WaitsOn for
// a non-numeric (sentinel) value and otherwise increments drop_count with
// no edge change; iops/qdepth derive WaitsOn only once the resource's
// queue depth reaches the configured threshold.
func (g *Graph) handleFlowEvent(ev models.Event) {
	resID := models.NodeID{Kind: models.NodeResource, ID: ev.EntityID}

	switch ev.Kind {
	case models.KindTransportBw:
		g.upsertNode(resID, ev.Timestamp, func(n *models.Node) {
			n.Attrs["bw"] = ev.Value
		})
		if ev.PID != 0 {
			pid := pidNode(ev.PID)
			g.upsertNode(pid, ev.Timestamp, nil)
			g.upsertEdge(models.EdgeConsumes, pid, resID, ev.Timestamp)
		}

	case models.KindTransportDrop:
		v, numeric := parseMetricValue(ev.Value)
		g.upsertNode(resID, ev.Timestamp, func(n *models.Node) {
			if numeric {
				n.Attrs["drop_count"] = formatMetricValue(dropCount(n) + v)
			} else {
				n.Attrs["drop"] = ev.Value
			}
		})
		if ev.PID != 0 && !numeric {
			pid := pidNode(ev.PID)
			g.upsertNode(pid, ev.Timestamp, nil)
			g.upsertEdge(models.EdgeWaitsOn, pid, resID, ev.Timestamp)
		}

	case models.KindStorageIops, models.KindStorageQDepth:
		n := g.upsertNode(resID, ev.Timestamp, func(n *models.Node) {
			n.Attrs[flowMetricKey(ev.Kind)] = ev.Value
		})
		if ev.PID == 0 {
			return
		}
		qdepth, ok := parseMetricValue(n.Attrs["qdepth"])
		if !ok || qdepth < g.qdepthThreshold {
			return
		}
		pid := pidNode(ev.PID)
		g.upsertNode(pid, ev.Timestamp, nil)
		g.upsertEdge(models.EdgeWaitsOn, pid, resID, ev.Timestamp)
	}
}

// dropCount reads a resource node's running drop_count, defaulting to 0 on
// first observation or an unparseable prior value.
func dropCount(n *models.Node) float64 {
	v, ok := parseMetricValue(n.Attrs["drop_count"])
	if !ok {
		return 0
	}
	return v
}

func flowMetricKey(k models.Kind) string {
	switch k {
	case models.KindTransportBw:
		return "bw"
	case models.KindTransportDrop:
		return "drop"
	case models.KindStorageIops:
		return "iops"
	case models.KindStorageQDepth:
		return "qdepth"
	default:
		return "unknown"
	}
}

func (g *Graph) handleErrorEvent(ev models.Event) {
	errID := models.NodeID{Kind: models.NodeError, ID: "error-" + ev.EntityID}
	g.upsertNode(errID, ev.Timestamp, func(n *models.Node) {
		n.Attrs["error_type"] = ev.Value
	})

	resID := models.NodeID{Kind: models.NodeResource, ID: ev.EntityID}
	for k := range g.edges {
		if k.Kind == models.EdgeConsumes && k.To == resID {
			g.upsertEdge(models.EdgeBlockedBy, k.From, errID, ev.Timestamp)
		}
	}
	g.upsertEdge(models.EdgeBlockedBy, resID, errID, ev.Timestamp)
}
