package models

import "time"

// NodeKind is the type of a causal state graph vertex.
type NodeKind string

const (
	NodeProcess  NodeKind = "process"
	NodeResource NodeKind = "resource"
	NodeError    NodeKind = "error"
	NodeHost     NodeKind = "host"
)

// EdgeKind is the type of a causal state graph edge.
type EdgeKind string

const (
	EdgeConsumes   EdgeKind = "consumes"
	EdgeWaitsOn    EdgeKind = "waits_on"
	EdgeBlockedBy  EdgeKind = "blocked_by"
)

// NodeID uniquely identifies a graph vertex.
type NodeID struct {
	Kind NodeKind
	ID   string
}

// Node is a vertex in the causal state graph.
type Node struct {
	Kind      NodeKind          `json:"kind"`
	ID        string            `json:"id"`
	HostID    string            `json:"host_id"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Terminal  bool              `json:"terminal,omitempty"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	Kind      EdgeKind  `json:"kind"`
	From      NodeID    `json:"from"`
	To        NodeID    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}
