package models

import "time"

// PsEntry is one row of a `ps` query response: a live process node plus its
// immediate causal neighborhood.
type PsEntry struct {
	PID        string    `json:"pid"`
	HostID     string    `json:"host_id"`
	State      string    `json:"state"`
	LastSeen   time.Time `json:"last_seen"`
	WaitsOn    []string  `json:"waits_on,omitempty"`
	BlockedBy  []string  `json:"blocked_by,omitempty"`
	Consumes   []string  `json:"consumes,omitempty"`
}

// SolutionStep is one recommended remediation step surfaced verbatim from
// the highest-priority matching rule.
type SolutionStep struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Command string `json:"command,omitempty"`
	Manual  bool   `json:"manual"`
}

// WhyResult is the response to a `why <pid>` query: the reverse-DFS root
// cause chain from a stalled process back to its origin. NotFound is set
// instead of populating the rest of the fields when the pid names no known
// process node.
type WhyResult struct {
	PID           string         `json:"pid"`
	NotFound      bool           `json:"not_found,omitempty"`
	RootCauses    []NodeID       `json:"root_causes,omitempty"`
	Chain         []NodeID       `json:"chain,omitempty"`
	Scenes        []SceneReport  `json:"scenes,omitempty"`
	Scene         string         `json:"scene,omitempty"`
	SolutionSteps []SolutionStep `json:"solution_steps,omitempty"`
	TruncatedHops bool           `json:"truncated_hops,omitempty"`
}

// DiagResult is the response to a `diag <pid>` query: a `why` result plus a
// bounded adjacency excerpt suitable for handing to an external diagnostic
// caller.
type DiagResult struct {
	Why           WhyResult `json:"why"`
	Nodes         []Node    `json:"nodes"`
	Edges         []Edge    `json:"edges"`
	EventKinds    []Kind    `json:"event_kinds_referenced,omitempty"`
	NodesTruncated bool     `json:"nodes_truncated,omitempty"`
}
