package models

import "time"

// Kind is one of the twelve atomic event kinds carried on the bus.
type Kind string

const (
	KindComputeUtil   Kind = "compute.util"
	KindComputeMem    Kind = "compute.mem"
	KindTransportBw   Kind = "transport.bw"
	KindTransportDrop Kind = "transport.drop"
	KindStorageIops   Kind = "storage.iops"
	KindStorageQDepth Kind = "storage.qdepth"
	KindProcessState  Kind = "process.state"
	KindErrorHw       Kind = "error.hw"
	KindErrorNet      Kind = "error.net"
	KindTopoLinkDown  Kind = "topo.link_down"
	KindIntentRun     Kind = "intent.run"
	KindActionExec    Kind = "action.exec"
)

// Event is the single wire/in-memory representation every probe adapter,
// the bus, the graph, and the hub forwarder pass around.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      Kind      `json:"event_type"`
	EntityID  string    `json:"entity_id"`
	JobID     string    `json:"job_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Value     string    `json:"value"`
	NodeID    string    `json:"node_id,omitempty"`
}

// Namespaced returns a copy of e with NodeID set to hostID. The agent's hub
// forwarder does not call it; the hub takes the sending host from the
// session's host_id query parameter.
func (e Event) Namespaced(hostID string) Event {
	e.NodeID = hostID
	return e
}
