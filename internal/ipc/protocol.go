// Package ipc implements the local length-prefixed JSON RPC transport
// between the agent daemon and the ark CLI, ported from
// original_source/agent/src/ipc.rs's IpcServer/IpcClient.
package ipc

import (
	"encoding/json"

	"ark/pkg/models"
)

// MaxRequestSize bounds an inbound request frame; a client sending more is
// rejected without ever allocating a buffer for the full claimed length.
const MaxRequestSize = 10 * 1024 * 1024

// MaxResponseSize bounds an inbound response frame read by the client.
const MaxResponseSize = 100 * 1024 * 1024

// Method names the RPC call, mirroring the Rust source's
// #[serde(tag = "method")] enum.
type Method string

const (
	MethodListProcesses Method = "list_processes"
	MethodWhyProcess     Method = "why_process"
	MethodDiag           Method = "diag"
	MethodExecuteAction  Method = "execute_action"
	MethodPing           Method = "ping"
)

// Request is one RPC call frame.
type Request struct {
	Method Method              `json:"method"`
	PID    int                 `json:"pid,omitempty"`
	Action *models.ActionIntent `json:"action,omitempty"`
}

// Response is one RPC reply frame.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
