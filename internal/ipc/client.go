package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client is a thin RPC client used by the ark CLI to query a running
// agentd, grounded on original_source/agent/src/ipc.rs's IpcClient.
type Client struct {
	socketPath string
	tcpAddr    string
	dialTimeout time.Duration
}

// NewClient builds a Client that tries the Unix socket first and falls
// back to tcpAddr, matching Server's own fallback choice.
func NewClient(socketPath, tcpAddr string) *Client {
	return &Client{socketPath: socketPath, tcpAddr: tcpAddr, dialTimeout: 5 * time.Second}
}

func (c *Client) dial() (net.Conn, error) {
	if c.socketPath != "" {
		conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
		if err == nil {
			return conn, nil
		}
	}
	return net.DialTimeout("tcp", c.tcpAddr, c.dialTimeout)
}

// Call sends req and decodes the response's data payload into out.
func (c *Client) Call(req Request, out any) error {
	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("connect to agent: %w", err)
	}
	defer conn.Close()

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := writeFrame(conn, body); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	respBytes, err := readFrame(conn, MaxResponseSize)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("agent error: %s", resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// ListProcesses queries the agent's ps table.
func (c *Client) ListProcesses(processes any) error {
	return c.Call(Request{Method: MethodListProcesses}, processes)
}

// WhyProcess queries why pid is stalled.
func (c *Client) WhyProcess(pid int, result any) error {
	return c.Call(Request{Method: MethodWhyProcess, PID: pid}, result)
}

// Diag queries the bounded diagnostic excerpt for pid.
func (c *Client) Diag(pid int, result any) error {
	return c.Call(Request{Method: MethodDiag, PID: pid}, result)
}

// Ping checks agent liveness.
func (c *Client) Ping() error {
	return c.Call(Request{Method: MethodPing}, nil)
}
