package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerClientPingRoundTrip(t *testing.T) {
	handler := func(ctx context.Context, req Request) (any, error) {
		if req.Method != MethodPing {
			return nil, assert.AnError
		}
		return map[string]string{"status": "ok"}, nil
	}

	srv := NewServer("", "127.0.0.1:0", handler)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client := NewClient("", srv.listener.Addr().String())

	var out map[string]string
	require.NoError(t, waitForServer(client))
	require.NoError(t, client.Call(Request{Method: MethodPing}, &out))
	assert.Equal(t, "ok", out["status"])
}

func waitForServer(c *Client) error {
	var lastErr error
	for i := 0; i < 20; i++ {
		if err := c.Ping(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return lastErr
}
