package hub

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"ark/internal/logger"
	"ark/pkg/models"
)

// AgentSession is the agent-side counterpart to handleAgentSession: it
// dials the hub, forwards local events upstream, and applies any intents
// the hub forwards back down through the given executor.
type AgentSession struct {
	hubURL string
	hostID string
}

// Executor applies an action intent locally. internal/action.Dispatcher
// satisfies this via its Dispatch method's signature match.
type Executor interface {
	Dispatch(intent models.ActionIntent) models.ActionResult
}

// NewAgentSession builds a session that will connect to hubURL
// (ws://host:port/agent/ws) as hostID.
func NewAgentSession(hubURL, hostID string) *AgentSession {
	return &AgentSession{hubURL: hubURL, hostID: hostID}
}

// Run dials the hub and pumps events from the given channel upstream while
// applying downstream intents via executor, reconnecting with the same
// bounded-backoff discipline internal/ingest.Adapter uses for probes, until
// ctx is cancelled.
func (s *AgentSession) Run(ctx context.Context, events <-chan models.Event, executor Executor, minBackoff, maxBackoff time.Duration) {
	backoff := minBackoff

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		if err := s.runOnce(ctx, events, executor); err != nil {
			logger.Warnf("hub client: session to %s failed: %v", s.hubURL, err)
		}

		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *AgentSession) runOnce(ctx context.Context, events <-chan models.Event, executor Executor) error {
	u, err := url.Parse(s.hubURL)
	if err != nil {
		return fmt.Errorf("parse hub url: %w", err)
	}
	q := u.Query()
	q.Set("host_id", s.hostID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	logger.Infof("hub client: connected to %s as %s", s.hubURL, s.hostID)

	done := make(chan struct{})
	go s.readIntents(conn, executor, done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return fmt.Errorf("hub connection closed")
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(sessionMessage{Kind: "event", Event: &ev}); err != nil {
				return fmt.Errorf("send event: %w", err)
			}
		}
	}
}

func (s *AgentSession) readIntents(conn *websocket.Conn, executor Executor, done chan<- struct{}) {
	defer close(done)
	for {
		var msg sessionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Kind != "intent" || msg.Intent == nil {
			continue
		}
		if executor != nil {
			executor.Dispatch(*msg.Intent)
		}
	}
}
