package hub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ark/internal/logger"
	"ark/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
}

// sessionMessage is the duplex frame shape flowing over an agent's
// websocket: "event" upstream (agent -> hub) and "intent" downstream
// (hub -> agent, e.g. a fix dispatched from the HTTP API that the hub
// wants the owning agent to execute locally).
type sessionMessage struct {
	Kind   string              `json:"kind"`
	Event  *models.Event       `json:"event,omitempty"`
	Intent *models.ActionIntent `json:"intent,omitempty"`
}

// handleAgentSession upgrades one agent connection to a websocket and pumps
// inbound events into that host's graph on a read goroutine while a write
// goroutine drains an outbound intent queue — the same read/write split the
// teacher uses for its Redis pipeline goroutines
// (RedisAdjacencyPipeline.Run), adapted from a channel-fed worker to a
// socket-fed one, and grounded on
// jinterlante1206-AleutianLocal's HandleChatWebSocket for the
// gin-handler-returns-a-websocket-loop shape.
func (h *Hub) handleAgentSession(c *gin.Context) {
	hostID := c.Query("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host_id query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("hub: websocket upgrade failed for host %s: %v", hostID, err)
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.HubConnections.Inc()
		defer h.metrics.HubConnections.Dec()
	}

	logger.Infof("hub: agent session started for host %s", hostID)

	outbound := make(chan models.ActionIntent, 32)
	h.registerSession(hostID, outbound)
	defer h.unregisterSession(hostID)
	defer h.scheduleSubgraphClear(hostID)

	done := make(chan struct{})
	go h.writePump(conn, outbound, done)
	h.readPump(conn, hostID, done)
}

// subgraphClearDelay is how long a dropped session's subgraph survives
// before eviction, giving the agent a window to reconnect without losing
// state — spec.md's "dropped sessions clear the owning host's subgraph
// after a fixed timeout (default 60s)".
const subgraphClearDelay = 60 * time.Second

func (h *Hub) scheduleSubgraphClear(hostID string) {
	go func() {
		time.Sleep(subgraphClearDelay)
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, stillConnected := h.sessions[hostID]; stillConnected {
			return
		}
		delete(h.hosts, hostID)
		logger.Infof("hub: cleared subgraph for host %s after %s with no session", hostID, subgraphClearDelay)
	}()
}

func (h *Hub) readPump(conn *websocket.Conn, hostID string, done chan struct{}) {
	defer close(done)
	for {
		var msg sessionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			logger.Infof("hub: agent session for host %s closed: %v", hostID, err)
			return
		}
		if msg.Kind != "event" || msg.Event == nil {
			continue
		}
		h.applyEvent(hostID, *msg.Event)
	}
}

func (h *Hub) writePump(conn *websocket.Conn, outbound <-chan models.ActionIntent, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case intent := <-outbound:
			if err := conn.WriteJSON(sessionMessage{Kind: "intent", Intent: &intent}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) registerSession(hostID string, outbound chan models.ActionIntent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions == nil {
		h.sessions = make(map[string]chan models.ActionIntent)
	}
	h.sessions[hostID] = outbound
}

func (h *Hub) unregisterSession(hostID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, hostID)
}

// SendIntent queues intent for delivery to hostID's connected agent, if
// any. Returns false if that host has no live session.
func (h *Hub) SendIntent(hostID string, intent models.ActionIntent) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ch, ok := h.sessions[hostID]
	if !ok {
		return false
	}
	select {
	case ch <- intent:
		return true
	default:
		return false
	}
}
