// Package hub aggregates per-host causal state graphs into one cluster-wide
// view: agents connect over a websocket, the hub merges their subgraphs
// namespaced by host, and answers ps/why/diag/fix over an HTTP API,
// grounded on original_source/hub/src/main.rs's connection-and-aggregation
// loop but implemented as gin handlers instead of a bare tokio TCP server.
package hub

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ark/internal/graph"
	"ark/internal/logger"
	"ark/internal/metrics"
	"ark/internal/query"
	"ark/internal/rules"
	"ark/internal/scenes"
	"ark/pkg/models"
)

// Hub aggregates one Graph and query Engine per connected host, kept in a
// map keyed by hostID; node ids inside each per-host Graph carry no host
// prefix.
type Hub struct {
	mu       sync.RWMutex
	hosts    map[string]*hostState
	sessions map[string]chan models.ActionIntent
	rules    *rules.Engine
	dirty    *DirtyIndex
	metrics  *metrics.Collector
}

type hostState struct {
	graph  *graph.Graph
	engine *query.Engine
}

// New builds an empty Hub. rulesEngine and dirty may be nil to disable
// rule-based causes and dirty-vertex tracking respectively. Action
// execution itself stays on the agent side (internal/action): the hub only
// forwards a fix intent to the owning host's live session.
func New(rulesEngine *rules.Engine, dirty *DirtyIndex, coll *metrics.Collector) *Hub {
	return &Hub{
		hosts:   make(map[string]*hostState),
		rules:   rulesEngine,
		dirty:   dirty,
		metrics: coll,
	}
}

func (h *Hub) hostFor(hostID string) *hostState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.hosts[hostID]
	if !ok {
		g := graph.New(hostID)
		st = &hostState{
			graph:  g,
			engine: query.New(g, h.rules, scenes.NewRegistry(), 32, 500),
		}
		h.hosts[hostID] = st
	}
	return st
}

func (h *Hub) applyEvent(hostID string, ev models.Event) {
	st := h.hostFor(hostID)
	st.graph.ApplyEvent(ev)
	st.engine.RecordEvent(ev)
	if h.dirty != nil && ev.PID != 0 {
		h.dirty.MarkDirty(hostID, pidLabel(ev.PID))
	}
	if h.metrics != nil {
		h.metrics.EventsProcessed.WithLabelValues(string(ev.Kind)).Inc()
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

// Router builds the gin engine serving the hub's HTTP/websocket API.
func (h *Hub) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/agent/ws", h.handleAgentSession)

	v1 := r.Group("/api/v1")
	v1.GET("/ps", h.handlePS)
	v1.GET("/why/:host/:pid", h.handleWhy)
	v1.GET("/diag/:host/:pid", h.handleDiag)
	v1.POST("/fix/:host", h.handleFix)
	v1.GET("/dirty/:host", h.handleDirty)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))
	}

	return r
}

func (h *Hub) handlePS(c *gin.Context) {
	host := c.Query("host")

	h.mu.RLock()
	defer h.mu.RUnlock()

	if host != "" {
		st, ok := h.hosts[host]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown host"})
			return
		}
		c.JSON(http.StatusOK, gin.H{host: st.engine.PS()})
		return
	}

	out := make(map[string][]models.PsEntry, len(h.hosts))
	for id, st := range h.hosts {
		out[id] = st.engine.PS()
	}
	c.JSON(http.StatusOK, out)
}

func (h *Hub) handleWhy(c *gin.Context) {
	host := c.Param("host")
	pid, ok := parsePID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return
	}

	st, ok := h.hostByID(host)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown host"})
		return
	}
	c.JSON(http.StatusOK, st.engine.Why(pid))
}

func (h *Hub) handleDiag(c *gin.Context) {
	host := c.Param("host")
	pid, ok := parsePID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return
	}

	st, ok := h.hostByID(host)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown host"})
		return
	}
	c.JSON(http.StatusOK, st.engine.Diag(pid))
}

// handleFix forwards a fix intent to the owning host's connected agent,
// which executes it locally via internal/action — the hub never signals a
// pid itself, since the pid it sees belongs to a remote host's process
// table.
func (h *Hub) handleFix(c *gin.Context) {
	host := c.Param("host")
	var intent models.ActionIntent
	if err := c.BindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.SendIntent(host, intent) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session for host"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "dispatched"})
}

func (h *Hub) handleDirty(c *gin.Context) {
	if h.dirty == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dirty index disabled"})
		return
	}
	host := c.Param("host")
	sinceParam := c.DefaultQuery("since", "0")
	since, ok := parseUnixSeconds(sinceParam)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
		return
	}
	vertices, err := h.dirty.FetchDirtySince(c.Request.Context(), host, since, 1000)
	if err != nil {
		logger.Warnf("hub: dirty index query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vertices)
}

func (h *Hub) hostByID(id string) (*hostState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.hosts[id]
	return st, ok
}
