// Package metrics exposes the Prometheus counters, gauges, and histograms
// shared by the agent and hub daemons.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns one Prometheus registry and the metric families this
// system reports. A fresh Collector is created per daemon; the hub's is
// exposed over HTTP, the agent's is instrumented only (no HTTP surface is
// mandated for the agent by spec).
type Collector struct {
	Registry *prometheus.Registry

	GraphNodesTotal    *prometheus.GaugeVec
	GraphEdgesTotal    *prometheus.GaugeVec
	EventsProcessed    *prometheus.CounterVec
	EventsParseErrors  *prometheus.CounterVec
	ProcessWaitSeconds prometheus.Histogram
	DiagnosisLatency   prometheus.Histogram
	ActionsExecuted    *prometheus.CounterVec
	BusBlockedPublish  prometheus.Counter
	BusHighWaterMark   prometheus.Gauge
	HubConnections     prometheus.Gauge
}

// New builds a Collector and registers every metric family with a fresh
// registry, namespaced "ark" the way original_source/hub/src/metrics.rs
// namespaces everything "ark_hub_*".
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		GraphNodesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ark",
			Name:      "graph_nodes_total",
			Help:      "Current node count in the causal state graph, by node kind.",
		}, []string{"node_type"}),
		GraphEdgesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ark",
			Name:      "graph_edges_total",
			Help:      "Current edge count in the causal state graph, by edge kind.",
		}, []string{"edge_type"}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ark",
			Name:      "events_processed_total",
			Help:      "Events applied to the causal state graph, by event kind.",
		}, []string{"event_type"}),
		EventsParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ark",
			Name:      "events_parse_errors_total",
			Help:      "Probe lines that failed to parse as an event, by probe name.",
		}, []string{"probe"}),
		ProcessWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ark",
			Name:      "process_wait_seconds",
			Help:      "Observed WaitsOn edge age at query time, seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		DiagnosisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ark",
			Name:      "diagnosis_latency_seconds",
			Help:      "Wall-clock time to answer a why/diag query.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ark",
			Name:      "actions_executed_total",
			Help:      "Action-dispatcher intents executed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		BusBlockedPublish: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ark",
			Name:      "bus_blocked_publish_total",
			Help:      "Publish calls that had to block because the event bus was full.",
		}),
		BusHighWaterMark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ark",
			Name:      "bus_high_water_mark",
			Help:      "Highest observed event bus queue depth since startup.",
		}),
		HubConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ark",
			Name:      "hub_agent_connections",
			Help:      "Currently connected agent duplex sessions.",
		}),
	}

	reg.MustRegister(
		c.GraphNodesTotal,
		c.GraphEdgesTotal,
		c.EventsProcessed,
		c.EventsParseErrors,
		c.ProcessWaitSeconds,
		c.DiagnosisLatency,
		c.ActionsExecuted,
		c.BusBlockedPublish,
		c.BusHighWaterMark,
		c.HubConnections,
	)

	return c
}
