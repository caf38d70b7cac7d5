package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ark/config"
	"ark/internal/action"
	"ark/internal/bus"
	"ark/internal/graph"
	"ark/internal/hub"
	"ark/internal/ingest"
	"ark/internal/ipc"
	"ark/internal/logger"
	"ark/internal/metrics"
	"ark/internal/query"
	"ark/internal/rules"
	"ark/internal/scenes"
	"ark/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat("agentd.yml"); err == nil {
		return "agentd.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "agentd.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "agentd.yml"
}

func main() {
	configArg := ""
	if len(os.Args) > 1 {
		configArg = os.Args[1]
	}
	configPath := findConfigFile(configArg)

	cfg, err := config.LoadAgentConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Agent.Logging.Enabled, cfg.Agent.Logging.Level, cfg.Agent.Logging.File, cfg.Agent.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("ark agent starting: host_id=%s", cfg.Agent.HostID)
	logger.Infof("Config loaded from: %s", configPath)

	coll := metrics.New()

	g := graph.New(cfg.Agent.HostID)
	g.SetQDepthThreshold(cfg.Agent.Graph.QDepthThreshold)

	var rulesEngine *rules.Engine
	if cfg.Agent.Rules.Enabled {
		re, stats, err := rules.Load(cfg.Agent.Rules.Path)
		if err != nil {
			logger.Errorf("Failed to load rules from %s: %v", cfg.Agent.Rules.Path, err)
			log.Fatalf("Failed to load rules: %v", err)
		}
		rulesEngine = re
		logger.Infof("rules loaded: loaded=%d skipped_invalid=%d files=%d", stats.Loaded, stats.SkippedInvalid, stats.TotalFiles)
	}

	sceneRegistry := scenes.NewRegistry()
	engine := query.New(g, rulesEngine, sceneRegistry, cfg.Agent.Graph.RootCauseMaxHops, 500)

	auditLog, err := action.OpenAuditLog(cfg.Agent.Action.AuditLogPath, cfg.Agent.Action.AuditMaxSizeMiB*1024*1024)
	if err != nil {
		logger.Errorf("Failed to open audit log at %s: %v", cfg.Agent.Action.AuditLogPath, err)
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer auditLog.Close()

	b := bus.New(cfg.Agent.Bus.Capacity)

	dispatcher := action.New(auditLog, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, probeCfg := range cfg.Agent.Probes {
		adapter := ingest.New(probeCfg, b)
		go adapter.Run(ctx)
		logger.Infof("probe supervised: %s (%s)", probeCfg.Name, probeCfg.Command)
	}

	var forward chan models.Event
	if cfg.Agent.Hub.Enabled {
		forward = make(chan models.Event, cfg.Agent.Hub.SendBatchSize)
		session := hub.NewAgentSession(cfg.Agent.Hub.URL, cfg.Agent.HostID)
		go session.Run(ctx, forward, dispatcher, cfg.Agent.Hub.ReconnectMin, cfg.Agent.Hub.ReconnectMax)
		logger.Infof("hub forwarding enabled: %s", cfg.Agent.Hub.URL)
	}

	go consumeEvents(ctx, b, g, engine, coll, forward)
	go sweepGraph(ctx, g, cfg.Agent.Graph.SweepInterval, cfg.Agent.Graph.ErrorWindow, cfg.Agent.Graph.ProcessGrace, cfg.Agent.Graph.ResourceWindow)

	handler := newHandler(engine, dispatcher)
	ipcServer := ipc.NewServer(cfg.Agent.IPC.SocketPath, cfg.Agent.IPC.TCPFallbackAddr, handler)
	if err := ipcServer.Listen(); err != nil {
		logger.Errorf("Failed to listen for ipc clients: %v", err)
		log.Fatalf("Failed to listen for ipc clients: %v", err)
	}
	go func() {
		if err := ipcServer.Serve(ctx); err != nil && err != context.Canceled {
			logger.Errorf("ipc server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(1 * time.Second)

	logger.Infof("ark agent stopped")
}

// consumeEvents is the sole writer into the causal state graph: it applies
// every bus event to the graph and query engine, and — when hub forwarding
// is enabled — mirrors it onto forward without ever blocking the local
// apply path on a slow or disconnected hub session.
func consumeEvents(ctx context.Context, b *bus.Bus, g *graph.Graph, engine *query.Engine, coll *metrics.Collector, forward chan<- models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.Events():
			if !ok {
				return
			}
			g.ApplyEvent(ev)
			engine.RecordEvent(ev)
			coll.EventsProcessed.WithLabelValues(string(ev.Kind)).Inc()

			if forward != nil {
				select {
				case forward <- ev:
				default:
					logger.Throttledf("agent.forward.full", "hub forward queue full, dropping event for %s", ev.EntityID)
				}
			}
		}
	}
}

func sweepGraph(ctx context.Context, g *graph.Graph, interval, errorWindow, processGrace, resourceWindow time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Sweep(now, errorWindow, processGrace, resourceWindow)
		}
	}
}

// newHandler adapts the query engine and action dispatcher to ipc.Handler,
// mirroring the method dispatch original_source/agent/src/ipc.rs's
// IpcServer::handle_request does over its RequestMethod enum.
func newHandler(engine *query.Engine, dispatcher *action.Dispatcher) ipc.Handler {
	return func(ctx context.Context, req ipc.Request) (any, error) {
		switch req.Method {
		case ipc.MethodListProcesses:
			return engine.PS(), nil
		case ipc.MethodWhyProcess:
			return engine.Why(req.PID), nil
		case ipc.MethodDiag:
			return engine.Diag(req.PID), nil
		case ipc.MethodExecuteAction:
			if req.Action == nil {
				return nil, fmt.Errorf("execute_action requires an action payload")
			}
			return dispatcher.Dispatch(*req.Action), nil
		case ipc.MethodPing:
			return json.RawMessage(`"pong"`), nil
		default:
			return nil, fmt.Errorf("unknown method: %s", req.Method)
		}
	}
}
