package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig is the root configuration for cmd/agentd.
type AgentConfig struct {
	Agent AgentSection `yaml:"agent"`
}

// AgentSection groups every agent-side subsystem.
type AgentSection struct {
	HostID  string        `yaml:"host_id"`
	Probes  []ProbeConfig `yaml:"probes"`
	Bus     BusConfig     `yaml:"bus"`
	Graph   GraphConfig   `yaml:"graph"`
	Rules   RulesConfig   `yaml:"rules"`
	IPC     IPCConfig     `yaml:"ipc"`
	Hub     HubForward    `yaml:"hub"`
	Action  ActionConfig  `yaml:"action"`
	Logging LoggingConfig `yaml:"logging"`
}

// ActionConfig controls the action dispatcher's audit trail.
type ActionConfig struct {
	AuditLogPath    string `yaml:"audit_log_path"`
	AuditMaxSizeMiB int64  `yaml:"audit_max_size_mib"`
}

// ProbeConfig describes one supervised probe subprocess.
type ProbeConfig struct {
	Name          string        `yaml:"name"`
	Command       string        `yaml:"command"`
	Args          []string      `yaml:"args"`
	RestartMin    time.Duration `yaml:"restart_backoff_min"`
	RestartMax    time.Duration `yaml:"restart_backoff_max"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// BusConfig controls the bounded event bus.
type BusConfig struct {
	Capacity int `yaml:"capacity"`
}

// GraphConfig controls state graph windows and sweeping.
type GraphConfig struct {
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	ErrorWindow      time.Duration `yaml:"error_window"`
	ProcessGrace     time.Duration `yaml:"process_grace"`
	ResourceWindow   time.Duration `yaml:"resource_window"`
	RootCauseMaxHops int           `yaml:"root_cause_max_hops"`
	QDepthThreshold  float64       `yaml:"qdepth_threshold"`
}

// RulesConfig controls the declarative rule engine.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IPCConfig controls the local ps/why/diag transport.
type IPCConfig struct {
	SocketPath      string `yaml:"socket_path"`
	TCPFallbackAddr string `yaml:"tcp_fallback_addr"`
}

// HubForward controls the optional agent-to-hub duplex session.
type HubForward struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	ReconnectMin  time.Duration `yaml:"reconnect_backoff_min"`
	ReconnectMax  time.Duration `yaml:"reconnect_backoff_max"`
	SendBatchSize int           `yaml:"send_batch_size"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// HubConfig is the root configuration for cmd/hubd.
type HubConfig struct {
	Hub HubSection `yaml:"hub"`
}

// HubSection groups every hub-side subsystem.
type HubSection struct {
	ListenAddr     string        `yaml:"listen_addr"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	Rules          RulesConfig   `yaml:"rules"`
	DirtyIndex     RedisConfig   `yaml:"dirty_index"`
	Logging        LoggingConfig `yaml:"logging"`
}

// RedisConfig controls the Redis-backed dirty-vertex index.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// LoadAgentConfig reads and parses an agent YAML config file, then fills
// the zero-valued fields that applyAgentDefaults has a default for.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}

	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}

	applyAgentDefaults(&cfg)
	return &cfg, nil
}

// LoadHubConfig reads and parses a hub YAML config file, then fills the
// zero-valued fields that applyHubDefaults has a default for.
func LoadHubConfig(path string) (*HubConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hub config: %w", err)
	}

	var cfg HubConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hub config: %w", err)
	}

	applyHubDefaults(&cfg)
	return &cfg, nil
}

func applyAgentDefaults(cfg *AgentConfig) {
	if cfg.Agent.HostID == "" {
		if hn, err := os.Hostname(); err == nil {
			cfg.Agent.HostID = hn
		} else {
			cfg.Agent.HostID = "unknown-host"
		}
	}

	if cfg.Agent.Bus.Capacity <= 0 {
		cfg.Agent.Bus.Capacity = 10000
	}

	if cfg.Agent.Graph.SweepInterval <= 0 {
		cfg.Agent.Graph.SweepInterval = time.Second
	}
	if cfg.Agent.Graph.ErrorWindow <= 0 {
		cfg.Agent.Graph.ErrorWindow = 300 * time.Second
	}
	if cfg.Agent.Graph.ProcessGrace <= 0 {
		cfg.Agent.Graph.ProcessGrace = 10 * time.Minute
	}
	if cfg.Agent.Graph.ResourceWindow <= 0 {
		cfg.Agent.Graph.ResourceWindow = 300 * time.Second
	}
	if cfg.Agent.Graph.RootCauseMaxHops <= 0 {
		cfg.Agent.Graph.RootCauseMaxHops = 8
	}
	if cfg.Agent.Graph.QDepthThreshold <= 0 {
		cfg.Agent.Graph.QDepthThreshold = 100.0
	}

	if cfg.Agent.Rules.Path == "" {
		cfg.Agent.Rules.Path = "rules"
	}

	if cfg.Agent.IPC.SocketPath == "" {
		cfg.Agent.IPC.SocketPath = "/var/run/ark.sock"
	}
	if cfg.Agent.IPC.TCPFallbackAddr == "" {
		cfg.Agent.IPC.TCPFallbackAddr = "127.0.0.1:7717"
	}

	if cfg.Agent.Hub.ReconnectMin <= 0 {
		cfg.Agent.Hub.ReconnectMin = time.Second
	}
	if cfg.Agent.Hub.ReconnectMax <= 0 {
		cfg.Agent.Hub.ReconnectMax = 30 * time.Second
	}
	if cfg.Agent.Hub.SendBatchSize <= 0 {
		cfg.Agent.Hub.SendBatchSize = 200
	}

	if cfg.Agent.Action.AuditLogPath == "" {
		cfg.Agent.Action.AuditLogPath = "/var/log/ark/audit.log"
	}

	for i := range cfg.Agent.Probes {
		p := &cfg.Agent.Probes[i]
		if p.RestartMin <= 0 {
			p.RestartMin = time.Second
		}
		if p.RestartMax <= 0 {
			p.RestartMax = 30 * time.Second
		}
		if p.ShutdownGrace <= 0 {
			p.ShutdownGrace = 5 * time.Second
		}
	}

	if cfg.Agent.Logging.Level == "" {
		cfg.Agent.Logging.Level = "info"
	}
}

func applyHubDefaults(cfg *HubConfig) {
	if cfg.Hub.ListenAddr == "" {
		cfg.Hub.ListenAddr = ":8443"
	}
	if cfg.Hub.SessionTimeout <= 0 {
		cfg.Hub.SessionTimeout = 90 * time.Second
	}
	if cfg.Hub.Rules.Path == "" {
		cfg.Hub.Rules.Path = "rules"
	}

	if cfg.Hub.DirtyIndex.Addr == "" {
		cfg.Hub.DirtyIndex.Addr = "127.0.0.1:6379"
	}
	if cfg.Hub.DirtyIndex.KeyPrefix == "" {
		cfg.Hub.DirtyIndex.KeyPrefix = "ark:dirty"
	}
	if cfg.Hub.DirtyIndex.BlockTimeout <= 0 {
		cfg.Hub.DirtyIndex.BlockTimeout = 5 * time.Second
	}

	if cfg.Hub.Logging.Level == "" {
		cfg.Hub.Logging.Level = "info"
	}
}
