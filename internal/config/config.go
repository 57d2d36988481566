// Package config defines the plain configuration struct the core
// consumes. It contains no parsing logic: YAML/env loading and flag
// binding are a collaborator's job (cmd/mcpfuzzer), not the core's.
package config

import "time"

// TransportKind selects which driver the orchestrator drives.
type TransportKind string

const (
	TransportHTTP       TransportKind = "http"
	TransportStreamHTTP TransportKind = "streamhttp"
	TransportSSE        TransportKind = "sse"
	TransportStdio      TransportKind = "stdio"
)

// FuzzMode selects which orchestrator(s) run.
type FuzzMode string

const (
	ModeTools    FuzzMode = "tools"
	ModeProtocol FuzzMode = "protocol"
	ModeAll      FuzzMode = "all"
)

// FuzzPhase selects generation phase(s).
type FuzzPhase string

const (
	PhaseRealistic  FuzzPhase = "realistic"
	PhaseAggressive FuzzPhase = "aggressive"
	PhaseBoth       FuzzPhase = "both"
)

// Transport configures the driver the orchestrator talks through.
type Transport struct {
	Kind      TransportKind
	Endpoint  string
	TimeoutMS int

	// Stdio-only: the child process to spawn and supervise.
	Command []string
}

// Fuzz configures run volume, mode, and phase.
type Fuzz struct {
	Mode           FuzzMode
	Phase          FuzzPhase
	Runs           int
	RunsPerType    int
	MaxConcurrency int
	ToolTimeoutMS  int
	GenerateOnly   bool
}

// Safety configures the gating pipeline: dangerous-pattern detection,
// the filesystem sandbox, and the outbound host allow-list.
type Safety struct {
	Enabled              bool
	FSRoot               string
	AllowedHosts         []string
	NoNetwork            bool
	EnableSystemBlocking bool
}

// Watchdog configures the process supervisor's watchdog thresholds.
type Watchdog struct {
	CheckIntervalMS  int
	ProcessTimeoutMS int
	ExtraBufferMS    int
	MaxHangTimeMS    int
	AutoKill         bool
}

// Auth is an opaque pass-through the transport attaches to outgoing
// headers. The core never interprets it.
type Auth map[string]string

// Config is the single struct the core's Run entrypoint accepts. Nothing
// here is populated by reading a file or the environment — that belongs
// to cmd/mcpfuzzer's loader.
type Config struct {
	Transport Transport
	Fuzz      Fuzz
	Safety    Safety
	Watchdog  Watchdog
	Auth      Auth

	// MetricsAddr, when non-empty, exposes internal/result's Prometheus
	// registry on this address — an ambient-stack addition the result
	// builder needs a home for.
	MetricsAddr string
}

// Default returns a Config with every documented default applied: a 30s
// transport timeout, concurrency of 5, the watchdog's documented
// thresholds, and (via internal/seedpool's own default) a seed pool
// capacity of 256.
func Default() Config {
	return Config{
		Transport: Transport{Kind: TransportHTTP, TimeoutMS: int(30 * time.Second / time.Millisecond)},
		Fuzz: Fuzz{
			Mode:           ModeAll,
			Phase:          PhaseBoth,
			Runs:           10,
			RunsPerType:    10,
			MaxConcurrency: 5,
		},
		Safety: Safety{
			Enabled:      true,
			FSRoot:       "/tmp/mcp-fuzzer-sandbox",
			AllowedHosts: []string{"localhost", "127.0.0.1", "::1"},
		},
		Watchdog: Watchdog{
			CheckIntervalMS:  1000,
			ProcessTimeoutMS: 30_000,
			ExtraBufferMS:    10_000,
			MaxHangTimeMS:    60_000,
			AutoKill:         true,
		},
	}
}

func (t Transport) Timeout() time.Duration {
	if t.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TimeoutMS) * time.Millisecond
}

func (f Fuzz) ToolTimeout(fallback time.Duration) time.Duration {
	if f.ToolTimeoutMS <= 0 {
		return fallback
	}
	return time.Duration(f.ToolTimeoutMS) * time.Millisecond
}

func (w Watchdog) CheckInterval() time.Duration  { return msOrDefault(w.CheckIntervalMS, 1*time.Second) }
func (w Watchdog) ProcessTimeout() time.Duration { return msOrDefault(w.ProcessTimeoutMS, 30*time.Second) }
func (w Watchdog) ExtraBuffer() time.Duration    { return msOrDefault(w.ExtraBufferMS, 10*time.Second) }
func (w Watchdog) MaxHangTime() time.Duration    { return msOrDefault(w.MaxHangTimeMS, 60*time.Second) }

func msOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
