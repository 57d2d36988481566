// Command mcpfuzzer is the thin CLI collaborator around the core: it
// parses flags, loads configuration, builds a transport driver, discovers
// tools, and hands both to orchestrator.Run. None of this is part of the
// four core subsystems (spec.md §1) — it exists only to drive them from a
// terminal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
	"github.com/rcourtman/mcp-fuzzer/internal/logging"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/orchestrator"
	"github.com/rcourtman/mcp-fuzzer/internal/result"
)

// Version information, set at build time with -ldflags the way cmd/pulse's
// Version/BuildTime/GitCommit are.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:     "mcpfuzzer",
	Short:   "mcpfuzzer - protocol-level fuzzer for MCP servers",
	Long:    "mcpfuzzer drives a Model Context Protocol server through its tool, protocol, and batch surface, reporting invariant violations.",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFuzz(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcpfuzzer %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.Flags().String("transport", "", "transport kind override (http, streamhttp, sse, stdio)")
	rootCmd.Flags().String("endpoint", "", "transport endpoint override")
	rootCmd.Flags().String("mode", "", "fuzz mode override (tools, protocol, all)")
	rootCmd.Flags().String("phase", "", "fuzz phase override (realistic, aggressive, both)")
	rootCmd.Flags().Int("runs", 0, "per-tool run count override")
	rootCmd.Flags().Int("runs-per-type", 0, "per-protocol-kind run count override")
	rootCmd.Flags().Int("concurrency", 0, "max concurrency override")
	rootCmd.Flags().Bool("generate-only", false, "skip sending protocol envelopes, only generate and record them")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFuzz loads config, wires the driver and result hub, runs discovery
// (for transports that support tools/list) and hands everything to
// orchestrator.Run, the core's single entrypoint.
func runFuzz(ctx context.Context) error {
	logging.Init(logging.Config{Format: logFormat, Level: logLevel, Component: "mcpfuzzer"})

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(&cfg, rootCmd.Flags())

	driver, stopDriver, err := buildDriver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building transport driver: %w", err)
	}
	defer stopDriver()

	hub := result.NewHub()
	stopMetrics := maybeServeMetrics(cfg.MetricsAddr, hub)
	defer stopMetrics()

	// Connect is idempotent (spec.md §4.6): discovery needs the driver
	// connected, and orchestrator.Run connects again before fuzzing and
	// owns the matching Disconnect.
	if err := driver.Connect(ctx); err != nil {
		return fmt.Errorf("connecting transport: %w", err)
	}

	var tools []mutate.ToolDescriptor
	if cfg.Fuzz.Mode == config.ModeTools || cfg.Fuzz.Mode == config.ModeAll {
		discovered, err := orchestrator.DiscoverTools(ctx, driver)
		if err != nil {
			log.Warn().Err(err).Msg("tool discovery failed, continuing with protocol/batch fuzzing only")
		} else {
			log.Info().Int("count", len(discovered)).Msg("discovered tools")
			tools = discovered
		}
	}

	agg, err := orchestrator.Run(ctx, cfg, driver, tools, hub.Broadcast)
	if err != nil {
		return fmt.Errorf("running orchestrator: %w", err)
	}
	return reportSummary(agg)
}

// reportSummary prints the final aggregate the way spec.md §6.4 describes
// it. Rendering belongs to a report formatter collaborator (out of core
// scope); this is the CLI's bare-minimum terminal echo.
func reportSummary(agg *result.Aggregator) error {
	overall := agg.Overall()
	log.Info().Int("total_runs", overall.TotalRuns).Int("successes", overall.Successes).
		Float64("success_rate", overall.SuccessRate).Msg("fuzz run complete")
	for _, t := range agg.ToolSummaries() {
		log.Info().Str("tool", t.Tool).Int("total_runs", t.TotalRuns).Int("successes", t.Successes).
			Int("safety_blocked", t.SafetyBlocked).Int("safety_sanitized", t.SafetySanitized).
			Int("exceptions", t.Exceptions).Msg("tool summary")
	}
	for _, p := range agg.ProtocolSummaries() {
		log.Info().Str("kind", p.Kind).Int("total_runs", p.TotalRuns).
			Int("invariant_violations", p.InvariantViolations).Int("server_rejections", p.ServerRejections).
			Int("exceptions", p.Exceptions).Msg("protocol summary")
	}
	return nil
}

// maybeServeMetrics starts a Prometheus /metrics and websocket /stream
// endpoint on addr when non-empty, the way cmd/pulse's metrics_server.go
// runs a sibling HTTP server alongside the main process. Returns a stop
// func that is always safe to call.
func maybeServeMetrics(addr string, hub *result.Hub) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/stream", hub)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
