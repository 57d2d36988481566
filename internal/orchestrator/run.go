package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/result"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

// Run is the core's single entrypoint: cmd/mcpfuzzer builds a config.Config
// and a transport.Driver (and discovers tools via "tools/list" against it)
// and hands both here. Run wires the seed pool, safety filter, executor,
// result aggregation, and dispatches every orchestrator specialization
// cfg.Fuzz.Mode calls for. Config.Mode "protocol" and "all" both fuzz the
// batch orchestrator too, since batch composition is just protocol
// envelopes grouped together and there is no separate "batch" mode.
func Run(ctx context.Context, cfg config.Config, driver transport.Driver, tools []mutate.ToolDescriptor, extraSinks ...Sink) (*result.Aggregator, error) {
	agg := result.NewAggregator()
	metrics := result.GetMetrics()

	sink := func(r *result.Result) {
		agg.Ingest(r)
		metrics.Observe(r)
		for _, s := range extraSinks {
			if s != nil {
				s(r)
			}
		}
	}

	var filter *safety.Filter
	if cfg.Safety.Enabled {
		var sandbox *safety.Sandbox
		if cfg.Safety.FSRoot != "" {
			var err error
			sandbox, err = safety.NewSandbox(cfg.Safety.FSRoot)
			if err != nil {
				return nil, err
			}
		}
		filter = safety.NewFilter(sandbox)
	}

	if err := driver.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := driver.Disconnect(ctx); err != nil {
			log.Debug().Err(err).Msg("transport disconnect failed")
		}
	}()

	pool := seedpool.New(seedpool.DefaultCapacity, 1)
	exec := executor.New(cfg.Fuzz.MaxConcurrency)
	defer exec.Shutdown(cfg.Transport.Timeout())

	toolTimeout := cfg.Fuzz.ToolTimeout(cfg.Transport.Timeout())
	o := New(driver, filter, pool, exec, sink, toolTimeout)
	gen := schema.New(1)

	ph := phasesFor(cfg.Fuzz.Phase)

	if cfg.Fuzz.Mode == config.ModeTools || cfg.Fuzz.Mode == config.ModeAll {
		runner := NewToolRunner(o, gen, 1)
		for _, tool := range tools {
			for _, phase := range ph {
				log.Info().Str("tool", tool.Name).Str("phase", phase.String()).Msg("fuzzing tool")
				runner.Run(ctx, tool, cfg.Fuzz.Runs, phase)
			}
		}
	}

	if cfg.Fuzz.Mode == config.ModeProtocol || cfg.Fuzz.Mode == config.ModeAll {
		protoRunner := NewProtocolRunner(o, gen, 2)
		batchRunner := NewBatchRunner(o, gen, 3)
		for _, kind := range mutate.AllKinds {
			for _, phase := range ph {
				log.Info().Str("kind", string(kind)).Str("phase", phase.String()).Msg("fuzzing protocol kind")
				protoRunner.Run(ctx, kind, cfg.Fuzz.RunsPerType, phase, cfg.Fuzz.GenerateOnly)
			}
		}
		for _, phase := range ph {
			log.Info().Str("phase", phase.String()).Msg("fuzzing batch envelopes")
			batchRunner.Run(ctx, nil, cfg.Fuzz.RunsPerType, phase)
		}
	}

	return agg, nil
}

func phasesFor(p config.FuzzPhase) []schema.Phase {
	switch p {
	case config.PhaseRealistic:
		return phases(true, false)
	case config.PhaseAggressive:
		return phases(false, true)
	default:
		return phases(true, true)
	}
}
