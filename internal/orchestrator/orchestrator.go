// Package orchestrator implements the three fuzz orchestrator
// specializations: tool, protocol, and batch. Each composes the same
// pattern — mutate, safety-gate, transport, invariant-check, result —
// over the bounded async executor (internal/executor).
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/result"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

// Sink receives every Result as it's produced, in completion order. It
// fans out to the aggregator, the Prometheus metrics, and the live
// results hub.
type Sink func(*result.Result)

// Orchestrator holds everything the three specializations share: the
// transport driver under test, the safety filter, the seed pool, and the
// bounded executor that gates concurrency across runs.
type Orchestrator struct {
	Driver     transport.Driver
	Filter     *safety.Filter
	Pool       *seedpool.Pool
	Exec       *executor.Executor
	Sink       Sink
	RunTimeout time.Duration
}

// New builds an Orchestrator. filter and pool may be nil to disable safety
// gating / seed reuse respectively.
func New(driver transport.Driver, filter *safety.Filter, pool *seedpool.Pool, exec *executor.Executor, sink Sink, runTimeout time.Duration) *Orchestrator {
	if sink == nil {
		sink = func(*result.Result) {}
	}
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	return &Orchestrator{Driver: driver, Filter: filter, Pool: pool, Exec: exec, Sink: sink, RunTimeout: runTimeout}
}

// classify buckets a failed send into one of three categories: a
// JSON-RPC error response the server itself returned is ServerError; a
// context deadline is Timeout; everything else (connection refused,
// malformed JSON, host denied) is TransportError.
func classify(err error) result.Classification {
	if err == nil {
		return result.ClassNone
	}
	if errors.Is(err, context.DeadlineExceeded) || fuzzerr.Is(err, fuzzerr.CategoryTimeout) {
		return result.ClassTimeout
	}
	if fuzzerr.Is(err, fuzzerr.CategoryServer) {
		return result.ClassServerError
	}
	return result.ClassTransportError
}

// runWithTimeout bounds op to o.RunTimeout, composed from the parent ctx
// so a batch-wide or orchestrator-wide cancellation still propagates.
func (o *Orchestrator) runWithTimeout(ctx context.Context, op func(context.Context) (interface{}, error)) (interface{}, time.Duration, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, o.RunTimeout)
	defer cancel()
	v, err := op(runCtx)
	return v, time.Since(start), err
}

// emit runs o.Sink and logs at debug, the one place every specialization's
// per-run result funnels through.
func (o *Orchestrator) emit(r *result.Result) {
	log.Debug().Str("kind", string(r.Kind)).Str("label", r.Label).Bool("success", r.Success).
		Int("run_index", r.RunIndex).Msg("fuzz result")
	o.Sink(r)
}

// phases returns the concrete schema.Phase values the two flags select,
// realistic before aggressive; with neither flag set it returns realistic
// alone. phasesFor maps a config.FuzzPhase onto these flags.
func phases(includeRealistic, includeAggressive bool) []schema.Phase {
	var out []schema.Phase
	if includeRealistic {
		out = append(out, schema.Realistic)
	}
	if includeAggressive {
		out = append(out, schema.Aggressive)
	}
	if len(out) == 0 {
		out = []schema.Phase{schema.Realistic}
	}
	return out
}

// seedOffer computes a dedup signature for (kind, payload) and offers it
// to the pool with a score favoring, in order: invariant violations
// first, then non-2xx server error codes, then novel shapes (novelty is
// implicit — Offer no-ops on a seen signature).
func seedOffer(pool *seedpool.Pool, kind string, violations []jsonrpc.Violation, errCode int, payload interface{}) {
	if pool == nil {
		return
	}
	var sigKey string
	score := 1
	switch {
	case len(violations) > 0:
		sigKey = violations[0].String()
		score = 3
	case errCode != 0:
		sigKey = jsonCode(errCode)
		score = 2
	default:
		sigKey = "ok"
	}
	sig := seedpool.Signature(kind, sigKey, payload)
	pool.Offer(sig, payload, score)
}

// responseErrorCode extracts a JSON-RPC error code from a response value
// for seed-pool scoring, or 0 when resp isn't an error response (or nil).
func responseErrorCode(resp interface{}) int {
	msg, ok := resp.(*jsonrpc.Message)
	if !ok || msg == nil || !msg.HasError() || msg.Error == nil {
		return 0
	}
	return msg.Error.Code
}

func jsonCode(code int) string {
	return "code:" + itoa(code)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// toolMutator, protocolMutator, and batchMutator are capability
// interfaces: each runner depends on the interface, not the concrete
// internal/mutate type, so tests can substitute a fixed sequence of
// envelopes without reimplementing generation.
type toolMutator interface {
	Mutate(tool mutate.ToolDescriptor, phase schema.Phase, runIndex int) (mutate.ToolCall, error)
}

type protocolMutator interface {
	Mutate(kind mutate.Kind, phase schema.Phase, runIndex int) (*jsonrpc.Message, error)
}

type batchMutator interface {
	Mutate(kinds []mutate.Kind, phase schema.Phase, runIndex int) ([]*jsonrpc.Message, error)
}

func newToolMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) toolMutator {
	return mutate.NewToolMutator(gen, pool, seed)
}

func newProtocolMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) protocolMutator {
	return mutate.NewProtocolMutator(gen, pool, seed)
}

func newBatchMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) batchMutator {
	return mutate.NewBatchMutator(gen, pool, seed)
}
