package orchestrator

import (
	"context"
	"fmt"

	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/result"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
)

// ProtocolRunner drives repeated protocol-level fuzz runs against a
// single message kind, mutating an envelope, sending it raw, and
// checking the response shape.
type ProtocolRunner struct {
	*Orchestrator
	mutator protocolMutator
}

// NewProtocolRunner builds a ProtocolRunner.
func NewProtocolRunner(o *Orchestrator, gen *schema.Generator, seed int64) *ProtocolRunner {
	return &ProtocolRunner{Orchestrator: o, mutator: newProtocolMutator(gen, o.Pool, seed)}
}

// Run executes `runs` protocol fuzz runs for kind under phase. When
// generateOnly is set, envelopes are generated and recorded but never
// sent — useful for inspecting mutator coverage without touching a live
// server.
func (p *ProtocolRunner) Run(ctx context.Context, kind mutate.Kind, runs int, phase schema.Phase, generateOnly bool) []*result.Result {
	ops := make([]executor.Operation, runs)
	for i := 0; i < runs; i++ {
		runIndex := i
		ops[i] = func(ctx context.Context) (interface{}, error) {
			return p.runOne(ctx, kind, runIndex, phase, generateOnly), nil
		}
	}

	out := p.Exec.Run(ctx, ops)
	results := make([]*result.Result, 0, len(out.Successes))
	for _, v := range out.Successes {
		r := v.(*result.Result)
		p.emit(r)
		results = append(results, r)
	}
	return results
}

func (p *ProtocolRunner) runOne(ctx context.Context, kind mutate.Kind, runIndex int, phase schema.Phase, generateOnly bool) *result.Result {
	r := result.New(result.KindProtocol, runIndex, string(kind))

	// Step 1: mutate.
	envelope, err := p.mutator.Mutate(kind, phase, runIndex)
	if err != nil {
		r.Error = fmt.Sprintf("strategy: %v", err)
		r.Classification = result.ClassTransportError
		return r
	}
	r.Input = envelope

	// generate-only short-circuit.
	if generateOnly {
		r.Success = true
		return r
	}

	// Step 3: transport (send_raw skips envelope validation by design,
	//).
	v, elapsed, sendErr := p.runWithTimeout(ctx, func(ctx context.Context) (interface{}, error) {
		return p.Driver.SendRaw(ctx, envelope)
	})
	r.ElapsedMS = elapsed.Milliseconds()

	if sendErr != nil {
		r.Error = sendErr.Error()
		r.Classification = classify(sendErr)
	}

	resp, _ := v.(*jsonrpc.Message)
	if resp != nil {
		r.Response = resp
	}

	// Step 4: invariant check, skipped for notifications (no response is
	// expected on the wire at all).
	var violations []jsonrpc.Violation
	if !mutate.IsNotification(kind) && resp != nil {
		violations = jsonrpc.CheckResponse(envelope, *resp)
	}
	r.WithInvariantViolations(violations)

	// Step 5: success is "we completed the round trip", independent of
	// whether violations were found — violations are data, not failure,
	//.
	r.Success = sendErr == nil || mutate.IsNotification(kind)

	seedOffer(p.Pool, string(kind), violations, responseErrorCode(r.Response), envelope)

	return r
}
