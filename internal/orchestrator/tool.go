package orchestrator

import (
	"context"
	"fmt"

	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/result"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
)

// ToolRunner composes the schema generator and seed pool into the tool
// mutator step of the tool orchestrator.
type ToolRunner struct {
	*Orchestrator
	mutator toolMutator
}

// NewToolRunner builds a ToolRunner sharing gen and o.Pool with the rest of
// this orchestrator instance.
func NewToolRunner(o *Orchestrator, gen *schema.Generator, seed int64) *ToolRunner {
	return &ToolRunner{Orchestrator: o, mutator: newToolMutator(gen, o.Pool, seed)}
}

// Run executes `runs` tool-call fuzz runs against tool under phase,
// generate/mutate/validate/send/check/record, with at most o.Exec's max
// concurrency in flight at once.
func (t *ToolRunner) Run(ctx context.Context, tool mutate.ToolDescriptor, runs int, phase schema.Phase) []*result.Result {
	ops := make([]executor.Operation, runs)
	for i := 0; i < runs; i++ {
		runIndex := i
		ops[i] = func(ctx context.Context) (interface{}, error) {
			return t.runOne(ctx, tool, runIndex, phase), nil
		}
	}

	out := t.Exec.Run(ctx, ops)
	results := make([]*result.Result, 0, len(out.Successes))
	for _, v := range out.Successes {
		r := v.(*result.Result)
		t.emit(r)
		results = append(results, r)
	}
	return results
}

// runOne performs the generate/mutate/validate/send/check/record sequence
// for a single run. It never returns an error itself — every failure mode
// becomes a Result record instead.
func (t *ToolRunner) runOne(ctx context.Context, tool mutate.ToolDescriptor, runIndex int, phase schema.Phase) *result.Result {
	r := result.New(result.KindTool, runIndex, tool.Name)

	// Step 1: mutate.
	call, err := t.mutator.Mutate(tool, phase, runIndex)
	if err != nil {
		r.Error = fmt.Sprintf("strategy: %v", err)
		r.Classification = result.ClassTransportError
		return r
	}
	r.Input = call

	// Step 2-3: safety gate.
	args := call.Arguments
	if t.Filter != nil {
		decision := t.Filter.Check(args)
		switch decision.Action {
		case safety.ActionBlock:
			r.SafetyBlocked = true
			r.Error = decision.Reason
			r.Response = safety.MockBlockedResponse(nil, decision.Reason)
			r.Success = true // a correctly-blocked call is not a fuzzer failure
			seedOffer(t.Pool, "tools/call", nil, 0, call.Arguments)
			return r
		case safety.ActionSanitize:
			args = decision.SanitizedArgs
			r.SafetySanitized = true
		}
	}

	// Step 4: transport.
	v, elapsed, sendErr := t.runWithTimeout(ctx, func(ctx context.Context) (interface{}, error) {
		return t.Driver.SendRequest(ctx, "tools/call", map[string]interface{}{
			"name":      tool.Name,
			"arguments": args,
		})
	})
	r.ElapsedMS = elapsed.Milliseconds()

	// Step 5: classify.
	if sendErr != nil {
		r.Success = false
		r.Error = sendErr.Error()
		r.Classification = classify(sendErr)
	} else {
		r.Success = true
	}
	if v != nil {
		r.Response = v
	}

	// Step 6: offer to seed pool.
	seedOffer(t.Pool, "tools/call", nil, responseErrorCode(r.Response), call.Arguments)

	return r
}
