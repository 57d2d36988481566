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

// BatchRunner composes the batch mutator into the batch orchestrator —
// same shape as ProtocolRunner, generating a batch envelope and invoking
// send_batch/CheckBatch instead of send_raw/CheckResponse.
type BatchRunner struct {
	*Orchestrator
	mutator batchMutator
}

// NewBatchRunner builds a BatchRunner.
func NewBatchRunner(o *Orchestrator, gen *schema.Generator, seed int64) *BatchRunner {
	return &BatchRunner{Orchestrator: o, mutator: newBatchMutator(gen, o.Pool, seed)}
}

// Run executes `runs` batch fuzz runs, each composing 2-5 messages drawn
// from kinds (nil means the full MCP surface, per BatchMutator.Mutate).
func (b *BatchRunner) Run(ctx context.Context, kinds []mutate.Kind, runs int, phase schema.Phase) []*result.Result {
	ops := make([]executor.Operation, runs)
	for i := 0; i < runs; i++ {
		runIndex := i
		ops[i] = func(ctx context.Context) (interface{}, error) {
			return b.runOne(ctx, kinds, runIndex, phase), nil
		}
	}

	out := b.Exec.Run(ctx, ops)
	results := make([]*result.Result, 0, len(out.Successes))
	for _, v := range out.Successes {
		r := v.(*result.Result)
		b.emit(r)
		results = append(results, r)
	}
	return results
}

func (b *BatchRunner) runOne(ctx context.Context, kinds []mutate.Kind, runIndex int, phase schema.Phase) *result.Result {
	r := result.New(result.KindBatch, runIndex, "")

	batch, err := b.mutator.Mutate(kinds, phase, runIndex)
	if err != nil {
		r.Error = fmt.Sprintf("strategy: %v", err)
		r.Classification = result.ClassTransportError
		return r
	}
	r.Input = batch

	v, elapsed, sendErr := b.runWithTimeout(ctx, func(ctx context.Context) (interface{}, error) {
		return b.Driver.SendBatch(ctx, batch)
	})
	r.ElapsedMS = elapsed.Milliseconds()

	if sendErr != nil {
		r.Error = sendErr.Error()
		r.Classification = classify(sendErr)
	}

	responses, _ := v.([]*jsonrpc.Message)
	r.Response = responses

	reqVals := make([]jsonrpc.Message, len(batch))
	for i, m := range batch {
		reqVals[i] = *m
	}
	respVals := make([]jsonrpc.Message, len(responses))
	for i, m := range responses {
		respVals[i] = *m
	}

	violations := jsonrpc.CheckBatch(reqVals, respVals)
	r.WithInvariantViolations(violations)
	r.Success = sendErr == nil

	seedOffer(b.Pool, "batch", violations, 0, batch)

	return r
}
