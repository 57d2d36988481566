package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

// TestBatchRunnerFlagsDuplicateAndUnmatchedIds pins S3
// scenario: batch [ping#1, ping#2, notify] answered with two id:1
// responses and no id:2 response.
func TestBatchRunnerFlagsDuplicateAndUnmatchedIds(t *testing.T) {
	driver := &fakeDriver{
		sendBatchFn: func(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
			r1, _ := jsonrpc.NewSuccess(1, nil)
			r1dup, _ := jsonrpc.NewSuccess(1, nil)
			return []*jsonrpc.Message{r1, r1dup}, nil
		},
	}
	o := New(driver, nil, seedpool.New(8, 1), executor.New(4), nil, 0)
	runner := NewBatchRunner(o, schema.New(1), 1)

	req1, _ := jsonrpc.NewRequest(1, "ping", nil)
	req2, _ := jsonrpc.NewRequest(2, "ping", nil)
	notify, _ := jsonrpc.NewNotification("notifications/x", nil)

	runner.mutator = fixedBatchMutator([]*jsonrpc.Message{req1, req2, notify})

	results := runner.Run(context.Background(), nil, 1, schema.Realistic)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].InvariantViolations, "DuplicateId(1)")
	assert.Contains(t, results[0].InvariantViolations, "UnmatchedRequestId(2)")
}
