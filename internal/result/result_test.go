package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
)

func TestNewAssignsSortableID(t *testing.T) {
	r := New(KindTool, 3, "web_tool")
	require.NotEmpty(t, r.ID)
	assert.Equal(t, KindTool, r.Kind)
	assert.Equal(t, 3, r.RunIndex)
	assert.Equal(t, "web_tool", r.Label)
}

func TestWithInvariantViolationsStringifies(t *testing.T) {
	r := New(KindBatch, 0, "")
	r.WithInvariantViolations([]jsonrpc.Violation{
		{Kind: jsonrpc.ViolationDuplicateID, Detail: "1"},
		{Kind: jsonrpc.ViolationUnmatchedReqID, Detail: "2"},
	})
	assert.Equal(t, []string{"DuplicateId(1)", "UnmatchedRequestId(2)"}, r.InvariantViolations)
}

func TestAggregatorIngestTool(t *testing.T) {
	agg := NewAggregator()

	agg.Ingest(&Result{Kind: KindTool, Label: "web_tool", Success: true})
	agg.Ingest(&Result{Kind: KindTool, Label: "web_tool", Success: false, SafetyBlocked: true})
	agg.Ingest(&Result{Kind: KindTool, Label: "web_tool", Success: false, Error: "boom"})

	sums := agg.ToolSummaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "web_tool", sums[0].Tool)
	assert.Equal(t, 3, sums[0].TotalRuns)
	assert.Equal(t, 1, sums[0].Successes)
	assert.Equal(t, 1, sums[0].SafetyBlocked)
	assert.Equal(t, 1, sums[0].Exceptions)

	overall := agg.Overall()
	assert.Equal(t, 3, overall.TotalRuns)
	assert.Equal(t, 1, overall.Successes)
	assert.InDelta(t, 1.0/3.0, overall.SuccessRate, 0.0001)
}

func TestAggregatorIngestProtocol(t *testing.T) {
	agg := NewAggregator()

	agg.Ingest(&Result{
		Kind:                KindProtocol,
		Label:               "CallToolRequest",
		Success:             true,
		InvariantViolations: []string{"DualResult"},
	})
	agg.Ingest(&Result{
		Kind:           KindProtocol,
		Label:          "CallToolRequest",
		Success:        false,
		Classification: ClassServerError,
	})

	sums := agg.ProtocolSummaries()
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].TotalRuns)
	assert.Equal(t, 1, sums[0].InvariantViolations)
	assert.Equal(t, 1, sums[0].ServerRejections)
}
