package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/executor"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

func newTestOrchestrator(driver *fakeDriver, filter *safety.Filter) (*Orchestrator, []*mutate.ToolDescriptor) {
	pool := seedpool.New(8, 1)
	o := New(driver, filter, pool, executor.New(4), nil, 0)
	return o, nil
}

func toolDescriptor(name string) mutate.ToolDescriptor {
	return mutate.ToolDescriptor{
		Name: name,
		Schema: &schema.Schema{
			Type:     "object",
			Required: []string{"url", "output_path"},
			Properties: map[string]*schema.Schema{
				"url":         {Type: "string"},
				"output_path": {Type: "string"},
			},
		},
	}
}

func TestToolRunnerSuccess(t *testing.T) {
	driver := &fakeDriver{}
	o, _ := newTestOrchestrator(driver, nil)
	runner := NewToolRunner(o, schema.New(1), 1)

	results := runner.Run(context.Background(), toolDescriptor("web_tool"), 3, schema.Realistic)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.False(t, r.SafetyBlocked)
	}
}

func TestToolRunnerBlocksDangerousArguments(t *testing.T) {
	sandbox, err := safety.NewSandbox(t.TempDir())
	require.NoError(t, err)
	filter := safety.NewFilter(sandbox)

	driver := &fakeDriver{}
	o, _ := newTestOrchestrator(driver, filter)
	runner := NewToolRunner(o, schema.New(1), 1)

	tool := mutate.ToolDescriptor{
		Name: "web_tool",
		Schema: &schema.Schema{
			Type: "object",
			Properties: map[string]*schema.Schema{
				"url":         {Const: "https://evil.example/x"},
				"output_path": {Const: "/etc/passwd"},
			},
		},
	}

	results := runner.Run(context.Background(), tool, 1, schema.Realistic)
	require.Len(t, results, 1)
	assert.True(t, results[0].SafetyBlocked)
	assert.Empty(t, driver.requests, "blocked call must never reach the transport")
}

func TestToolRunnerClassifiesServerError(t *testing.T) {
	driver := serverErrorDriver(-32602, "invalid params")
	o, _ := newTestOrchestrator(driver, nil)
	runner := NewToolRunner(o, schema.New(1), 1)

	results := runner.Run(context.Background(), toolDescriptor("query_tool"), 1, schema.Aggressive)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "ServerError", string(results[0].Classification))
}
