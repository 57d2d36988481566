package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

func webTool() ToolDescriptor {
	return ToolDescriptor{
		Name: "web_tool",
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

func TestToolMutator_GeneratesArgumentsFromSchema(t *testing.T) {
	gen := schema.New(1)
	m := NewToolMutator(gen, nil, 1)

	call, err := m.Mutate(webTool(), schema.Realistic, 0)
	require.NoError(t, err)
	assert.Equal(t, "web_tool", call.Name)
	assert.Contains(t, call.Arguments, "url")
	assert.Contains(t, call.Arguments, "output_path")
}

func TestToolMutator_SamplesSeedPoolSometimes(t *testing.T) {
	gen := schema.New(1)
	pool := seedpool.New(4, 1)
	pool.Offer("sig-a", map[string]interface{}{"url": "http://seed", "output_path": "/seed"}, 1)

	m := NewToolMutator(gen, pool, 2)
	var sawSeeded bool
	for i := 0; i < 200; i++ {
		call, err := m.Mutate(webTool(), schema.Realistic, i)
		require.NoError(t, err)
		if v, ok := call.Arguments["url"]; ok {
			if s, ok := v.(string); ok && (s == "http://seed" || len(s) != len("http://seed")) {
				// either the original seed or a structurally mutated variant
				if s == "http://seed" {
					sawSeeded = true
				}
			}
		}
	}
	assert.True(t, sawSeeded, "expected at least one of 200 runs to sample the seed pool")
}
