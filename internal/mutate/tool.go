// Package mutate implements the three mutators: tool argument generation
// from a schema, JSON-RPC protocol envelope generation across the MCP
// message surface, and batch composition. All three wrap
// internal/schema generation and occasionally clone a pooled seed instead
// of generating fresh.
package mutate

import (
	"math/rand"

	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

// SeedProbability is the chance, that a mutator clones a
// pooled payload and applies one structural mutation instead of generating
// fresh.
const SeedProbability = 0.2

// ToolDescriptor is the discovered shape of a single MCP tool.
type ToolDescriptor struct {
	Name   string
	Schema *schema.Schema
}

// ToolCall is the envelope a ToolMutator produces: the arguments object to
// send as `tools/call` params
type ToolCall struct {
	Name      string
	Arguments map[string]interface{}
}

// ToolMutator generates {name, arguments} tool calls from a tool's schema.
type ToolMutator struct {
	gen  *schema.Generator
	pool *seedpool.Pool
	rng  *rand.Rand
}

// NewToolMutator builds a ToolMutator. pool may be nil to disable seed
// reuse entirely.
func NewToolMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) *ToolMutator {
	return &ToolMutator{gen: gen, pool: pool, rng: rand.New(rand.NewSource(seed))}
}

// Mutate produces a ToolCall for tool under phase at runIndex. With
// probability SeedProbability it clones a pooled argument set and applies a
// single structural mutation instead of generating fresh.
func (m *ToolMutator) Mutate(tool ToolDescriptor, phase schema.Phase, runIndex int) (ToolCall, error) {
	if m.pool != nil && m.rng.Float64() < SeedProbability {
		if entry, ok := m.pool.Sample(); ok {
			if args, ok := entry.Payload.(map[string]interface{}); ok {
				return ToolCall{Name: tool.Name, Arguments: mutateStructurally(m.rng, args)}, nil
			}
		}
	}

	v, err := m.gen.Generate(tool.Schema, phase, runIndex)
	if err != nil {
		return ToolCall{}, err
	}
	args, _ := v.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return ToolCall{Name: tool.Name, Arguments: args}, nil
}
