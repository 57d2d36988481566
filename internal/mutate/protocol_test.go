package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/schema"
)

func TestProtocolMutator_RequestHasMethodAndID(t *testing.T) {
	gen := schema.New(1)
	m := NewProtocolMutator(gen, nil, 1)

	msg, err := m.Mutate(KindCallToolRequest, schema.Realistic, 0)
	require.NoError(t, err)
	assert.Equal(t, "tools/call", msg.Method)
	assert.True(t, msg.HasID())
	assert.Equal(t, jsonrpcVersion(), msg.JSONRPC)
}

func TestProtocolMutator_NotificationHasNoID(t *testing.T) {
	gen := schema.New(1)
	m := NewProtocolMutator(gen, nil, 1)

	msg, err := m.Mutate(KindInitializedNotification, schema.Realistic, 0)
	require.NoError(t, err)
	assert.Equal(t, "notifications/initialized", msg.Method)
	assert.False(t, msg.HasID())
}

func TestProtocolMutator_ResultShapeHasNoMethod(t *testing.T) {
	gen := schema.New(1)
	m := NewProtocolMutator(gen, nil, 1)

	msg, err := m.Mutate(KindListToolsResult, schema.Realistic, 0)
	require.NoError(t, err)
	assert.Empty(t, msg.Method)
	assert.True(t, msg.HasResult())
}

func TestProtocolMutator_AggressiveIDsCanBeNullOrString(t *testing.T) {
	gen := schema.New(1)
	m := NewProtocolMutator(gen, nil, 42)

	var sawNull, sawString bool
	for i := 0; i < 200; i++ {
		msg, err := m.Mutate(KindListToolsRequest, schema.Aggressive, i)
		require.NoError(t, err)
		switch v := msg.ID.(type) {
		case nil:
			sawNull = true
		case string:
			_ = v
			sawString = true
		}
	}
	assert.True(t, sawNull, "expected a null id across 200 aggressive runs")
	assert.True(t, sawString, "expected a string id across 200 aggressive runs")
}

func TestAllKinds_HasAtLeast30(t *testing.T) {
	assert.GreaterOrEqual(t, len(AllKinds), 30)
}

func jsonrpcVersion() string { return "2.0" }
