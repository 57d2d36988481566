package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/schema"
)

func TestBatchMutator_SizeWithinBounds(t *testing.T) {
	gen := schema.New(1)
	m := NewBatchMutator(gen, nil, 1)

	for i := 0; i < 20; i++ {
		batch, err := m.Mutate(nil, schema.Realistic, i)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(batch), MinBatchSize)
		assert.LessOrEqual(t, len(batch), MaxBatchSize)
	}
}

func TestBatchMutator_MixesRequestsAndNotifications(t *testing.T) {
	gen := schema.New(1)
	m := NewBatchMutator(gen, nil, 7)

	kinds := []Kind{KindPingRequest, KindInitializedNotification}
	var sawRequest, sawNotification bool
	for i := 0; i < 50 && !(sawRequest && sawNotification); i++ {
		batch, err := m.Mutate(kinds, schema.Realistic, i)
		require.NoError(t, err)
		for _, msg := range batch {
			if msg.HasID() {
				sawRequest = true
			} else {
				sawNotification = true
			}
		}
	}
	assert.True(t, sawRequest)
	assert.True(t, sawNotification)
}

func TestBatchMutator_AggressiveCanDuplicateIDs(t *testing.T) {
	gen := schema.New(1)
	m := NewBatchMutator(gen, nil, 99)

	kinds := []Kind{KindPingRequest, KindListToolsRequest}
	var sawDuplicate bool
	for i := 0; i < 300 && !sawDuplicate; i++ {
		batch, err := m.Mutate(kinds, schema.Aggressive, i)
		require.NoError(t, err)
		seen := map[interface{}]int{}
		for _, msg := range batch {
			if msg.HasID() {
				seen[msg.ID]++
			}
		}
		for _, count := range seen {
			if count > 1 {
				sawDuplicate = true
			}
		}
	}
	assert.True(t, sawDuplicate, "expected at least one duplicate id across 300 aggressive batches")
}
