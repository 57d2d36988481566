package seedpool

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffer_DedupBySignature(t *testing.T) {
	p := New(10, 1)
	p.Offer("sig-a", map[string]interface{}{"x": 1}, 1)
	p.Offer("sig-a", map[string]interface{}{"x": 2}, 1)
	assert.Equal(t, 1, p.Len())
}

func TestOffer_BoundedEviction(t *testing.T) {
	// Testable property "Seed pool boundedness": size never
	// exceeds K, and each insert past capacity evicts exactly one entry.
	p := New(4, 1)
	for i := 0; i < 10; i++ {
		p.Offer(fmt.Sprintf("sig-%d", i), i, 1)
		assert.LessOrEqual(t, p.Len(), 4)
	}
	assert.Equal(t, 4, p.Len())
}

func TestOffer_EvictsLeastRecentlyUsed(t *testing.T) {
	p := New(2, 1)
	p.Offer("a", "a", 1)
	p.Offer("b", "b", 1)
	// Touch "a" so "b" becomes the LRU victim.
	p.Offer("a", "a", 1)
	p.Offer("c", "c", 1)

	sigs := map[string]bool{}
	for _, e := range p.Snapshot() {
		sigs[e.Signature] = true
	}
	assert.True(t, sigs["a"])
	assert.True(t, sigs["c"])
	assert.False(t, sigs["b"])
}

func TestSample_EmptyPool(t *testing.T) {
	p := New(4, 1)
	_, ok := p.Sample()
	assert.False(t, ok)
}

func TestSample_ReturnsEntry(t *testing.T) {
	p := New(4, 1)
	p.Offer("sig-a", "payload", 1)
	entry, ok := p.Sample()
	require.True(t, ok)
	assert.Equal(t, "sig-a", entry.Signature)
}

func TestSignature_IgnoresValuesHashesShape(t *testing.T) {
	a := Signature("tools/call", "-32602", map[string]interface{}{"query": "SELECT 1"})
	b := Signature("tools/call", "-32602", map[string]interface{}{"query": "DROP TABLE x"})
	assert.Equal(t, a, b, "same shape + same error code should collide regardless of value")

	c := Signature("tools/call", "-32602", map[string]interface{}{"other_field": "x"})
	assert.NotEqual(t, a, c, "different key set must not collide")
}
