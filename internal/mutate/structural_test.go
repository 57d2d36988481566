package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutateStructurally_DoesNotModifySource(t *testing.T) {
	src := map[string]interface{}{"a": "x", "b": float64(1)}
	rng := rand.New(rand.NewSource(1))
	out := mutateStructurally(rng, src)

	assert.Equal(t, "x", src["a"])
	assert.Equal(t, float64(1), src["b"])
	assert.NotNil(t, out)
}

func TestMutateStructurally_EmptyMap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	out := mutateStructurally(rng, map[string]interface{}{})
	assert.Empty(t, out)
}
