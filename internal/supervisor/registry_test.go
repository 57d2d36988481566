package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	cfg := DefaultProcessConfig()
	r.Register(123, 123, nil, cfg, nil)

	rec, ok := r.Get(123)
	require.True(t, ok)
	assert.Equal(t, StateStarting, rec.State)
	assert.Equal(t, 1, r.Count())

	r.SetState(123, StateRunning)
	rec, ok = r.Get(123)
	require.True(t, ok)
	assert.Equal(t, StateRunning, rec.State)

	r.Unregister(123)
	_, ok = r.Get(123)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Register(1, 1, nil, DefaultProcessConfig(), nil)
	r.Register(2, 2, nil, DefaultProcessConfig(), nil)

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	r.Unregister(1)
	assert.Len(t, snap, 2, "snapshot must not reflect later registry mutation")
	assert.Equal(t, 1, r.Count())
}

func TestRecord_LastActivityFallsBackToStartTime(t *testing.T) {
	r := NewRegistry()
	before := time.Now()
	r.Register(1, 1, nil, DefaultProcessConfig(), nil)
	rec, ok := r.Get(1)
	require.True(t, ok)
	assert.True(t, !rec.LastActivity().Before(before))
}

func TestRecord_LastActivityUsesCallback(t *testing.T) {
	r := NewRegistry()
	fixed := time.Now().Add(-time.Hour)
	r.Register(1, 1, nil, DefaultProcessConfig(), func() time.Time { return fixed })
	rec, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, fixed, rec.LastActivity())
}
