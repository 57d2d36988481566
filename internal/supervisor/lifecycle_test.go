package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_StartStopGraceful(t *testing.T) {
	registry := NewRegistry()
	lc := NewLifecycle(registry, NewDispatcher())

	cfg := DefaultProcessConfig()
	cfg.GracePeriod = 2 * time.Second

	cmd, err := lc.Start(context.Background(), StartConfig{
		Path:    "/bin/sh",
		Args:    []string{"-c", "trap 'exit 0' TERM; sleep 30"},
		Process: cfg,
	})
	require.NoError(t, err)
	pid := cmd.Process.Pid

	rec, ok := registry.Get(pid)
	require.True(t, ok)
	assert.Equal(t, StateRunning, rec.State)

	require.NoError(t, lc.Stop(pid, false))
	_, ok = registry.Get(pid)
	assert.False(t, ok, "process should be unregistered after a clean stop")
}

func TestLifecycle_StopEscalatesToForceKill(t *testing.T) {
	registry := NewRegistry()
	lc := NewLifecycle(registry, NewDispatcher())

	cfg := DefaultProcessConfig()
	cfg.GracePeriod = 200 * time.Millisecond

	cmd, err := lc.Start(context.Background(), StartConfig{
		Path:    "/bin/sh",
		Args:    []string{"-c", "trap '' TERM; sleep 30"},
		Process: cfg,
	})
	require.NoError(t, err)
	pid := cmd.Process.Pid

	start := time.Now()
	require.NoError(t, lc.Stop(pid, false))
	assert.Less(t, time.Since(start), 5*time.Second, "force-kill escalation should not wait the full sleep duration")

	_, ok := registry.Get(pid)
	assert.False(t, ok)
}

func TestLifecycle_StopUnknownPidErrors(t *testing.T) {
	lc := NewLifecycle(NewRegistry(), NewDispatcher())
	err := lc.Stop(999999, false)
	assert.Error(t, err)
}

func TestLifecycle_ShutdownStopsAll(t *testing.T) {
	registry := NewRegistry()
	lc := NewLifecycle(registry, NewDispatcher())
	cfg := DefaultProcessConfig()
	cfg.GracePeriod = time.Second

	for i := 0; i < 3; i++ {
		_, err := lc.Start(context.Background(), StartConfig{
			Path:    "/bin/sh",
			Args:    []string{"-c", "sleep 30"},
			Process: cfg,
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, registry.Count())

	lc.Shutdown()
	assert.Equal(t, 0, registry.Count())
}
