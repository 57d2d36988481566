package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout())
	assert.Equal(t, 5, cfg.Fuzz.MaxConcurrency)
	assert.Equal(t, 1*time.Second, cfg.Watchdog.CheckInterval())
	assert.Equal(t, 30*time.Second, cfg.Watchdog.ProcessTimeout())
	assert.Equal(t, 10*time.Second, cfg.Watchdog.ExtraBuffer())
	assert.Equal(t, 60*time.Second, cfg.Watchdog.MaxHangTime())
	assert.True(t, cfg.Watchdog.AutoKill)
	assert.True(t, cfg.Safety.Enabled)
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1"}, cfg.Safety.AllowedHosts)
}

func TestToolTimeoutFallsBackToTransportTimeout(t *testing.T) {
	f := Fuzz{}
	assert.Equal(t, 30*time.Second, f.ToolTimeout(30*time.Second))

	f.ToolTimeoutMS = 5000
	assert.Equal(t, 5*time.Second, f.ToolTimeout(30*time.Second))
}
