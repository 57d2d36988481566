package supervisor

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
)

// StartConfig describes a process to launch under supervision.
type StartConfig struct {
	Path       string
	Args       []string
	Env        []string
	Dir        string
	Process    ProcessConfig
	Activity   ActivityFunc
	SetupStdio func(cmd *exec.Cmd) error
}

// Lifecycle implements start/stop/shutdown state machine on
// top of a Registry and Dispatcher. It never spawns the watchdog itself;
// callers wire a Watchdog against the same Registry and Dispatcher.
type Lifecycle struct {
	registry   *Registry
	dispatcher *Dispatcher
}

// NewLifecycle builds a Lifecycle bound to registry and dispatcher.
func NewLifecycle(registry *Registry, dispatcher *Dispatcher) *Lifecycle {
	return &Lifecycle{registry: registry, dispatcher: dispatcher}
}

// Start scrubs the child's environment, spawns it in a new process group,
// registers it, and transitions Starting→Running.
func (l *Lifecycle) Start(ctx context.Context, cfg StartConfig) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = safety.ScrubEnv(cfg.Env)
	cmd.SysProcAttr = newGroupSysProcAttr()

	if cfg.SetupStdio != nil {
		if err := cfg.SetupStdio(cmd); err != nil {
			return nil, fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeProcessStart, "configuring child stdio", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeProcessStart, "starting child process", err)
	}

	pid := cmd.Process.Pid
	l.registry.Register(pid, pid, cmd, cfg.Process, cfg.Activity)
	l.registry.SetState(pid, StateRunning)

	log.Info().Int("pid", pid).Str("path", cfg.Path).Msg("supervised process started")
	return cmd, nil
}

// Stop transitions Running→Stopping, dispatches a signal (interrupt/timeout
// for graceful, force for immediate), awaits exit within the configured
// grace window, and escalates to force-kill if the child outlives it.
func (l *Lifecycle) Stop(pid int, force bool) error {
	rec, ok := l.registry.Get(pid)
	if !ok {
		return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeRegistryConflict, "stop requested for unregistered pid", nil)
	}
	if rec.State == StateStopped || rec.State == StateFailed {
		return nil
	}
	l.registry.SetState(pid, StateStopping)

	kind := KindTimeout
	if force {
		kind = KindForce
	}
	if err := l.dispatcher.Dispatch(rec.PGID, kind); err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("signal dispatch failed, process may already be gone")
	}

	grace := rec.Config.GracePeriod
	if grace <= 0 {
		grace = DefaultProcessConfig().GracePeriod
	}
	if force {
		grace = 50 * time.Millisecond
	}

	// cmd.Wait may only be called once, so a single background waiter
	// owns it; both the initial grace window and (if needed) the
	// force-kill escalation read from the same completion channel.
	exited := make(chan struct{})
	go func() {
		_ = rec.Cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		l.registry.SetState(pid, StateStopped)
		l.registry.Unregister(pid)
		return nil
	case <-time.After(grace):
	}

	if !force {
		log.Warn().Int("pid", pid).Msg("process outlived grace window, escalating to force-kill")
		if err := l.dispatcher.Dispatch(rec.PGID, KindForce); err != nil {
			log.Debug().Err(err).Int("pid", pid).Msg("force signal dispatch failed")
		}
		select {
		case <-exited:
			l.registry.SetState(pid, StateStopped)
			l.registry.Unregister(pid)
			return nil
		case <-time.After(rec.Config.GracePeriod):
		}
	}

	l.registry.SetState(pid, StateFailed)
	l.registry.Unregister(pid)
	return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeProcessStop, "process did not exit after force-kill", nil)
}

// Shutdown stops every registered process concurrently, then returns once
// all have settled. The watchdog must be stopped separately by the
// caller, after Shutdown returns.
func (l *Lifecycle) Shutdown() {
	records := l.registry.Snapshot()
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			if err := l.Stop(pid, false); err != nil {
				log.Debug().Err(err).Int("pid", pid).Msg("shutdown stop failed")
			}
		}(rec.PID)
	}
	wg.Wait()
}
