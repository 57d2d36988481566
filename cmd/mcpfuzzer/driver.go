package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
	"github.com/rcourtman/mcp-fuzzer/internal/pathshim"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
	"github.com/rcourtman/mcp-fuzzer/internal/supervisor"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

// stdioProcess bundles the driver with the supervisor plumbing keeping its
// child process alive and the pathshim handle (if any) guarding it, so
// main can tear both down together.
type stdioProcess struct {
	driver     *transport.StdioDriver
	lifecycle  *supervisor.Lifecycle
	watchdog   *supervisor.Watchdog
	pid        int
	shimHandle *pathshim.Handle
}

func (p *stdioProcess) Stop() {
	if p.watchdog != nil {
		p.watchdog.Stop()
	}
	if p.lifecycle != nil && p.pid != 0 {
		_ = p.lifecycle.Stop(p.pid, false)
	}
	if p.shimHandle != nil {
		p.shimHandle.Release()
	}
}

// buildDriver constructs the transport.Driver cfg.Transport.Kind names.
// For stdio it also spawns and supervises the child process, returning a
// stop function the caller must invoke on shutdown (possibly a no-op).
func buildDriver(ctx context.Context, cfg config.Config) (transport.Driver, func(), error) {
	switch cfg.Transport.Kind {
	case config.TransportHTTP:
		hostAllow := safety.NewHostAllowList(cfg.Safety.AllowedHosts)
		return transport.NewHTTPDriver(cfg.Transport.Endpoint, hostAllow, cfg.Transport.Timeout(), cfg.Auth), func() {}, nil

	case config.TransportStreamHTTP:
		hostAllow := safety.NewHostAllowList(cfg.Safety.AllowedHosts)
		return transport.NewStreamableHTTPDriver(cfg.Transport.Endpoint, hostAllow, cfg.Transport.Timeout(), cfg.Auth), func() {}, nil

	case config.TransportSSE:
		hostAllow := safety.NewHostAllowList(cfg.Safety.AllowedHosts)
		return transport.NewSSEDriver(cfg.Transport.Endpoint, hostAllow, cfg.Transport.Timeout(), cfg.Auth), func() {}, nil

	case config.TransportStdio:
		return buildStdioDriver(ctx, cfg)

	default:
		return nil, nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

// buildStdioDriver spawns cfg.Transport.Command under the process
// supervisor and wires a StdioDriver to its pipes. When
// cfg.Safety.EnableSystemBlocking is set, the child inherits a PATH
// prepended with pathshim's no-op shims so browser/launcher binaries it
// tries to exec resolve to a dead end instead of opening a real browser.
func buildStdioDriver(ctx context.Context, cfg config.Config) (transport.Driver, func(), error) {
	if len(cfg.Transport.Command) == 0 {
		return nil, nil, fmt.Errorf("stdio transport requires a command")
	}

	env := os.Environ()
	var shimHandle *pathshim.Handle
	if cfg.Safety.EnableSystemBlocking {
		handle, err := pathshim.Acquire()
		if err != nil {
			return nil, nil, fmt.Errorf("acquiring path shim: %w", err)
		}
		shimHandle = handle
		env = handle.PrependTo(env)
	}

	registry := supervisor.NewRegistry()
	dispatcher := supervisor.NewDispatcher()
	lifecycle := supervisor.NewLifecycle(registry, dispatcher)

	var driver *transport.StdioDriver
	procCfg := supervisor.ProcessConfig{
		CheckInterval:  cfg.Watchdog.CheckInterval(),
		ProcessTimeout: cfg.Watchdog.ProcessTimeout(),
		ExtraBuffer:    cfg.Watchdog.ExtraBuffer(),
		MaxHangTime:    cfg.Watchdog.MaxHangTime(),
		AutoKill:       cfg.Watchdog.AutoKill,
	}

	startCfg := supervisor.StartConfig{
		Path: cfg.Transport.Command[0],
		Args: cfg.Transport.Command[1:],
		Env:  env,
		SetupStdio: func(cmd *exec.Cmd) error {
			stdin, err := cmd.StdinPipe()
			if err != nil {
				return err
			}
			stdout, err := cmd.StdoutPipe()
			if err != nil {
				return err
			}
			cmd.Stderr = os.Stderr
			driver = transport.NewStdioDriver(stdin, stdout)
			return nil
		},
		Process: procCfg,
	}

	cmd, err := lifecycle.Start(ctx, startCfg)
	if err != nil {
		if shimHandle != nil {
			shimHandle.Release()
		}
		return nil, nil, fmt.Errorf("starting stdio server: %w", err)
	}

	watchdog := supervisor.NewWatchdog(registry, dispatcher, lifecycle, cfg.Watchdog.CheckInterval())
	watchdog.Start(ctx)

	proc := &stdioProcess{
		driver:     driver,
		lifecycle:  lifecycle,
		watchdog:   watchdog,
		pid:        cmd.Process.Pid,
		shimHandle: shimHandle,
	}
	return driver, proc.Stop, nil
}
