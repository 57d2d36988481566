//go:build !windows

package supervisor

import (
	"golang.org/x/sys/unix"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
)

// Kind identifies a strategy in the signal dispatcher's strategy registry.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindForce     Kind = "force"
	KindInterrupt Kind = "interrupt"
)

// strategy maps a dispatch kind to the POSIX signal sent to a process
// group. Process-group delivery (negative pgid) reaps orphan children the
// supervised process may have spawned.
var posixStrategy = map[Kind]unix.Signal{
	KindTimeout:   unix.SIGTERM,
	KindForce:     unix.SIGKILL,
	KindInterrupt: unix.SIGINT,
}

// Dispatcher sends signals to supervised process groups. Strategies are
// swappable for testing: Send is a field, not a hardcoded call, so tests
// can substitute a fake that records invocations instead of killing real
// processes.
type Dispatcher struct {
	Send func(pgid int, kind Kind) error
}

// NewDispatcher builds a Dispatcher backed by real process-group signals.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Send: sendPosixSignal}
}

func sendPosixSignal(pgid int, kind Kind) error {
	sig, ok := posixStrategy[kind]
	if !ok {
		return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "unknown signal kind", nil)
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "kill process group", err)
	}
	return nil
}

// Dispatch sends the named strategy's signal to pgid's process group.
func (d *Dispatcher) Dispatch(pgid int, kind Kind) error {
	return d.Send(pgid, kind)
}
