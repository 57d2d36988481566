//go:build windows

package supervisor

import (
	"os"
	"syscall"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
)

// Kind identifies a strategy in the signal dispatcher's strategy registry.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindForce     Kind = "force"
	KindInterrupt Kind = "interrupt"
)

// Dispatcher sends termination requests to supervised processes. Windows
// has no process-group signal equivalent to SIGTERM, so graceful requests
// use a console control event and force uses TerminateProcess; pgid here
// is treated as a pid (see NewDispatcher in signal_unix.go for the POSIX
// process-group variant).
type Dispatcher struct {
	Send func(pgid int, kind Kind) error
}

// NewDispatcher builds a Dispatcher backed by real Windows process control.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Send: sendWindowsSignal}
}

func sendWindowsSignal(pid int, kind Kind) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "find process", err)
	}
	switch kind {
	case KindForce:
		if err := proc.Kill(); err != nil {
			return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "terminate process", err)
		}
		return nil
	case KindTimeout, KindInterrupt:
		// CTRL_BREAK_EVENT goes to the process group newGroupSysProcAttr
		// created for the child; that group's id is the child's pid.
		gen := syscall.NewLazyDLL("kernel32.dll").NewProc("GenerateConsoleCtrlEvent")
		if r, _, err := gen.Call(syscall.CTRL_BREAK_EVENT, uintptr(pid)); r == 0 {
			return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "graceful signal", err)
		}
		return nil
	default:
		return fuzzerr.New(fuzzerr.CategoryRuntime, fuzzerr.ReasonRuntimeSignalSend, "unknown signal kind", nil)
	}
}

// Dispatch sends the named strategy's signal to pid.
func (d *Dispatcher) Dispatch(pid int, kind Kind) error {
	return d.Send(pid, kind)
}
