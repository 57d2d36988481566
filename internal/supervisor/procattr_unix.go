//go:build !windows

package supervisor

import "syscall"

// newGroupSysProcAttr spawns the child in a new process group so the
// signal dispatcher can target the whole group with kill(-pgid, sig).
func newGroupSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
