//go:build windows

package supervisor

import "syscall"

// newGroupSysProcAttr starts the child as the root of a new process group
// so a CTRL_BREAK event can later be targeted at it without affecting the
// parent.
func newGroupSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
