//go:build unix

package procutil

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// The child leads its own group, so the negative pid reaches any helpers it forked.
func (p *Process) signalStop() error {
	return unix.Kill(-p.Pid(), unix.SIGTERM)
}

func (p *Process) signalKill() error {
	return unix.Kill(-p.Pid(), unix.SIGKILL)
}

// Alive reports whether a process with pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
