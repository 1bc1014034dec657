// Package procutil spawns a child process in its own process group and
// tears it down gracefully.
package procutil

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

var ErrStillRunning = errors.New("procutil: process did not exit after kill")

// DefaultOutputLimit caps how much combined stdout/stderr is retained.
const DefaultOutputLimit = 64 * 1024

// Process is a started child process whose exit is reaped in the background.
type Process struct {
	cmd    *exec.Cmd
	output *CappedBuffer

	done    chan struct{}
	waitErr error
}

// Start launches name with args in workDir. Combined output is retained up
// to DefaultOutputLimit bytes.
func Start(name string, args []string, workDir string) (*Process, error) {
	output := NewCappedBuffer(DefaultOutputLimit)

	cmd := exec.Command(name, args...)
	cmd.Dir = workDir
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &Process{
		cmd:    cmd,
		output: output,
		done:   make(chan struct{}),
	}
	go p.reap()
	return p, nil
}

func (p *Process) reap() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the result of Wait. It is only meaningful after Done.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Output returns the retained combined output.
func (p *Process) Output() string {
	return p.output.String()
}

// Terminate asks the process group to stop, escalating to a kill when the
// process is still running after grace. It returns nil if the process had
// already exited.
func (p *Process) Terminate(grace time.Duration) error {
	if p.Exited() {
		return nil
	}

	if err := p.signalStop(); err != nil && !p.Exited() {
		return p.Kill(grace)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	return p.Kill(grace)
}

// Kill forcibly stops the process group and waits up to wait for the reap.
func (p *Process) Kill(wait time.Duration) error {
	if p.Exited() {
		return nil
	}
	if err := p.signalKill(); err != nil && !p.Exited() {
		return fmt.Errorf("failed to kill process %d: %w", p.Pid(), err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(wait):
		return fmt.Errorf("%w: pid %d", ErrStillRunning, p.Pid())
	}
}

// CappedBuffer keeps at most limit bytes and notes truncation.
type CappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func NewCappedBuffer(limit int) *CappedBuffer {
	return &CappedBuffer{limit: limit}
}

func (c *CappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}

	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}

	return c.buf.Write(p)
}

func (c *CappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := c.buf.String()
	if !c.truncated {
		return content
	}
	if content == "" {
		return "...[truncated]"
	}
	return content + "\n...[truncated]"
}
