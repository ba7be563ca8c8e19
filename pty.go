package termio

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
)

// Pty owns the master side of a pseudo-terminal and the child process
// attached to its slave side.
type Pty struct {
	master *os.File
	cmd    *exec.Cmd
}

// StartCommand launches cmd on a fresh pty with the given geometry.
// The child's environment gains a TERM entry unless the caller set
// one.
func StartCommand(cmd *exec.Cmd, rows, cols, pxWidth, pxHeight int) (*Pty, error) {
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	if !hasTermEnv(cmd.Env) {
		cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	}

	master, err := pty.StartWithSize(cmd, winsize(rows, cols, pxWidth, pxHeight))
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}
	return &Pty{master: master, cmd: cmd}, nil
}

func hasTermEnv(env []string) bool {
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") {
			return true
		}
	}
	return false
}

func winsize(rows, cols, pxWidth, pxHeight int) *pty.Winsize {
	return &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
		X:    uint16(pxWidth),
		Y:    uint16(pxHeight),
	}
}

func (p *Pty) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

func (p *Pty) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

// Resize pushes new geometry to the kernel (TIOCSWINSZ). The child
// sees it as SIGWINCH.
func (p *Pty) Resize(rows, cols, pxWidth, pxHeight int) error {
	return pty.Setsize(p.master, winsize(rows, cols, pxWidth, pxHeight))
}

// Close closes the master side and reaps the child. A child that
// already exited is reaped without the kill.
func (p *Pty) Close() error {
	err := p.master.Close()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	return err
}

// Process returns the attached child command.
func (p *Pty) Process() *exec.Cmd {
	return p.cmd
}
