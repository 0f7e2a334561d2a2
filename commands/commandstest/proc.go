// Package commandstest runs builtins against an in-memory process.
package commandstest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/josephlewis42/lish/commands"
)

// Signal records one Kill call.
type Signal struct {
	Pid int
	Sig syscall.Signal
}

// FakeHistory is an in-memory history.
type FakeHistory struct {
	Lines []string
}

// List implements commands.HistoryStore.
func (h *FakeHistory) List(w io.Writer) error {
	for i, line := range h.Lines {
		if _, err := fmt.Fprintf(w, "[%2d] %s\n", i, line); err != nil {
			return err
		}
	}
	return nil
}

// Clear implements commands.HistoryStore.
func (h *FakeHistory) Clear() error {
	h.Lines = nil
	return nil
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// Builtin to run.
	Builtin commands.ShellBuiltin
	// Process arguments, the first argument should be the builtin name.
	Argv []string
	// Env holds the environment, nil means empty.
	Env map[string]string
	// Dir is the working directory, "/" if empty.
	Dir string
	// Dirs lists the directories Chdir accepts besides "/".
	Dirs []string
	// Hist is returned by History, nil makes History fail.
	Hist *FakeHistory
	// KillErr is returned by every Kill call.
	KillErr error
	// ExecErr is returned by Exec, nil means os.ErrNotExist.
	ExecErr error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int
	// Exited is set when the builtin asked the shell to exit.
	Exited   bool
	ExitCode int
	// Signals records Kill calls.
	Signals []Signal
	// Execed records the argv passed to Exec.
	Execed []string
}

// Command builds a Cmd for a builtin.
func Command(builtin commands.ShellBuiltin, name string, arg ...string) *Cmd {
	return &Cmd{
		Builtin: builtin,
		Argv:    append([]string{name}, arg...),
		Env:     make(map[string]string),
	}
}

// CombinedOutput runs the command and returns its stdout and stderr.
func (c *Cmd) CombinedOutput() []byte {
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	c.Run()
	return buf.Bytes()
}

// Run runs the builtin to completion.
func (c *Cmd) Run() int {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	if c.Dir == "" {
		c.Dir = "/"
	}
	if c.Stdin == nil {
		c.Stdin = &bytes.Buffer{}
	}
	if c.Stdout == nil {
		c.Stdout = io.Discard
	}
	if c.Stderr == nil {
		c.Stderr = io.Discard
	}

	c.ExitStatus = c.Builtin.Main(&proc{c: c})
	return c.ExitStatus
}

type proc struct{ c *Cmd }

var _ commands.Proc = (*proc)(nil)

func (p *proc) Args() []string    { return p.c.Argv }
func (p *proc) Stdin() io.Reader  { return p.c.Stdin }
func (p *proc) Stdout() io.Writer { return p.c.Stdout }
func (p *proc) Stderr() io.Writer { return p.c.Stderr }
func (p *proc) Name() string      { return "lish" }

func (p *proc) Getenv(key string) (string, bool) {
	v, ok := p.c.Env[key]
	return v, ok
}

func (p *proc) Setenv(key, value string) error {
	if strings.ContainsRune(key, 0) {
		return syscall.EINVAL
	}
	p.c.Env[key] = value
	return nil
}

func (p *proc) Chdir(dir string) error {
	if !path.IsAbs(dir) {
		dir = path.Join(p.c.Dir, dir)
	}
	dir = path.Clean(dir)
	if dir == "/" {
		p.c.Dir = dir
		return nil
	}
	for _, d := range p.c.Dirs {
		if d == dir {
			p.c.Dir = dir
			return nil
		}
	}
	return &os.PathError{Op: "chdir", Path: dir, Err: syscall.ENOENT}
}

func (p *proc) Getwd() (string, error) {
	return p.c.Dir, nil
}

func (p *proc) Kill(pid int, sig syscall.Signal) error {
	p.c.Signals = append(p.c.Signals, Signal{Pid: pid, Sig: sig})
	return p.c.KillErr
}

func (p *proc) History() (commands.HistoryStore, error) {
	if p.c.Hist == nil {
		return nil, errors.New("history unavailable")
	}
	return p.c.Hist, nil
}

func (p *proc) Exit(code int) {
	p.c.Exited = true
	p.c.ExitCode = code
}

func (p *proc) Exec(argv []string) error {
	p.c.Execed = argv
	if p.c.ExecErr != nil {
		return p.c.ExecErr
	}
	return &os.PathError{Op: "exec", Path: argv[0], Err: syscall.ENOENT}
}
