// Package engine runs parsed command lines as processes.
//
// Every stage of a pipeline is launched with its own descriptor table: slice
// index i becomes descriptor i of the new process and nil entries are closed.
// The shell's own standard descriptors are only ever rewired right before the
// shell replaces itself with a program.
package engine

import (
	"os"

	"github.com/josephlewis42/lish/commands"
)

// ErrorStatus is the status of commands the shell could not run.
const ErrorStatus = 127

// Mode controls whether a single command may replace the current process
// instead of running in a new one.
type Mode int

const (
	// ModeNormal always creates processes.
	ModeNormal Mode = iota
	// ModeBackgroundPending is set for a chain run in a background helper.
	ModeBackgroundPending
	// ModeSingleCandidate is set for a chain of one pipeline that may be
	// elided if the pipeline has one stage.
	ModeSingleCandidate
	// ModeSingleEligible lets the stage replace the current process.
	ModeSingleEligible
)

func (m Mode) String() string {
	switch m {
	case ModeBackgroundPending:
		return "background-pending"
	case ModeSingleCandidate:
		return "single-candidate"
	case ModeSingleEligible:
		return "single-eligible"
	default:
		return "normal"
	}
}

// Context is the state of one execution.
type Context struct {
	Mode Mode
	// Dedicated is set when the process only exists to run this tree.
	Dedicated bool
	// Std is the descriptor table commands start from, at least stdin,
	// stdout and stderr.
	Std []*os.File

	// saved[0..2] hold close-on-exec copies of the standard descriptors, set
	// only by replace while they are rewired for exec. saved[3] is the read
	// end of the pipe feeding the next stage.
	saved [4]*os.File
}

// NewContext creates a context using the process' standard descriptors.
func NewContext(dedicated bool) *Context {
	return &Context{
		Dedicated: dedicated,
		Std:       []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
}

func (c *Context) with(mode Mode) *Context {
	out := *c
	out.Mode = mode
	out.saved = [4]*os.File{}
	return &out
}

func (c *Context) stderr() *os.File {
	if len(c.Std) > 2 && c.Std[2] != nil {
		return c.Std[2]
	}
	return os.Stderr
}

// FatalError ends the shell with Status.
type FatalError struct {
	Status int
	Err    error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Host is the shell the engine runs in.
type Host interface {
	// Name is the executable name used in diagnostics.
	Name() string
	// History opens the shared history.
	History() (commands.HistoryStore, error)
	// Exit asks the shell to stop with code.
	Exit(code int)
	// Exiting reports whether Exit was called.
	Exiting() bool
	// Release frees shared resources before the process is replaced.
	Release()
}
