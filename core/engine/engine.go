package engine

import (
	"fmt"
	"os"
	"syscall"

	"github.com/josephlewis42/lish/core/cmdtree"
	"github.com/josephlewis42/lish/core/jobs"
)

// Engine runs command lines for a Host.
type Engine struct {
	Host Host
	Jobs *jobs.Controller

	// Exe is executed for helper processes, it must answer ChildCommand.
	Exe string
	// ChildFlags are passed to Exe before the child arguments.
	ChildFlags []string
}

// New creates an engine that re-executes the running binary for helpers.
func New(host Host, controller *jobs.Controller) (*Engine, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}

	return &Engine{
		Host: host,
		Jobs: controller,
		Exe:  exe,
	}, nil
}

// Run executes every sequence of the line in order and returns the status of
// the last one that ran. It stops early once the host is exiting.
func (e *Engine) Run(ctx *Context, line cmdtree.Line) (int, error) {
	status := 0
	for i, seq := range line {
		if e.Host.Exiting() {
			break
		}

		var err error
		switch seq.Op {
		case cmdtree.Background:
			status, err = e.runBackground(ctx, seq.Conditionals)
		default:
			mode := ModeNormal
			if ctx.Dedicated && i == len(line)-1 && len(seq.Conditionals) == 1 {
				mode = ModeSingleCandidate
			}
			status, err = e.runChain(ctx.with(mode), seq.Conditionals)
		}
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// runChain runs the pipelines of a conditional chain until an operator's
// condition fails.
func (e *Engine) runChain(ctx *Context, chain []*cmdtree.Conditional) (int, error) {
	switch {
	case ctx.Mode == ModeBackgroundPending && len(chain) == 1:
		ctx = ctx.with(ModeSingleCandidate)
	case len(chain) > 1:
		ctx = ctx.with(ModeNormal)
	}

	status := 0
	for _, cond := range chain {
		if e.Host.Exiting() {
			break
		}
		if (cond.Op == cmdtree.And && status != 0) || (cond.Op == cmdtree.Or && status == 0) {
			break
		}

		var err error
		status, err = e.runPipeline(ctx, cond.Pipeline)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// runBackground starts the chain in a helper in its own session, with an
// empty standard input, and does not wait for it.
func (e *Engine) runBackground(ctx *Context, chain []*cmdtree.Conditional) (int, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return ErrorStatus, &FatalError{Status: ErrorStatus, Err: fmt.Errorf("cannot create pipe: %w", err)}
	}
	defer r.Close()
	defer w.Close()

	table := append([]*os.File(nil), ctx.Std...)
	table[0] = r

	proc, err := os.StartProcess(e.Exe, e.childArgv(ChildBackground, len(table), cmdtree.ChainString(chain)), &os.ProcAttr{
		Env:   os.Environ(),
		Files: table,
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		fmt.Fprintf(ctx.stderr(), "%s: could not fork: %s\n", e.Host.Name(), osError(err))
		return ErrorStatus, nil
	}
	defer proc.Release()

	out := ctx.Std[1]
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "[%d]\n", proc.Pid)
	return 0, nil
}
