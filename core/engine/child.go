package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/josephlewis42/lish/commands"
	"github.com/josephlewis42/lish/core/cmdtree"
)

// ChildCommand is the first argument of helper processes.
const ChildCommand = "__child"

// Helper process kinds.
const (
	// ChildBuiltin runs a builtin given as argv.
	ChildBuiltin = "builtin"
	// ChildSubshell runs a parenthesized line given as source text.
	ChildSubshell = "subshell"
	// ChildBackground runs a conditional chain given as source text.
	ChildBackground = "background"
)

// childArgv builds the command line of a helper inheriting nfds descriptors.
func (e *Engine) childArgv(kind string, nfds int, payload ...string) []string {
	argv := []string{e.Exe, ChildCommand}
	argv = append(argv, e.ChildFlags...)
	argv = append(argv, "--", kind, strconv.Itoa(nfds))
	return append(argv, payload...)
}

// spawnChild starts a helper with the descriptor table.
func (e *Engine) spawnChild(kind string, table []*os.File, payload ...string) (int, error) {
	proc, err := os.StartProcess(e.Exe, e.childArgv(kind, len(table), payload...), &os.ProcAttr{
		Env:   os.Environ(),
		Files: table,
	})
	if err != nil {
		return 0, &FatalError{Status: ErrorStatus, Err: fmt.Errorf("cannot create process: %w", osError(err))}
	}
	pid := proc.Pid
	proc.Release()
	return pid, nil
}

// RunChild is the body of a helper process. args are the arguments after
// ChildCommand and its flags: kind, descriptor count and payload.
func (e *Engine) RunChild(args []string) (int, error) {
	if len(args) < 2 {
		return ErrorStatus, errors.New("usage: __child kind nfds payload...")
	}

	kind := args[0]
	nfds, err := strconv.Atoi(args[1])
	if err != nil || nfds < 0 {
		return ErrorStatus, fmt.Errorf("invalid descriptor count %q", args[1])
	}
	payload := args[2:]

	ctx := &Context{
		Dedicated: true,
		Std:       []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	for fd := 3; fd < nfds; fd++ {
		ctx.Std = append(ctx.Std, os.NewFile(uintptr(fd), fmt.Sprintf("fd%d", fd)))
	}

	switch kind {
	case ChildBuiltin:
		if len(payload) == 0 {
			return ErrorStatus, errors.New("missing builtin")
		}
		builtin, ok := commands.Lookup(payload[0])
		if !ok {
			return ErrorStatus, fmt.Errorf("%s: not a builtin", payload[0])
		}
		return e.runBuiltin(ctx, builtin, payload, ctx.Std), nil

	case ChildSubshell, ChildBackground:
		if len(payload) != 1 {
			return ErrorStatus, fmt.Errorf("%s expects one source argument", kind)
		}
		line, err := cmdtree.Parse(payload[0])
		if err != nil {
			return ErrorStatus, err
		}

		if kind == ChildSubshell {
			return e.Run(ctx, line)
		}
		if len(line) != 1 {
			return ErrorStatus, fmt.Errorf("background expects one chain, got %d", len(line))
		}
		ctx.Mode = ModeBackgroundPending
		return e.runChain(ctx, line[0].Conditionals)
	}

	return ErrorStatus, fmt.Errorf("unknown child kind %q", kind)
}
