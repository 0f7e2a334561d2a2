package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/josephlewis42/lish/commands"
	"github.com/josephlewis42/lish/core/cmdtree"
	"golang.org/x/sys/unix"
)

// errNeedsFork is returned by replace for tables it cannot install safely.
var errNeedsFork = errors.New("descriptor table too large to replace the process")

// expandWords substitutes $NAME tokens with the environment value.
func expandWords(words cmdtree.Words) []string {
	argv := make([]string, len(words))
	for i, word := range words {
		if strings.HasPrefix(word, "$") {
			argv[i] = os.Getenv(word[1:])
		} else {
			argv[i] = word
		}
	}
	return argv
}

// launch starts one stage with the descriptor table. It returns the pid of
// the created process, or 0 and the status of a stage that finished without
// one.
func (e *Engine) launch(ctx *Context, stage *cmdtree.Stage, table []*os.File, processRequired bool) (int, int, error) {
	eligible := ctx.Mode == ModeSingleEligible

	switch body := stage.Body.(type) {
	case *cmdtree.Subshell:
		if eligible {
			nested := &Context{Dedicated: true, Std: table}
			status, err := e.Run(nested, body.Line)
			return 0, status, err
		}
		pid, err := e.spawnChild(ChildSubshell, table, body.Line.String())
		return pid, 0, err

	case cmdtree.Words:
		if len(body) == 0 {
			return 0, ErrorStatus, &FatalError{Status: ErrorStatus, Err: errors.New("empty command")}
		}
		argv := expandWords(body)

		if builtin, ok := commands.Lookup(argv[0]); ok {
			if processRequired {
				pid, err := e.spawnChild(ChildBuiltin, table, argv...)
				return pid, 0, err
			}
			return 0, e.runBuiltin(ctx, builtin, argv, table), nil
		}

		path, err := lookPath(argv[0])
		if err != nil {
			e.diag(table, "%s: %s", argv[0], err)
			return 0, ErrorStatus, nil
		}

		if eligible {
			err := e.replace(ctx, path, argv, table)
			if !errors.Is(err, errNeedsFork) {
				e.diag(table, "%s: %s", argv[0], err)
				return 0, ErrorStatus, nil
			}
		}

		proc, err := os.StartProcess(path, argv, &os.ProcAttr{
			Env:   os.Environ(),
			Files: table,
		})
		if err != nil {
			e.diag(table, "%s: %s", argv[0], osError(err))
			return 0, ErrorStatus, nil
		}
		pid := proc.Pid
		proc.Release()
		return pid, 0, nil
	}

	return 0, ErrorStatus, fmt.Errorf("unknown stage body %T", stage.Body)
}

// diag prints a diagnostic on the stage's standard error.
func (e *Engine) diag(table []*os.File, format string, a ...interface{}) {
	var w io.Writer = os.Stderr
	if len(table) > 2 && table[2] != nil {
		w = table[2]
	}
	fmt.Fprintf(w, "%s: %s\n", e.Host.Name(), fmt.Sprintf(format, a...))
}

// replace installs table on the process' own descriptors and executes path in
// place of the shell. It only returns on failure, with the standard
// descriptors restored.
func (e *Engine) replace(ctx *Context, path string, argv []string, table []*os.File) error {
	if len(table) > 3 {
		return errNeedsFork
	}

	// Move the table out of the way first so installing one entry can't
	// clobber another.
	high := make([]int, len(table))
	for i, f := range table {
		high[i] = -1
		if f == nil {
			continue
		}
		fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 10)
		if err != nil {
			closeFds(high)
			return err
		}
		high[i] = fd
	}
	defer closeFds(high)

	for i := 0; i < 3; i++ {
		fd, err := unix.FcntlInt(uintptr(i), unix.F_DUPFD_CLOEXEC, 10)
		if err == nil {
			ctx.saved[i] = os.NewFile(uintptr(fd), fmt.Sprintf("saved-%d", i))
		}
	}
	defer func() {
		for i := 0; i < 3; i++ {
			if ctx.saved[i] != nil {
				unix.Dup3(int(ctx.saved[i].Fd()), i, 0)
				ctx.saved[i].Close()
				ctx.saved[i] = nil
			}
		}
	}()

	for i := 0; i < 3; i++ {
		if i >= len(high) || high[i] < 0 {
			unix.Close(i)
			continue
		}
		if err := unix.Dup3(high[i], i, 0); err != nil {
			return err
		}
	}

	e.Host.Release()
	return unix.Exec(path, argv, os.Environ())
}

func closeFds(fds []int) {
	for _, fd := range fds {
		if fd >= 0 {
			unix.Close(fd)
		}
	}
}

// lookPath finds the program file names, searching PATH if it has no slash.
func lookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		return file, checkExecutable(file)
	}

	var lastErr error = unix.ENOENT
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, file)
		err := checkExecutable(path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, unix.EACCES) {
			lastErr = err
		}
	}
	return "", lastErr
}

func checkExecutable(file string) error {
	info, err := os.Stat(file)
	switch {
	case err != nil:
		return osError(err)
	case info.IsDir():
		return unix.EISDIR
	case info.Mode()&0o111 == 0:
		return unix.EACCES
	}
	return nil
}

// runBuiltin runs a builtin in the shell process with the table as its
// standard descriptors.
func (e *Engine) runBuiltin(ctx *Context, builtin commands.ShellBuiltin, argv []string, table []*os.File) int {
	return builtin.Main(&stageProc{e: e, ctx: ctx, argv: argv, table: table})
}

// stageProc is the process a builtin sees when run by the engine.
type stageProc struct {
	e     *Engine
	ctx   *Context
	argv  []string
	table []*os.File
}

var _ commands.Proc = (*stageProc)(nil)

func (p *stageProc) file(fd int) *os.File {
	if fd < len(p.table) {
		return p.table[fd]
	}
	return nil
}

func (p *stageProc) Args() []string { return p.argv }

func (p *stageProc) Stdin() io.Reader {
	if f := p.file(0); f != nil {
		return f
	}
	return closedFile{}
}

func (p *stageProc) Stdout() io.Writer {
	if f := p.file(1); f != nil {
		return f
	}
	return closedFile{}
}

func (p *stageProc) Stderr() io.Writer {
	if f := p.file(2); f != nil {
		return f
	}
	return closedFile{}
}

func (p *stageProc) Name() string { return p.e.Host.Name() }

func (p *stageProc) Getenv(key string) (string, bool) { return os.LookupEnv(key) }

func (p *stageProc) Setenv(key, value string) error { return os.Setenv(key, value) }

func (p *stageProc) Chdir(dir string) error { return os.Chdir(dir) }

func (p *stageProc) Getwd() (string, error) { return os.Getwd() }

func (p *stageProc) Kill(pid int, sig syscall.Signal) error { return unix.Kill(pid, sig) }

func (p *stageProc) History() (commands.HistoryStore, error) { return p.e.Host.History() }

func (p *stageProc) Exit(code int) { p.e.Host.Exit(code) }

// Exec replaces the shell with the program, with the builtin's descriptors
// as its own. Tables that can't be installed run the program as a child and
// exit the shell with its status.
func (p *stageProc) Exec(argv []string) error {
	path, err := lookPath(argv[0])
	if err != nil {
		return err
	}

	err = p.e.replace(p.ctx, path, argv, p.table)
	if !errors.Is(err, errNeedsFork) {
		return err
	}

	p.e.Jobs.Begin()
	defer p.e.Jobs.End()

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   os.Environ(),
		Files: p.table,
	})
	if err != nil {
		return osError(err)
	}
	p.e.Jobs.Track(proc.Pid)
	proc.Release()

	p.e.Host.Exit(p.e.Jobs.Harvest(proc.Pid))
	return nil
}

// closedFile stands in for a closed standard descriptor.
type closedFile struct{}

func (closedFile) Read([]byte) (int, error)  { return 0, unix.EBADF }
func (closedFile) Write([]byte) (int, error) { return 0, unix.EBADF }
