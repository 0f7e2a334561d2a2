// Package core is the interactive shell: it reads lines, expands history
// references, and hands the parsed lines to the execution engine.
package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/lish/commands"
	"github.com/josephlewis42/lish/core/cmdtree"
	"github.com/josephlewis42/lish/core/config"
	"github.com/josephlewis42/lish/core/engine"
	"github.com/josephlewis42/lish/core/history"
	"github.com/josephlewis42/lish/core/jobs"
	"github.com/josephlewis42/lish/core/logger"
	"golang.org/x/term"
	"src.elv.sh/pkg/diag"
)

// ErrorStatus is the status of lines the shell could not run.
const ErrorStatus = engine.ErrorStatus

// Options configure a Shell.
type Options struct {
	Config *config.Configuration
	// Name is the executable name used in diagnostics and \s.
	Name string
	// Debug dumps every parsed line to stderr.
	Debug bool
	// Sexy installs the configured coloured prompt as PS1.
	Sexy bool
	// Dedicated shells run a single line and may be replaced by its
	// command.
	Dedicated bool
	Logger    *logger.SessionLogger
	// ChildFlags are passed to helper processes.
	ChildFlags []string
	// HistorySegment attaches the history memory in place of System V
	// shared memory.
	HistorySegment func() history.Segment
	// Stdio replaces the process' standard input, output and error.
	Stdio []*os.File
}

// Shell is one running shell.
type Shell struct {
	cfg       *config.Configuration
	name      string
	debug     bool
	dedicated bool
	log       *logger.SessionLogger
	segment   func() history.Segment

	engine *engine.Engine
	jobs   *jobs.Controller
	hist   *history.Store

	std            []*os.File
	stdout, stderr io.Writer
	rl             *readline.Instance
	userName       string

	status      int
	exiting     bool
	exitCode    int
	historyUsed bool
}

var _ engine.Host = (*Shell)(nil)

// NewShell creates a shell bound to the process' standard descriptors.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	name := opts.Name
	if name == "" {
		name = "lish"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard().Sessionless()
	}

	s := &Shell{
		cfg:       cfg,
		name:      name,
		debug:     opts.Debug,
		dedicated: opts.Dedicated,
		log:       log,
		segment:   opts.HistorySegment,
		std:       []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	if len(opts.Stdio) >= 3 {
		s.std = opts.Stdio
	}
	s.stdout, s.stderr = s.std[1], s.std[2]

	if opts.Sexy {
		if err := os.Setenv(EnvPrompt, cfg.SexyPrompt); err != nil {
			fmt.Fprintf(s.stderr, "%s: prompt: %s\n", name, err)
		}
	}
	if wd, err := os.Getwd(); err == nil {
		os.Setenv(EnvPWD, wd)
	}

	s.jobs = jobs.New(s.stdout)
	s.jobs.SetNoticeHook(func(n jobs.Notice) {
		s.log.Record(&logger.JobNotice{Pid: n.Pid, Status: n.Status, Stopped: n.Kind == jobs.Backgrounded})
	})

	eng, err := engine.New(s, s.jobs)
	if err != nil {
		return nil, err
	}
	eng.ChildFlags = opts.ChildFlags
	s.engine = eng

	return s, nil
}

// Name implements engine.Host.
func (s *Shell) Name() string {
	return s.name
}

// History implements engine.Host. A line that used it is not recorded.
func (s *Shell) History() (commands.HistoryStore, error) {
	s.historyUsed = true
	store, err := s.history()
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Shell) history() (*history.Store, error) {
	if s.hist != nil {
		return s.hist, nil
	}

	home := os.Getenv(EnvHome)
	opts := history.OptionsFromConfig(s.cfg, home, os.Getuid(), s.name)
	if s.segment != nil {
		opts.Segment = s.segment()
	}
	store, err := history.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	s.hist = store

	entries, _ := store.Entries()
	s.log.Record(&logger.HistoryChange{Action: "attach", Entries: len(entries)})
	return store, nil
}

// Exit implements engine.Host.
func (s *Shell) Exit(code int) {
	s.exiting = true
	s.exitCode = code
}

// Exiting implements engine.Host.
func (s *Shell) Exiting() bool {
	return s.exiting
}

// Release implements engine.Host by detaching from the history.
func (s *Shell) Release() {
	if s.hist == nil {
		return
	}
	entries, _ := s.hist.Entries()
	if err := s.hist.Close(); err != nil {
		fmt.Fprintf(s.stderr, "%s: history: %s\n", s.name, err)
	}
	s.log.Record(&logger.HistoryChange{Action: "detach", Entries: len(entries)})
	s.hist = nil
}

// Close releases the shell's resources.
func (s *Shell) Close() error {
	s.jobs.Stop()
	s.Release()
	if s.rl != nil {
		return s.rl.Close()
	}
	return nil
}

// exitStatus is the status the process should exit with.
func (s *Shell) exitStatus() int {
	if s.exiting {
		return s.exitCode
	}
	return s.status
}

// RunLine expands, parses and runs one input line, then records it in the
// history. Only fatal errors are returned.
func (s *Shell) RunLine(text string) (int, error) {
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return s.status, nil
	}

	replayed := false
	if strings.HasPrefix(strings.TrimLeft(text, " \t"), "!") {
		store, err := s.history()
		if err != nil {
			return ErrorStatus, &engine.FatalError{Status: ErrorStatus, Err: err}
		}
		expanded, ok, err := history.Expand(text, store)
		var numErr *strconv.NumError
		switch {
		case errors.As(err, &numErr):
			fmt.Fprintf(s.stderr, "%s: %s: no such history index\n", s.name, numErr.Num)
			s.status = ErrorStatus
			return s.status, nil
		case err != nil:
			return ErrorStatus, &engine.FatalError{Status: ErrorStatus, Err: err}
		}
		if ok {
			fmt.Fprintln(s.stdout, expanded)
			text, replayed = expanded, true
		}
	}

	line, err := cmdtree.Parse(text)
	if err != nil {
		s.printParseError(text, err)
		s.status = ErrorStatus
		return s.status, nil
	}

	if s.debug {
		cmdtree.Dump(s.stderr, line)
	}

	s.historyUsed = false
	ctx := engine.NewContext(s.dedicated)
	ctx.Std = s.std
	status, err := s.engine.Run(ctx, line)
	s.status = status
	s.log.Record(&logger.RunCommand{Line: text, Status: status, Replayed: replayed})
	if err != nil {
		return status, err
	}

	if !replayed && !s.historyUsed && s.hist != nil {
		if err := s.hist.Add(text); err != nil {
			fmt.Fprintf(s.stderr, "%s: history: %s\n", s.name, err)
		}
		if s.rl != nil {
			s.rl.SaveHistory(text)
		}
	}

	return status, nil
}

func (s *Shell) printParseError(text string, err error) {
	var perr cmdtree.Error
	if !errors.As(err, &perr) {
		fmt.Fprintf(s.stderr, "%s: syntax error: %s\n", s.name, err)
		return
	}

	for _, entry := range perr.Errors {
		sr := diag.NewContext("input", text, diag.PointRanging(entry.Position))
		fmt.Fprintf(s.stderr, "%s: syntax error: %s\n", s.name, entry.Message)
		fmt.Fprintf(s.stderr, "    %s\n", sr.ShowCompact(""))
	}
}

// fatal reports err and returns the status to exit with.
func (s *Shell) fatal(err error) int {
	status := ErrorStatus
	var fe *engine.FatalError
	if errors.As(err, &fe) {
		status = fe.Status
	}

	red := color.New(color.FgRed, color.Bold)
	if f, ok := s.stderr.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		red.DisableColor()
	}
	red.Fprintf(s.stderr, "%s: %s\n", s.name, err)

	s.log.Record(&logger.Fatal{Message: err.Error(), Status: status})
	return status
}

// RunCommand runs one line in a dedicated shell, as for -c.
func (s *Shell) RunCommand(text string) int {
	s.jobs.Start()
	defer s.Close()

	if _, err := s.RunLine(text); err != nil {
		return s.fatal(err)
	}
	return s.exitStatus()
}

// RunChild runs the helper process protocol.
func (s *Shell) RunChild(args []string) int {
	s.jobs.Start()
	defer s.Close()

	status, err := s.engine.RunChild(args)
	if err != nil {
		return s.fatal(err)
	}
	s.status = status
	return s.exitStatus()
}

// Run reads lines until end of input or exit, with line editing when
// standard input is a terminal.
func (s *Shell) Run() int {
	defer s.Close()

	if _, err := s.history(); err != nil {
		return s.fatal(&engine.FatalError{Status: ErrorStatus, Err: err})
	}

	if term.IsTerminal(int(s.std[0].Fd())) {
		return s.interactive()
	}
	return s.script(s.std[0])
}

func (s *Shell) interactive() int {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:                  readline.NewCancelableStdin(s.std[0]),
		Stdout:                 s.stdout,
		Stderr:                 s.stderr,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
	})
	if err != nil {
		return s.fatal(err)
	}
	s.rl = rl

	// Seed line editing with the shared history.
	if entries, err := s.hist.Entries(); err == nil {
		for _, e := range entries {
			rl.SaveHistory(e.Line)
		}
	}

	// Notices printed through readline redraw the prompt after them.
	s.jobs.SetOutput(rl.Stdout())
	s.jobs.SetIdleHook(rl.Refresh)
	s.jobs.Start()

	for !s.exiting {
		rl.SetPrompt(s.Prompt())
		text, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			continue
		case err == io.EOF:
			fmt.Fprintln(s.stdout, "exit")
			return s.exitStatus()
		case err != nil:
			return s.fatal(err)
		}

		if _, err := s.RunLine(text); err != nil {
			return s.fatal(err)
		}
	}
	return s.exitStatus()
}

// script runs every line of r without prompting.
func (s *Shell) script(r io.Reader) int {
	s.jobs.SetIdleHook(func() {})
	s.jobs.Start()

	scanner := bufio.NewScanner(r)
	for !s.exiting && scanner.Scan() {
		if _, err := s.RunLine(scanner.Text()); err != nil {
			return s.fatal(err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(s.stderr, "%s: %s\n", s.name, err)
	}
	if !s.exiting {
		fmt.Fprintln(s.stdout, "exit")
	}
	return s.exitStatus()
}

// ExeName is the base name the shell was started as.
func ExeName(arg0 string) string {
	name := filepath.Base(arg0)
	if name == "." || name == "/" || name == "" {
		return "lish"
	}
	return name
}
