package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
)

// Proc is the process a builtin runs in. The shell provides one per
// invocation, wired to the invocation's redirected descriptors.
type Proc interface {
	// Args holds the command name followed by its arguments.
	Args() []string
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer

	// Name is the shell's executable name, used to prefix diagnostics.
	Name() string

	Getenv(key string) (string, bool)
	Setenv(key, value string) error
	Chdir(dir string) error
	Getwd() (string, error)
	Kill(pid int, sig syscall.Signal) error

	// History opens the shared history store.
	History() (HistoryStore, error)
	// Exit asks the shell to stop once the current command finishes.
	Exit(code int)
	// Exec replaces the shell with the program named by argv[0]. A nil
	// return means the program ran as a child and the shell was asked to
	// exit with its status.
	Exec(argv []string) error
}

// HistoryStore is the part of the history store builtins need.
type HistoryStore interface {
	List(w io.Writer) error
	Clear() error
}

// ShellBuiltin is a command run by the shell itself rather than looked up on
// PATH.
type ShellBuiltin interface {
	Main(p Proc) int
}

// ShellBuiltinFunc adapts a function to the ShellBuiltin interface.
type ShellBuiltinFunc func(p Proc) int

// Main implements ShellBuiltin.
func (f ShellBuiltinFunc) Main(p Proc) int {
	return f(p)
}

// AllBuiltins holds every registered builtin by name.
var AllBuiltins = make(map[string]ShellBuiltin)

func addBuiltin(name string, cmd ShellBuiltinFunc) {
	AllBuiltins[name] = cmd
}

// Lookup finds a builtin by name.
func Lookup(name string) (ShellBuiltin, bool) {
	cmd, ok := AllBuiltins[name]
	return cmd, ok
}

// Names lists the registered builtins in order.
func Names() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// errorf prints a diagnostic prefixed with the shell and builtin name.
func errorf(p Proc, format string, a ...interface{}) {
	fmt.Fprintf(p.Stderr(), "%s: %s: ", p.Name(), p.Args()[0])
	fmt.Fprintf(p.Stderr(), format, a...)
	fmt.Fprintln(p.Stderr())
}

// osError strips the operation and path from an *os.PathError.
func osError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}

// SimpleCommand is a builtin with getopt style options.
type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(p Proc, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(p.Args(), nil); err != nil {
		errorf(p, "syntax error: %s", s.Use)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(p.Stdout())
		return 0
	}

	return callback()
}
