package commands

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

type signalEntry struct {
	name string
	sig  syscall.Signal
}

// signalTable lists the signals kill knows by name.
var signalTable = []signalEntry{
	{"HUP", unix.SIGHUP},
	{"INT", unix.SIGINT},
	{"QUIT", unix.SIGQUIT},
	{"ILL", unix.SIGILL},
	{"ABRT", unix.SIGABRT},
	{"FPE", unix.SIGFPE},
	{"KILL", unix.SIGKILL},
	{"SEGV", unix.SIGSEGV},
	{"PIPE", unix.SIGPIPE},
	{"ALRM", unix.SIGALRM},
	{"TERM", unix.SIGTERM},
	{"USR1", unix.SIGUSR1},
	{"USR2", unix.SIGUSR2},
	{"CHLD", unix.SIGCHLD},
	{"CONT", unix.SIGCONT},
	{"STOP", unix.SIGSTOP},
	{"TSTP", unix.SIGTSTP},
	{"TTIN", unix.SIGTTIN},
	{"TTOU", unix.SIGTTOU},
}

// signalByName matches case-insensitively, with or without the SIG prefix.
func signalByName(name string) (signalEntry, bool) {
	name = strings.ToUpper(name)
	name = strings.TrimPrefix(name, "SIG")
	for _, e := range signalTable {
		if e.name == name {
			return e, true
		}
	}
	return signalEntry{}, false
}

func signalByNumber(num string) (signalEntry, bool) {
	n, err := strconv.Atoi(num)
	if err != nil {
		return signalEntry{}, false
	}
	for _, e := range signalTable {
		if int(e.sig) == n {
			return e, true
		}
	}
	return signalEntry{}, false
}

// Kill sends a signal to processes, or lists signals with -l.
func Kill(p Proc) int {
	args := p.Args()
	usage := func() int {
		errorf(p, "usage: kill [{-[SIG]NAME | -NUMBER}] pid [pid...]")
		return 2
	}
	badSpec := func(spec string) int {
		errorf(p, "%s: invalid signal specification", spec)
		return 3
	}

	if len(args) < 2 {
		return usage()
	}

	sig := syscall.Signal(unix.SIGTERM)
	pids := args[1:]

	switch opt := args[1]; {
	case opt == "-l":
		return listSignals(p, args[2:], usage, badSpec)

	case opt == "-s" || opt == "-n":
		if len(args) < 4 {
			return usage()
		}
		lookup := signalByName
		if opt == "-n" {
			lookup = signalByNumber
		}
		e, ok := lookup(args[2])
		if !ok {
			return badSpec(args[2])
		}
		sig, pids = e.sig, args[3:]

	case strings.HasPrefix(opt, "-"):
		if len(args) < 3 {
			return usage()
		}
		e, ok := signalByNumber(opt[1:])
		if !ok {
			e, ok = signalByName(opt[1:])
		}
		if !ok {
			return badSpec(opt[1:])
		}
		sig, pids = e.sig, args[2:]
	}

	ret := 0
	for _, arg := range pids {
		pid, err := strconv.Atoi(arg)
		if err != nil {
			errorf(p, "%s: arguments must be process IDs", arg)
			ret = 1
			continue
		}

		if err := p.Kill(pid, sig); err != nil {
			errorf(p, "%d: %s", pid, err)
		}
	}

	return ret
}

func listSignals(p Proc, args []string, usage func() int, badSpec func(string) int) int {
	w := p.Stdout()
	switch len(args) {
	case 0:
		for _, e := range signalTable {
			fmt.Fprintf(w, "[%2d] SIG%s\n", int(e.sig), e.name)
		}
	case 1:
		if e, ok := signalByNumber(args[0]); ok {
			fmt.Fprintln(w, e.name)
		} else if e, ok := signalByName(args[0]); ok {
			fmt.Fprintln(w, int(e.sig))
		} else {
			return badSpec(args[0])
		}
	default:
		return usage()
	}
	return 0
}

func init() {
	addBuiltin("kill", Kill)
}
