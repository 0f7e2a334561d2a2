package commands

// Exec replaces the shell with a program. A builtin is run instead and the
// shell exits with its status.
func Exec(p Proc) int {
	args := p.Args()
	if len(args) < 2 {
		errorf(p, "syntax error: exec command [args...]")
		return 1
	}

	if cmd, ok := Lookup(args[1]); ok {
		code := cmd.Main(&argvProc{Proc: p, argv: args[1:]})
		p.Exit(code)
		return code
	}

	if err := p.Exec(args[1:]); err != nil {
		errorf(p, "%s: %s", args[1], osError(err))
		return 127
	}
	return 0
}

// argvProc overrides the arguments of a process.
type argvProc struct {
	Proc
	argv []string
}

func (a *argvProc) Args() []string {
	return a.argv
}

func init() {
	addBuiltin("exec", Exec)
}
