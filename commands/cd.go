package commands

// Cd changes the shell's working directory and updates PWD.
func Cd(p Proc) int {
	args := p.Args()
	if len(args) > 2 {
		errorf(p, "syntax error: cd [directory]")
		return 1
	}

	var dir string
	if len(args) == 2 {
		dir = args[1]
	} else {
		home, ok := p.Getenv("HOME")
		if !ok {
			errorf(p, "$HOME not set")
			return 2
		}
		dir = home
	}

	if err := p.Chdir(dir); err != nil {
		errorf(p, "%s: %s", dir, osError(err))
		return 3
	}

	if wd, err := p.Getwd(); err == nil {
		p.Setenv("PWD", wd)
	}

	return 0
}

func init() {
	addBuiltin("cd", Cd)
}
