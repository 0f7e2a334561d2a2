package commands

import "strconv"

// Exit asks the shell to terminate with the given code, 0 by default. The
// code accepts the 0x and 0 prefixes for hex and octal.
func Exit(p Proc) int {
	args := p.Args()
	if len(args) > 2 {
		errorf(p, "syntax error: exit [code]")
		return 1
	}

	code := 0
	if len(args) == 2 {
		n, err := strconv.ParseInt(args[1], 0, 64)
		if err != nil {
			errorf(p, "%s: invalid code", args[1])
			return 2
		}
		code = int(n)
	}

	p.Exit(code)
	return code
}

func init() {
	addBuiltin("exit", Exit)
}
