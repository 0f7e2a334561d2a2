package commands

import (
	"fmt"
	"strings"
)

// Echo writes its arguments separated by spaces. It takes no options.
func Echo(p Proc) int {
	fmt.Fprintln(p.Stdout(), strings.Join(p.Args()[1:], " "))
	return 0
}

func init() {
	addBuiltin("echo", Echo)
}
