package commands

import "strings"

// Export sets environment variables given as key=value. The status is the
// position of the last entry that could not be set, 0 if all were.
func Export(p Proc) int {
	args := p.Args()
	if len(args) < 2 {
		errorf(p, "syntax error: export key1=value1 [key2=value2...]")
		return 127
	}

	ret := 0
	for i, entry := range args[1:] {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			errorf(p, "%s: syntax must be key=value", entry)
			ret = i + 1
			continue
		}

		if err := p.Setenv(key, value); err != nil {
			errorf(p, "%s: %s", key, err)
			ret = i + 1
		}
	}

	return ret
}

func init() {
	addBuiltin("export", Export)
}
