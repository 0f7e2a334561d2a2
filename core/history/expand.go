package history

import (
	"strconv"
	"strings"
)

// Source is what Expand reads replayed lines from.
type Source interface {
	Last() (string, error)
	Nth(i int64) (string, error)
	Search(prefix string) (string, error)
}

// Expand replaces a leading history reference in line:
//
//	!!        the last line
//	!N        the line with logical index N
//	!prefix   the most recent line starting with prefix
//
// Text after the reference is kept. replayed is false when the line holds no
// reference.
func Expand(line string, src Source) (expanded string, replayed bool, err error) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 2 || trimmed[0] != '!' {
		return line, false, nil
	}

	var (
		replacement string
		rest        string
	)
	switch ref := trimmed[1:]; {
	case ref[0] == '!':
		rest = ref[1:]
		replacement, err = src.Last()

	case isDigit(ref[0]):
		end := strings.IndexFunc(ref, func(r rune) bool { return r < '0' || r > '9' })
		if end < 0 {
			end = len(ref)
		}
		rest = ref[end:]
		n, convErr := strconv.ParseInt(ref[:end], 10, 64)
		if convErr != nil {
			return line, false, convErr
		}
		replacement, err = src.Nth(n)

	case strings.IndexByte(" \t;&|()<>", ref[0]) >= 0:
		return line, false, nil

	default:
		end := strings.IndexAny(ref, " \t;&|()<>")
		if end < 0 {
			end = len(ref)
		}
		rest = ref[end:]
		replacement, err = src.Search(ref[:end])
	}
	if err != nil {
		return line, false, err
	}
	return replacement + rest, true, nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
