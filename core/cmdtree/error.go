package cmdtree

import (
	"fmt"
	"strings"
)

// Error is the error type returned by Parse.
type Error struct {
	Errors []ErrorEntry
}

func (err Error) Error() string {
	var b strings.Builder
	for i, e := range err.Errors {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%v: %v", e.Position, e.Message)
	}
	return b.String()
}

// ErrorEntry is one parse error; Position is a byte offset into the line.
type ErrorEntry struct {
	Position int
	Message  string
}
