package cmdtree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented description of the tree, one node per line.
func Dump(w io.Writer, line Line) {
	d := dumper{w: w}
	d.line(line, 0)
}

type dumper struct {
	w io.Writer
}

func (d dumper) printf(depth int, format string, a ...interface{}) {
	fmt.Fprint(d.w, strings.Repeat("|   ", depth))
	fmt.Fprintf(d.w, format, a...)
	fmt.Fprintln(d.w)
}

func (d dumper) line(line Line, depth int) {
	d.printf(depth, "COMMAND")
	for i, seq := range line {
		d.printf(depth+1, "SEQUENCE %d (op=%s)", i, seq.Op)
		for j, cond := range seq.Conditionals {
			d.printf(depth+2, "CONDITIONAL %d (op=%s)", j, cond.Op)
			for k, stage := range cond.Pipeline.Stages {
				d.printf(depth+3, "PIPELINE ELEMENT %d", k)
				d.stage(stage, depth+4)
			}
		}
	}
}

func (d dumper) stage(stage *Stage, depth int) {
	d.printf(depth, "REDIRECTED COMMAND")
	switch body := stage.Body.(type) {
	case Words:
		d.printf(depth+1, "SIMPLE (type=SIMPLE)")
		quoted := make([]string, len(body))
		for i, word := range body {
			quoted[i] = "[" + word + "]"
		}
		d.printf(depth+2, "%s", strings.Join(quoted, " "))
	case *Subshell:
		d.printf(depth+1, "SIMPLE (type=SUBSHELL)")
		d.line(body.Line, depth+2)
	}

	if len(stage.Redirections) > 0 {
		d.printf(depth+1, "REDIRECTIONS")
		for _, redir := range stage.Redirections {
			d.printf(depth+2, "%s", dumpRedirection(redir))
		}
	}
}

func dumpRedirection(redir Redirection) string {
	switch r := redir.(type) {
	case *FileRedir:
		op := map[Direction]string{In: "<", Out: ">", Append: ">>"}[r.Dir]
		return fmt.Sprintf("%d%s%s", r.Fd, op, r.Path)
	case *DescRedir:
		return r.String()
	}
	return ""
}
