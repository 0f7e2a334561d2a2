package cmdtree

import (
	"fmt"
	"strings"
)

// String renders the line back into source text that parses to the same tree.
func (l Line) String() string {
	var b strings.Builder
	for i, seq := range l {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(ChainString(seq.Conditionals))
		switch {
		case seq.Op == Background:
			b.WriteString(" &")
		case i < len(l)-1:
			b.WriteString(";")
		}
	}
	return b.String()
}

// ChainString renders a conditional chain.
func ChainString(chain []*Conditional) string {
	var b strings.Builder
	for i, cond := range chain {
		if i > 0 {
			switch cond.Op {
			case Or:
				b.WriteString(" || ")
			default:
				b.WriteString(" && ")
			}
		}
		b.WriteString(cond.Pipeline.String())
	}
	return b.String()
}

func (p *Pipeline) String() string {
	parts := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		parts[i] = stage.String()
	}
	return strings.Join(parts, " | ")
}

func (s *Stage) String() string {
	var parts []string
	switch body := s.Body.(type) {
	case Words:
		for _, word := range body {
			parts = append(parts, Quote(word))
		}
	case *Subshell:
		parts = append(parts, "("+body.Line.String()+")")
	}
	for _, redir := range s.Redirections {
		parts = append(parts, redir.String())
	}
	return strings.Join(parts, " ")
}

func (r *FileRedir) String() string {
	op := "<"
	switch r.Dir {
	case Out:
		op = ">"
	case Append:
		op = ">>"
	}
	return fmt.Sprintf("%d%s%s", r.Fd, op, Quote(r.Path))
}

func (r *DescRedir) String() string {
	op := "<&"
	if r.Mode == Write {
		op = ">&"
	}
	switch r.Op {
	case Close:
		return fmt.Sprintf("%d%s-", r.Src, op)
	case DupClose:
		return fmt.Sprintf("%d%s%d-", r.Dst, op, r.Src)
	default:
		return fmt.Sprintf("%d%s%d", r.Dst, op, r.Src)
	}
}

// Quote returns word in a form Parse reads back as the same single word.
func Quote(word string) string {
	if word == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(word); i++ {
		if !isSafe(word[i]) {
			safe = false
			break
		}
	}
	if safe {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	default:
		return strings.IndexByte("_@%+=:,./$-~!", c) >= 0
	}
}
