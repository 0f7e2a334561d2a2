package cmdtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// Characters that end a word.
const operatorChars = ";&|()<>"

type parser struct {
	text string
	pos  int
	err  Error
}

// Parse parses one input line. An empty or comment-only line yields an empty
// Line and no error.
func Parse(text string) (Line, error) {
	p := &parser{text: text}
	line := p.parseLine()
	if !p.failed() && !p.eof() {
		p.errorf("unexpected %q", p.rest()[:1])
	}
	if p.failed() {
		return nil, p.err
	}
	return line, nil
}

func (p *parser) rest() string {
	return p.text[p.pos:]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.text)
}

func (p *parser) failed() bool {
	return len(p.err.Errors) > 0
}

func (p *parser) errorf(format string, a ...interface{}) {
	p.err.Errors = append(p.err.Errors, ErrorEntry{p.pos, fmt.Sprintf(format, a...)})
}

func (p *parser) consume(i int) string {
	consumed := p.rest()[:i]
	p.pos += i
	return consumed
}

func (p *parser) consumeWhile(f func(c byte) bool) string {
	i := 0
	for rest := p.rest(); i < len(rest) && f(rest[i]); i++ {
	}
	return p.consume(i)
}

func (p *parser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(p.rest(), prefix)
}

func (p *parser) hasPrefixIn(prefixes ...string) string {
	for _, prefix := range prefixes {
		if p.hasPrefix(prefix) {
			return prefix
		}
	}
	return ""
}

func (p *parser) skipSpace() {
	p.consumeWhile(isSpace)
}

// atCommandEnd reports whether the next token ends a stage.
func (p *parser) atCommandEnd() bool {
	return p.eof() || p.hasPrefixIn(";", "&", "|", ")", "#") != ""
}

func (p *parser) parseLine() Line {
	var line Line
	for {
		p.skipSpace()
		if p.hasPrefix("#") {
			p.consume(len(p.rest()))
		}
		if p.eof() || p.hasPrefix(")") {
			return line
		}

		seq := &Sequence{Conditionals: p.parseChain()}
		if p.failed() {
			return nil
		}

		p.skipSpace()
		switch {
		case p.hasPrefix(";"):
			p.consume(1)
		case p.hasPrefix("&"):
			p.consume(1)
			seq.Op = Background
		case p.eof(), p.hasPrefix(")"), p.hasPrefix("#"):
		default:
			p.errorf("unexpected %q", p.rest()[:1])
			return nil
		}
		line = append(line, seq)
	}
}

func (p *parser) parseChain() []*Conditional {
	var chain []*Conditional
	op := None
	for {
		pipeline := p.parsePipeline()
		if p.failed() {
			return nil
		}
		chain = append(chain, &Conditional{Op: op, Pipeline: pipeline})

		p.skipSpace()
		switch p.hasPrefixIn("&&", "||") {
		case "&&":
			op = And
		case "||":
			op = Or
		default:
			return chain
		}
		p.consume(2)
	}
}

func (p *parser) parsePipeline() *Pipeline {
	pipeline := &Pipeline{}
	for {
		stage := p.parseStage()
		if p.failed() {
			return nil
		}
		pipeline.Stages = append(pipeline.Stages, stage)

		p.skipSpace()
		if !p.hasPrefix("|") || p.hasPrefix("||") {
			return pipeline
		}
		p.consume(1)
	}
}

func (p *parser) parseStage() *Stage {
	stage := &Stage{}
	words := Words{}
	for {
		p.skipSpace()
		if p.atCommandEnd() {
			break
		}

		if p.hasPrefix("(") {
			if stage.Body != nil || len(words) > 0 || len(stage.Redirections) > 0 {
				p.errorf("unexpected %q", "(")
				return nil
			}
			p.consume(1)
			inner := p.parseLine()
			if p.failed() {
				return nil
			}
			if !p.hasPrefix(")") {
				p.errorf("missing %q", ")")
				return nil
			}
			if len(inner) == 0 {
				p.errorf("empty subshell")
				return nil
			}
			p.consume(1)
			stage.Body = &Subshell{Line: inner}
			continue
		}

		if redir := p.parseRedirection(); redir != nil || p.failed() {
			if p.failed() {
				return nil
			}
			stage.Redirections = append(stage.Redirections, redir)
			continue
		}

		if stage.Body != nil {
			p.errorf("unexpected word after subshell")
			return nil
		}
		word := p.parseWord()
		if p.failed() {
			return nil
		}
		words = append(words, word)
	}

	if stage.Body == nil {
		if len(words) == 0 && len(stage.Redirections) == 0 {
			if p.eof() {
				p.errorf("missing command")
			} else {
				p.errorf("unexpected %q", p.rest()[:1])
			}
			return nil
		}
		stage.Body = words
	}
	return stage
}

// parseRedirection parses a redirection at the current position, returning
// nil without consuming anything if there is none.
func (p *parser) parseRedirection() Redirection {
	rest := p.rest()
	digits := 0
	for digits < len(rest) && isDigit(rest[digits]) {
		digits++
	}
	if digits == len(rest) || (rest[digits] != '<' && rest[digits] != '>') {
		return nil
	}

	fd := -1
	if digits > 0 {
		n, err := strconv.Atoi(rest[:digits])
		if err != nil {
			p.errorf("bad descriptor %q", rest[:digits])
			return nil
		}
		fd = n
	}
	p.consume(digits)

	op := p.hasPrefixIn(">>", "<&", ">&", "<", ">")
	p.consume(len(op))
	if fd < 0 {
		fd = 1
		if op[0] == '<' {
			fd = 0
		}
	}

	switch op {
	case "<&", ">&":
		mode := Read
		if op == ">&" {
			mode = Write
		}
		p.skipSpace()
		if p.hasPrefix("-") {
			p.consume(1)
			return &DescRedir{Src: fd, Dst: fd, Mode: mode, Op: Close}
		}
		src := p.consumeWhile(isDigit)
		if src == "" {
			p.errorf("missing descriptor after %q", op)
			return nil
		}
		n, err := strconv.Atoi(src)
		if err != nil {
			p.errorf("bad descriptor %q", src)
			return nil
		}
		redir := &DescRedir{Src: n, Dst: fd, Mode: mode, Op: Dup}
		if p.hasPrefix("-") {
			p.consume(1)
			redir.Op = DupClose
		}
		return redir

	default:
		p.skipSpace()
		if p.atCommandEnd() || p.hasPrefixIn("<", ">", "(") != "" {
			p.errorf("missing file name after %q", op)
			return nil
		}
		path := p.parseWord()
		if p.failed() {
			return nil
		}
		redir := &FileRedir{Fd: fd, Path: path}
		switch op {
		case "<":
			redir.Dir = In
		case ">":
			redir.Dir = Out
		default:
			redir.Dir = Append
		}
		return redir
	}
}

// parseWord scans one word, honouring quotes and backslashes, and returns it
// unquoted.
func (p *parser) parseWord() string {
	start := p.pos
scan:
	for !p.eof() {
		c := p.text[p.pos]
		switch {
		case isSpace(c) || strings.IndexByte(operatorChars, c) >= 0:
			break scan
		case c == '\\':
			p.pos += 2
			if p.pos > len(p.text) {
				p.pos = len(p.text)
			}
		case c == '\'':
			end := strings.IndexByte(p.text[p.pos+1:], '\'')
			if end < 0 {
				p.errorf("unterminated quote")
				return ""
			}
			p.pos += end + 2
		case c == '"':
			i := p.pos + 1
			for i < len(p.text) && p.text[i] != '"' {
				if p.text[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(p.text) {
				p.errorf("unterminated quote")
				return ""
			}
			p.pos = i + 1
		default:
			p.pos++
		}
	}

	raw := p.text[start:p.pos]
	if !strings.ContainsAny(raw, `'"\`) {
		return raw
	}
	tokens, err := shlex.Split(raw, true)
	if err != nil {
		p.pos = start
		p.errorf("%v", err)
		return ""
	}
	return strings.Join(tokens, "")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
