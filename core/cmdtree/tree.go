// Package cmdtree holds the parsed form of one command line.
//
// A line is a list of sequence nodes, each a chain of conditionals whose
// pipelines are made of redirected stages. Trees are built once by Parse and
// are only read afterwards.
package cmdtree

// SeqOp is the terminator of a sequence node.
type SeqOp int

const (
	// Sequential chains run in the foreground (";" or end of line).
	Sequential SeqOp = iota
	// Background chains run detached ("&").
	Background
)

func (o SeqOp) String() string {
	if o == Background {
		return "BACK"
	}
	return "SEQ"
}

// CondOp is the operator that precedes a conditional in its chain.
type CondOp int

const (
	None CondOp = iota
	And
	Or
)

func (o CondOp) String() string {
	switch o {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return "NOP"
	}
}

// Line is one parsed input line.
type Line []*Sequence

// Sequence is a conditional chain with its terminator.
type Sequence struct {
	Conditionals []*Conditional
	Op           SeqOp
}

// Conditional is a pipeline guarded by the operator before it.
type Conditional struct {
	Op       CondOp
	Pipeline *Pipeline
}

// Pipeline is an ordered list of stages connected by pipes.
type Pipeline struct {
	Stages []*Stage
}

// Stage is one command of a pipeline with its redirections.
type Stage struct {
	Redirections []Redirection
	Body         Body
}

// Body is either Words or *Subshell.
type Body interface {
	isBody()
}

// Words is a simple command. Tokens starting with '$' name environment
// variables.
type Words []string

// Subshell is a parenthesized line run in its own process.
type Subshell struct {
	Line Line
}

func (Words) isBody()     {}
func (*Subshell) isBody() {}

// Direction of a file redirection.
type Direction int

const (
	In Direction = iota
	Out
	Append
)

// AccessMode is the access a descriptor redirection needs from its source.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

// DescOp is what a descriptor redirection does.
type DescOp int

const (
	Dup DescOp = iota
	Close
	DupClose
)

// Redirection is either *FileRedir or *DescRedir.
type Redirection interface {
	isRedirection()
	String() string
}

// FileRedir opens Path onto descriptor Fd.
type FileRedir struct {
	Fd   int
	Dir  Direction
	Path string
}

// DescRedir duplicates and/or closes descriptors. For Close, Src and Dst are
// the same descriptor.
type DescRedir struct {
	Src  int
	Dst  int
	Mode AccessMode
	Op   DescOp
}

func (*FileRedir) isRedirection() {}
func (*DescRedir) isRedirection() {}
