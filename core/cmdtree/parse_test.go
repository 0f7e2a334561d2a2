package cmdtree

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(w ...string) *Stage {
	return &Stage{Body: Words(w)}
}

func pipe(stages ...*Stage) *Pipeline {
	return &Pipeline{Stages: stages}
}

func chain(pipelines ...*Pipeline) []*Conditional {
	var out []*Conditional
	for _, p := range pipelines {
		out = append(out, &Conditional{Pipeline: p})
	}
	return out
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line string
		want Line
	}{
		"empty":   {"", nil},
		"blank":   {"   \t", nil},
		"comment": {"# nothing here", nil},
		"simple": {
			"echo hello world",
			Line{{Conditionals: chain(pipe(words("echo", "hello", "world")))}},
		},
		"trailing-comment": {
			"ls -l # list",
			Line{{Conditionals: chain(pipe(words("ls", "-l")))}},
		},
		"variables-stay-literal": {
			"echo $HOME",
			Line{{Conditionals: chain(pipe(words("echo", "$HOME")))}},
		},
		"quotes": {
			`echo 'a b' "c;d" e\|f`,
			Line{{Conditionals: chain(pipe(words("echo", "a b", "c;d", "e|f")))}},
		},
		"empty-quotes": {
			`echo ''`,
			Line{{Conditionals: chain(pipe(words("echo", "")))}},
		},
		"sequence": {
			"a; b",
			Line{
				{Conditionals: chain(pipe(words("a")))},
				{Conditionals: chain(pipe(words("b")))},
			},
		},
		"trailing-semicolon": {
			"a;",
			Line{{Conditionals: chain(pipe(words("a")))}},
		},
		"background": {
			"sleep 1 & echo x",
			Line{
				{Conditionals: chain(pipe(words("sleep", "1"))), Op: Background},
				{Conditionals: chain(pipe(words("echo", "x")))},
			},
		},
		"and-or": {
			"false && a || b",
			Line{{Conditionals: []*Conditional{
				{Op: None, Pipeline: pipe(words("false"))},
				{Op: And, Pipeline: pipe(words("a"))},
				{Op: Or, Pipeline: pipe(words("b"))},
			}}},
		},
		"pipeline": {
			"ls|wc -l",
			Line{{Conditionals: chain(pipe(words("ls"), words("wc", "-l")))}},
		},
		"subshell": {
			"(cd /; ls) | cat",
			Line{{Conditionals: chain(pipe(
				&Stage{Body: &Subshell{Line: Line{
					{Conditionals: chain(pipe(words("cd", "/")))},
					{Conditionals: chain(pipe(words("ls")))},
				}}},
				words("cat"),
			))}},
		},
		"file-redirections": {
			"sort <in >out 2>>err",
			Line{{Conditionals: chain(pipe(&Stage{
				Body: Words{"sort"},
				Redirections: []Redirection{
					&FileRedir{Fd: 0, Dir: In, Path: "in"},
					&FileRedir{Fd: 1, Dir: Out, Path: "out"},
					&FileRedir{Fd: 2, Dir: Append, Path: "err"},
				},
			}))}},
		},
		"redirection-spaced-target": {
			"echo hi > 'my file'",
			Line{{Conditionals: chain(pipe(&Stage{
				Body:         Words{"echo", "hi"},
				Redirections: []Redirection{&FileRedir{Fd: 1, Dir: Out, Path: "my file"}},
			}))}},
		},
		"redirection-ends-word": {
			"echo hi>out",
			Line{{Conditionals: chain(pipe(&Stage{
				Body:         Words{"echo", "hi"},
				Redirections: []Redirection{&FileRedir{Fd: 1, Dir: Out, Path: "out"}},
			}))}},
		},
		"descriptor-redirections": {
			"cmd 2>&1 3<&0 4>&- 0<&- 5<&3-",
			Line{{Conditionals: chain(pipe(&Stage{
				Body: Words{"cmd"},
				Redirections: []Redirection{
					&DescRedir{Src: 1, Dst: 2, Mode: Write, Op: Dup},
					&DescRedir{Src: 0, Dst: 3, Mode: Read, Op: Dup},
					&DescRedir{Src: 4, Dst: 4, Mode: Write, Op: Close},
					&DescRedir{Src: 0, Dst: 0, Mode: Read, Op: Close},
					&DescRedir{Src: 3, Dst: 5, Mode: Read, Op: DupClose},
				},
			}))}},
		},
		"redirection-only": {
			">out",
			Line{{Conditionals: chain(pipe(&Stage{
				Body:         Words{},
				Redirections: []Redirection{&FileRedir{Fd: 1, Dir: Out, Path: "out"}},
			}))}},
		},
		"digits-are-words": {
			"echo 123abc",
			Line{{Conditionals: chain(pipe(words("echo", "123abc")))}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := Parse(tc.line)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.line, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		line    string
		wantPos int
		wantMsg string
	}{
		{"| cat", 0, `unexpected "|"`},
		{"ls |", 4, "missing command"},
		{"a && && b", 5, `unexpected "&"`},
		{"a ;; b", 3, `unexpected ";"`},
		{"(echo", 5, `missing ")"`},
		{"echo )", 5, `unexpected ")"`},
		{"()", 1, "empty subshell"},
		{"(a) b", 4, "unexpected word after subshell"},
		{"echo (a)", 5, `unexpected "("`},
		{"echo >", 6, `missing file name after ">"`},
		{"echo 2>&x", 8, `missing descriptor after ">&"`},
		{"echo 'oops", 5, "unterminated quote"},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			_, err := Parse(tc.line)
			require.Error(t, err)

			parseErr, ok := err.(Error)
			require.True(t, ok, "error type %T", err)
			require.Len(t, parseErr.Errors, 1)
			assert.Equal(t, tc.wantPos, parseErr.Errors[0].Position)
			assert.Equal(t, tc.wantMsg, parseErr.Errors[0].Message)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"echo hello",
		"echo 'a b' \"it's\" '#x' ''",
		"a && b || c; d &",
		"ls | wc -l > out 2>&1",
		"(cd /tmp; ls) | cat 3<&0-",
		"(exec sleep 1 &) 0<&- 1>>log",
		"echo $HOME ~ x=y",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			tree, err := Parse(line)
			require.NoError(t, err)

			rendered := tree.String()
			again, err := Parse(rendered)
			require.NoError(t, err, "rendered: %q", rendered)

			if diff := cmp.Diff(tree, again); diff != "" {
				t.Errorf("round trip of %q via %q mismatch (-want +got):\n%s", line, rendered, diff)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	cases := []struct {
		word string
		want string
	}{
		{"plain", "plain"},
		{"$HOME", "$HOME"},
		{"", "''"},
		{"a b", "'a b'"},
		{"it's", `'it'\''s'`},
		{"a;b", "'a;b'"},
	}

	for _, tc := range cases {
		t.Run(tc.word, func(t *testing.T) {
			assert.Equal(t, tc.want, Quote(tc.word))
		})
	}
}

func TestDump(t *testing.T) {
	tree, err := Parse("cat < in | (echo a && echo b) 2>&1; sleep 1 &")
	require.NoError(t, err)

	var buf bytes.Buffer
	Dump(&buf, tree)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
	g.Assert(t, "dump", buf.Bytes())
}
