package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lines []string
	err   error
}

func (f *fakeSource) Last() (string, error) {
	return f.lines[len(f.lines)-1], f.err
}

func (f *fakeSource) Nth(i int64) (string, error) {
	if i < 0 || int(i) >= len(f.lines) {
		return "missing", f.err
	}
	return f.lines[i], f.err
}

func (f *fakeSource) Search(prefix string) (string, error) {
	return "search:" + prefix, f.err
}

func TestExpand(t *testing.T) {
	src := &fakeSource{lines: []string{"ls -l", "make test"}}

	cases := []struct {
		line         string
		want         string
		wantReplayed bool
	}{
		{"echo hi", "echo hi", false},
		{"!", "!", false},
		{"! true", "! true", false},
		{"!!", "make test", true},
		{"  !!", "make test", true},
		{"!! | wc", "make test | wc", true},
		{"!0", "ls -l", true},
		{"!1;echo", "make test;echo", true},
		{"!9", "missing", true},
		{"!ma", "search:ma", true},
		{"!ls -a", "search:ls -a", true},
		{"!gi|x", "search:gi|x", true},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, replayed, err := Expand(tc.line, src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantReplayed, replayed)
		})
	}
}

func TestExpandError(t *testing.T) {
	src := &fakeSource{lines: []string{"x"}, err: errors.New("lock failed")}
	got, replayed, err := Expand("!!", src)
	assert.Error(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "!!", got)
}
