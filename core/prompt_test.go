package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	info := promptInfo{
		Name:     "lish",
		User:     "ada",
		Hostname: "box.example.com",
		Home:     "/home/ada",
		Cwd:      "/home/ada/src/lish",
	}

	cases := map[string]struct {
		ps1  string
		root bool
		want string
	}{
		"literal":        {ps1: "> ", want: "> "},
		"default":        {ps1: DefaultPrompt, want: "lish$ "},
		"root":           {ps1: `\$`, root: true, want: "#"},
		"short host":     {ps1: `\h`, want: "box"},
		"full host":      {ps1: `\H`, want: "box.example.com"},
		"user":           {ps1: `\u@\h`, want: "ada@box"},
		"cwd":            {ps1: `\w`, want: "~/src/lish"},
		"cwd name":       {ps1: `\W`, want: "lish"},
		"version":        {ps1: `\v \V`, want: Version + " " + Version},
		"escape":         {ps1: `\e[0m`, want: "\033[0m"},
		"newline":        {ps1: `a\nb`, want: "a\nb"},
		"brackets":       {ps1: `\[x\]`, want: "x"},
		"backslash":      {ps1: `\\`, want: `\`},
		"unknown":        {ps1: `\q`, want: `\q`},
		"trailing slash": {ps1: `x\`, want: `x\`},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			in := info
			in.Root = tc.root
			assert.Equal(t, tc.want, renderPrompt(tc.ps1, in))
		})
	}
}

func TestRenderPromptHomeName(t *testing.T) {
	info := promptInfo{Home: "/home/ada", Cwd: "/home/ada"}
	assert.Equal(t, "~", renderPrompt(`\W`, info))
	assert.Equal(t, "~", renderPrompt(`\w`, info))
}

func TestTildeDir(t *testing.T) {
	assert.Equal(t, "~/x", tildeDir("/home/ada/x", "/home/ada"))
	assert.Equal(t, "~/x", tildeDir("/home/ada/x", "/home/ada/"))
	assert.Equal(t, "/tmp", tildeDir("/tmp", "/home/ada"))
	assert.Equal(t, "/etc", tildeDir("/etc", "/"))
	assert.Equal(t, "/etc", tildeDir("/etc", ""))
}

func TestExeName(t *testing.T) {
	assert.Equal(t, "lish", ExeName("/usr/local/bin/lish"))
	assert.Equal(t, "sh", ExeName("sh"))
	assert.Equal(t, "lish", ExeName(""))
}
