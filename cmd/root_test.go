package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildFlags(t *testing.T) {
	defer func(c, e string, d bool) { cfgPath, eventLogPath, debug = c, e, d }(cfgPath, eventLogPath, debug)

	cfgPath, eventLogPath, debug = "", "", false
	assert.Equal(t, []string{"--name", "lish"}, childFlags("lish"))

	cfgPath, eventLogPath, debug = "/etc/lish", "/var/log/lish.jsonl", true
	assert.Equal(t, []string{
		"--name", "sh",
		"--config", "/etc/lish",
		"--event-log", "/var/log/lish.jsonl",
		"--debug",
	}, childFlags("sh"))
}

func TestHelpListsPromptEscapes(t *testing.T) {
	help := promptHelp()
	for _, esc := range []string{`\$`, `\h`, `\w`, `\W`, `\v and \V`} {
		assert.Contains(t, help, esc)
	}
}

func TestVersionText(t *testing.T) {
	var b bytes.Buffer
	versionText(&b)
	assert.Contains(t, b.String(), "Lish Ner'zhul 1.0.5\n")
}

func TestChildCommandIsHidden(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"__child", "--", "builtin", "3", "echo"})
	assert.NoError(t, err)
	assert.Equal(t, childCmd, cmd)
	assert.True(t, cmd.Hidden)
}

func TestBuiltinsCommand(t *testing.T) {
	var out bytes.Buffer
	builtinsCmd.SetOut(&out)
	assert.NoError(t, builtinsCmd.RunE(builtinsCmd, nil))
	assert.Equal(t, "cd\necho\nexec\nexit\nexport\nhistory\nkill\n", out.String())
}
