package commands_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/josephlewis42/lish/commands"
	"github.com/josephlewis42/lish/commands/commandstest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestEcho(t *testing.T) {
	runOutputTests(t, commands.Echo, []outputTest{
		{[]string{"echo"}, 0, "\n"},
		{[]string{"echo", "a"}, 0, "a\n"},
		{[]string{"echo", "a", "b  c", "-n"}, 0, "a b  c -n\n"},
	})
}

func TestCd(t *testing.T) {
	runOutputTests(t, commands.Cd, []outputTest{
		{[]string{"cd", "a", "b"}, 1, "lish: cd: syntax error: cd [directory]\n"},
		{[]string{"cd"}, 2, "lish: cd: $HOME not set\n"},
		{[]string{"cd", "/missing"}, 3, "lish: cd: /missing: no such file or directory\n"},
	})
}

func TestCd_updatesPWD(t *testing.T) {
	c := commandstest.Command(commands.ShellBuiltinFunc(commands.Cd), "cd", "tmp")
	c.Dirs = []string{"/tmp", "/home/u"}
	assert.Equal(t, 0, c.Run())
	assert.Equal(t, "/tmp", c.Dir)
	assert.Equal(t, "/tmp", c.Env["PWD"])

	c = commandstest.Command(commands.ShellBuiltinFunc(commands.Cd), "cd")
	c.Dirs = []string{"/home/u"}
	c.Env["HOME"] = "/home/u"
	assert.Equal(t, 0, c.Run())
	assert.Equal(t, "/home/u", c.Env["PWD"])
}

func TestExit(t *testing.T) {
	cases := []struct {
		args     []string
		status   int
		exited   bool
		exitCode int
	}{
		{[]string{"exit"}, 0, true, 0},
		{[]string{"exit", "3"}, 3, true, 3},
		{[]string{"exit", "0x10"}, 16, true, 16},
		{[]string{"exit", "010"}, 8, true, 8},
		{[]string{"exit", "-1"}, -1, true, -1},
		{[]string{"exit", "abc"}, 2, false, 0},
		{[]string{"exit", "1", "2"}, 1, false, 0},
	}

	for _, tc := range cases {
		c := commandstest.Command(commands.ShellBuiltinFunc(commands.Exit), tc.args[0], tc.args[1:]...)
		assert.Equal(t, tc.status, c.Run(), "%v", tc.args)
		assert.Equal(t, tc.exited, c.Exited, "%v", tc.args)
		assert.Equal(t, tc.exitCode, c.ExitCode, "%v", tc.args)
	}
}

func TestExit_messages(t *testing.T) {
	runOutputTests(t, commands.Exit, []outputTest{
		{[]string{"exit", "abc"}, 2, "lish: exit: abc: invalid code\n"},
		{[]string{"exit", "1", "2"}, 1, "lish: exit: syntax error: exit [code]\n"},
	})
}

func TestExport(t *testing.T) {
	runOutputTests(t, commands.Export, []outputTest{
		{[]string{"export"}, 127, "lish: export: syntax error: export key1=value1 [key2=value2...]\n"},
		{[]string{"export", "A=1"}, 0, ""},
		{[]string{"export", "A", "B=2", "C"}, 3, "lish: export: A: syntax must be key=value\nlish: export: C: syntax must be key=value\n"},
		{[]string{"export", "=x", "B=2"}, 1, "lish: export: =x: syntax must be key=value\n"},
	})

	c := commandstest.Command(commands.ShellBuiltinFunc(commands.Export), "export", "A=1", "B=x=y", "E=")
	assert.Equal(t, 0, c.Run())
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "E": ""}, c.Env)
}

func TestExec(t *testing.T) {
	runOutputTests(t, commands.Exec, []outputTest{
		{[]string{"exec"}, 1, "lish: exec: syntax error: exec command [args...]\n"},
		{[]string{"exec", "missing-program"}, 127, "lish: exec: missing-program: no such file or directory\n"},
	})

	c := commandstest.Command(commands.ShellBuiltinFunc(commands.Exec), "exec", "ls", "-l")
	c.ExecErr = errors.New("permission denied")
	assert.Equal(t, 127, c.Run())
	assert.Equal(t, []string{"ls", "-l"}, c.Execed)
}

func TestExec_builtin(t *testing.T) {
	c := commandstest.Command(commands.ShellBuiltinFunc(commands.Exec), "exec", "echo", "hi")
	out := c.CombinedOutput()

	assert.Equal(t, "hi\n", string(out))
	assert.True(t, c.Exited)
	assert.Equal(t, 0, c.ExitCode)
	assert.Nil(t, c.Execed)

	c = commandstest.Command(commands.ShellBuiltinFunc(commands.Exec), "exec", "exit", "5")
	assert.Equal(t, 5, c.Run())
	assert.True(t, c.Exited)
	assert.Equal(t, 5, c.ExitCode)
}

func TestHistory(t *testing.T) {
	c := commandstest.Command(commands.ShellBuiltinFunc(commands.History), "history")
	c.Hist = &commandstest.FakeHistory{Lines: []string{"ls", "echo hi"}}
	out := c.CombinedOutput()
	assert.Equal(t, 0, c.ExitStatus)
	assert.Equal(t, "[ 0] ls\n[ 1] echo hi\n", string(out))

	c = commandstest.Command(commands.ShellBuiltinFunc(commands.History), "history", "-c")
	c.Hist = &commandstest.FakeHistory{Lines: []string{"ls"}}
	assert.Equal(t, 0, c.Run())
	assert.Empty(t, c.Hist.Lines)
}

func TestHistory_errors(t *testing.T) {
	runOutputTests(t, commands.History, []outputTest{
		{[]string{"history", "-x"}, 1, "lish: history: syntax error: history [-c]\n"},
		{[]string{"history", "extra"}, 1, "lish: history: syntax error: history [-c]\n"},
		{[]string{"history"}, 127, "lish: history: history unavailable\n"},
	})
}

func TestHistory_help(t *testing.T) {
	c := commandstest.Command(commands.ShellBuiltinFunc(commands.History), "history", "--help")
	out := string(c.CombinedOutput())

	assert.Equal(t, 0, c.ExitStatus)
	assert.Contains(t, out, "usage: history [-c]\n")
	assert.Contains(t, out, "clear the history")
}

func TestKill_list(t *testing.T) {
	cases := goldenTestSuite{
		"kill-list": {Args: []string{"kill", "-l"}},
	}

	cases.Run(t, commands.Kill)
}

func TestKill_messages(t *testing.T) {
	runOutputTests(t, commands.Kill, []outputTest{
		{[]string{"kill"}, 2, "lish: kill: usage: kill [{-[SIG]NAME | -NUMBER}] pid [pid...]\n"},
		{[]string{"kill", "-9"}, 2, "lish: kill: usage: kill [{-[SIG]NAME | -NUMBER}] pid [pid...]\n"},
		{[]string{"kill", "-s", "TERM"}, 2, "lish: kill: usage: kill [{-[SIG]NAME | -NUMBER}] pid [pid...]\n"},
		{[]string{"kill", "-l", "a", "b"}, 2, "lish: kill: usage: kill [{-[SIG]NAME | -NUMBER}] pid [pid...]\n"},
		{[]string{"kill", "-l", "9"}, 0, "KILL\n"},
		{[]string{"kill", "-l", "sigint"}, 0, "2\n"},
		{[]string{"kill", "-l", "bogus"}, 3, "lish: kill: bogus: invalid signal specification\n"},
		{[]string{"kill", "-FOO", "1"}, 3, "lish: kill: FOO: invalid signal specification\n"},
		{[]string{"kill", "-n", "999", "1"}, 3, "lish: kill: 999: invalid signal specification\n"},
		{[]string{"kill", "x"}, 1, "lish: kill: x: arguments must be process IDs\n"},
	})
}

func TestKill_signals(t *testing.T) {
	cases := []struct {
		args []string
		want []commandstest.Signal
	}{
		{[]string{"kill", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGTERM}}},
		{[]string{"kill", "-9", "10", "11"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGKILL}, {Pid: 11, Sig: unix.SIGKILL}}},
		{[]string{"kill", "-HUP", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGHUP}}},
		{[]string{"kill", "-sigusr1", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGUSR1}}},
		{[]string{"kill", "-s", "Int", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGINT}}},
		{[]string{"kill", "-n", "15", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGTERM}}},
		{[]string{"kill", "-STOP", "x", "10"}, []commandstest.Signal{{Pid: 10, Sig: unix.SIGSTOP}}},
	}

	for _, tc := range cases {
		c := commandstest.Command(commands.ShellBuiltinFunc(commands.Kill), tc.args[0], tc.args[1:]...)
		c.Run()
		assert.Equal(t, tc.want, c.Signals, "%v", tc.args)
	}
}

func TestKill_failureKeepsGoing(t *testing.T) {
	c := commandstest.Command(commands.ShellBuiltinFunc(commands.Kill), "kill", "10", "11")
	c.KillErr = syscall.ESRCH
	out := c.CombinedOutput()

	assert.Equal(t, 0, c.ExitStatus)
	assert.Len(t, c.Signals, 2)
	assert.Equal(t, "lish: kill: 10: no such process\nlish: kill: 11: no such process\n", string(out))
}
