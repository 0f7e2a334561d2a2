package jobs

import (
	"bytes"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func spawn(t *testing.T, script string) int {
	t.Helper()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	require.NoError(t, err)
	defer devNull.Close()

	fd := devNull.Fd()
	pid, err := syscall.ForkExec("/bin/sh", []string{"sh", "-c", script}, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{fd, fd, fd},
	})
	require.NoError(t, err)
	return pid
}

func TestHarvestLastStatus(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	c.Begin()
	first := spawn(t, "exit 7")
	last := spawn(t, "sleep 0.1; exit 3")
	c.Track(first)
	c.Track(last)

	assert.Equal(t, 3, c.Harvest(last))
	c.End()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, out.String())
}

func TestHarvestSignaledIsError(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	c.Begin()
	pid := spawn(t, "exec sleep 10")
	c.Track(pid)

	assert.True(t, c.Relay(unix.SIGKILL))
	assert.Equal(t, ErrorStatus, c.Harvest(pid))
	c.End()

	// Relayed signals end the harvest with a newline.
	assert.Equal(t, "\n", out.String())
}

func TestHarvestKeepsCollectedStatus(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	// gone is tracked but already waited for, so the harvest runs out of
	// children after collecting last.
	gone := spawn(t, "exit 0")
	var ws unix.WaitStatus
	_, err := unix.Wait4(gone, &ws, 0, nil)
	require.NoError(t, err)

	c.Begin()
	last := spawn(t, "exit 4")
	c.Track(gone)
	c.Track(last)

	assert.Equal(t, 4, c.Harvest(last))
	c.End()
	assert.Equal(t, 0, c.Len())
}

func TestHarvestMissingLastIsError(t *testing.T) {
	c := New(&bytes.Buffer{})

	gone := spawn(t, "exit 0")
	var ws unix.WaitStatus
	_, err := unix.Wait4(gone, &ws, 0, nil)
	require.NoError(t, err)

	c.Begin()
	c.Track(gone)
	assert.Equal(t, ErrorStatus, c.Harvest(gone))
	c.End()
}

func TestRelayWithNothingRunning(t *testing.T) {
	c := New(&bytes.Buffer{})
	assert.False(t, c.Relay(unix.SIGINT))
}

func TestHarvestStoppedChild(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	c.Begin()
	pid := spawn(t, "kill -STOP $$; exit 0")
	c.Track(pid)

	assert.Equal(t, ErrorStatus, c.Harvest(pid))
	assert.Equal(t, fmt.Sprintf("[%d] in background\n", pid), out.String())
	assert.Equal(t, 0, c.Len())

	// The child was resumed and can be collected.
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)
	require.NoError(t, err)
	assert.True(t, ws.Exited())
	c.End()
}

func TestHarvestReportsStrangers(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	var notices []Notice
	c.SetNoticeHook(func(n Notice) {
		notices = append(notices, n)
	})

	c.Begin()
	stranger := spawn(t, "exit 5")
	last := spawn(t, "sleep 0.3")
	c.Track(last)

	assert.Equal(t, 0, c.Harvest(last))
	c.End()

	assert.Equal(t, fmt.Sprintf("[%d] 5\n", stranger), out.String())
	assert.Equal(t, []Notice{{Pid: stranger, Kind: Finished, Status: 5}}, notices)
}

func TestReapOutsideHarvest(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	idle := 0
	c.SetIdleHook(func() { idle++ })

	pid := spawn(t, "exit 4")

	deadline := time.Now().Add(5 * time.Second)
	for out.Len() == 0 && time.Now().Before(deadline) {
		c.Reap()
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, fmt.Sprintf("[%d] 4\n", pid), out.String())
	assert.Equal(t, 1, idle)
}

func TestReapWaitsForHarvest(t *testing.T) {
	var out bytes.Buffer
	c := New(&out)

	c.Begin()
	pid := spawn(t, "exit 2")
	c.Track(pid)

	// Not collected while a harvest owns the children.
	time.Sleep(50 * time.Millisecond)
	c.Reap()
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 2, c.Harvest(pid))
	c.End()
	assert.Empty(t, out.String())
}

func TestLiveSet(t *testing.T) {
	c := New(&bytes.Buffer{})
	c.Track(10)
	c.Track(11)
	c.Track(10)
	assert.ElementsMatch(t, []int{10, 11}, c.Live())

	c.Forget(10)
	assert.Equal(t, []int{11}, c.Live())
	assert.Equal(t, 1, c.Len())
}

func TestStartStop(t *testing.T) {
	c := New(&bytes.Buffer{})
	c.Start()
	c.Stop()
	c.Stop()
}
