// Package jobs tracks the shell's child processes and routes the terminal
// signals the shell receives to them.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrorStatus is reported for children that stopped or did not exit normally.
const ErrorStatus = 127

// NoticeKind is the kind of an asynchronous child notice.
type NoticeKind string

const (
	// Backgrounded children were stopped and resumed in the background.
	Backgrounded NoticeKind = "background"
	// Finished children were reaped outside of a foreground pipeline.
	Finished NoticeKind = "finished"
)

// Notice describes a child the user is told about.
type Notice struct {
	Pid    int
	Kind   NoticeKind
	Status int
}

// Controller is the per-shell job and signal state.
type Controller struct {
	mu         sync.Mutex
	live       map[int]struct{}
	harvesting bool
	relayed    int

	out    io.Writer
	idle   func()
	notice func(Notice)

	sigs chan os.Signal
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a controller that writes its notices to out.
func New(out io.Writer) *Controller {
	return &Controller{
		live: make(map[int]struct{}),
		out:  out,
	}
}

// SetOutput changes where notices are written.
func (c *Controller) SetOutput(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = out
}

// SetIdleHook sets the function run when an interrupt arrives with nothing
// running or after an asynchronous notice was printed.
func (c *Controller) SetIdleHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle = fn
}

// SetNoticeHook sets a function called for every notice.
func (c *Controller) SetNoticeHook(fn func(Notice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = fn
}

// Start subscribes to the shell signals and starts handling them.
func (c *Controller) Start() {
	c.sigs = make(chan os.Signal, 16)
	c.done = make(chan struct{})
	signal.Notify(c.sigs, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGCHLD, unix.SIGTERM)

	c.wg.Add(1)
	go c.loop()
}

// Stop unsubscribes from signals. Signals go back to their default action.
func (c *Controller) Stop() {
	if c.sigs == nil {
		return
	}
	signal.Stop(c.sigs)
	close(c.done)
	c.wg.Wait()
	c.sigs = nil
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case sig := <-c.sigs:
			c.handle(sig)
		}
	}
}

func (c *Controller) handle(sig os.Signal) {
	switch sig {
	case unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP:
		if !c.Relay(sig.(unix.Signal)) && sig == unix.SIGINT {
			c.runIdle()
		}
	case unix.SIGCHLD:
		c.Reap()
	case unix.SIGTERM:
		// Dropped: the shell survives TERM, its children do not inherit that.
	}
}

func (c *Controller) runIdle() {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle != nil {
		idle()
	}
}

// Relay sends sig to every live child. It reports whether there was anyone to
// send it to.
func (c *Controller) Relay(sig unix.Signal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.live) == 0 {
		return false
	}
	for pid := range c.live {
		unix.Kill(pid, sig)
	}
	c.relayed++
	return true
}

// Track adds pid to the live set.
func (c *Controller) Track(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live[pid] = struct{}{}
}

// Forget removes pid from the live set.
func (c *Controller) Forget(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.live, pid)
}

func (c *Controller) tracked(pid int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[pid]
	return ok
}

// Live lists the live set.
func (c *Controller) Live() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int
	for pid := range c.live {
		out = append(out, pid)
	}
	return out
}

// Len is the size of the live set.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Begin starts a foreground harvest. Children are only reaped by Harvest
// until End is called. It must be called before the children are created.
func (c *Controller) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.harvesting = true
	c.relayed = 0
}

// End finishes a foreground harvest and reaps anything that ended meanwhile.
func (c *Controller) End() {
	c.mu.Lock()
	c.harvesting = false
	c.mu.Unlock()

	c.Reap()
}

// Harvest waits until the live set is empty and returns the status of
// lastPid: its exit code, or ErrorStatus if it stopped or did not exit
// normally. A lastPid of 0 leaves the status at 0.
func (c *Controller) Harvest(lastPid int) int {
	status := 0
	collected := false
	for c.Len() > 0 {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			// No children left to wait for.
			c.mu.Lock()
			c.live = make(map[int]struct{})
			c.mu.Unlock()
			if lastPid != 0 && !collected {
				status = ErrorStatus
			}
			continue
		}

		member := c.tracked(pid)
		if ws.Stopped() {
			c.background(pid)
			if member {
				c.Forget(pid)
				if pid == lastPid {
					status, collected = ErrorStatus, true
				}
			}
			continue
		}

		if !member {
			c.report(Notice{Pid: pid, Kind: Finished, Status: exitStatus(ws)})
			continue
		}

		c.Forget(pid)
		if pid == lastPid {
			status, collected = exitStatus(ws), true
		}
	}

	c.mu.Lock()
	relayed := c.relayed
	c.relayed = 0
	out := c.out
	c.mu.Unlock()
	if relayed > 0 {
		fmt.Fprintln(out)
	}

	return status
}

// Reap collects children that changed state while no harvest is running.
func (c *Controller) Reap() {
	c.mu.Lock()
	if c.harvesting {
		c.mu.Unlock()
		return
	}

	var notices int
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || pid <= 0 {
			break
		}

		delete(c.live, pid)
		notices++
		if ws.Stopped() {
			unix.Kill(pid, unix.SIGCONT)
			c.reportLocked(Notice{Pid: pid, Kind: Backgrounded})
		} else {
			c.reportLocked(Notice{Pid: pid, Kind: Finished, Status: exitStatus(ws)})
		}
	}
	c.mu.Unlock()

	if notices > 0 {
		c.runIdle()
	}
}

func (c *Controller) background(pid int) {
	unix.Kill(pid, unix.SIGCONT)
	c.report(Notice{Pid: pid, Kind: Backgrounded})
}

func (c *Controller) report(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportLocked(n)
}

func (c *Controller) reportLocked(n Notice) {
	switch n.Kind {
	case Backgrounded:
		fmt.Fprintf(c.out, "[%d] in background\n", n.Pid)
	default:
		fmt.Fprintf(c.out, "[%d] %d\n", n.Pid, n.Status)
	}
	if c.notice != nil {
		c.notice(n)
	}
}

func exitStatus(ws unix.WaitStatus) int {
	if ws.Exited() {
		return ws.ExitStatus()
	}
	return ErrorStatus
}
