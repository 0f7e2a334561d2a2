package engine

import (
	"fmt"
	"os"

	"github.com/josephlewis42/lish/core/cmdtree"
)

// runPipeline launches every stage connected by pipes and waits for all of
// them. The status is the last stage's.
func (e *Engine) runPipeline(ctx *Context, pipeline *cmdtree.Pipeline) (int, error) {
	if ctx.Mode == ModeSingleCandidate && len(pipeline.Stages) == 1 {
		ctx = ctx.with(ModeSingleEligible)
	}

	n := len(pipeline.Stages)
	processRequired := n > 1

	// Children must not be reaped by anyone else until they're harvested.
	e.Jobs.Begin()
	defer e.Jobs.End()

	defer func() {
		if ctx.saved[3] != nil {
			ctx.saved[3].Close()
			ctx.saved[3] = nil
		}
	}()

	lastPid, status := 0, ErrorStatus
	for i, stage := range pipeline.Stages {
		table := append([]*os.File(nil), ctx.Std...)

		var opened []*os.File
		if i > 0 {
			table[0] = ctx.saved[3]
			opened = append(opened, ctx.saved[3])
			ctx.saved[3] = nil
		}

		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeAll(opened)
				e.Jobs.Harvest(0)
				return ErrorStatus, &FatalError{Status: ErrorStatus, Err: fmt.Errorf("cannot create pipe: %w", err)}
			}
			table[1] = w
			opened = append(opened, w)
			ctx.saved[3] = r
		}

		table, files, err := applyRedirections(table, stage.Redirections)
		opened = append(opened, files...)
		if err != nil {
			e.diag(table, "%s", err)
			closeAll(opened)
			if i == n-1 {
				lastPid, status = 0, ErrorStatus
			}
			continue
		}

		pid, stageStatus, err := e.launch(ctx, stage, table, processRequired)
		closeAll(opened)
		if err != nil {
			e.Jobs.Harvest(0)
			return ErrorStatus, err
		}
		if pid > 0 {
			e.Jobs.Track(pid)
		}
		if i == n-1 {
			lastPid, status = pid, stageStatus
		}
	}

	if lastPid > 0 {
		return e.Jobs.Harvest(lastPid), nil
	}
	e.Jobs.Harvest(0)
	return status, nil
}
