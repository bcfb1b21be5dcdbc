package pipeline

import (
	"context"
	"fmt"
)

// Run executes steps strictly in order against rc. On a step error the run
// aborts and the error propagates; no partial output is valid to the caller.
// A Halt outcome ends the loop without error. The returned snapshots always
// cover every configured step.
func Run(ctx context.Context, steps []Step, rc *Context) ([]Snapshot, error) {
	snapshots := make([]Snapshot, len(steps))
	for i, step := range steps {
		snapshots[i] = Snapshot{Name: step.Name, Status: StatusPending}
	}

	for i, step := range steps {
		snapshots[i].Status = StatusRunning
		if step.Phase != "" && rc.Notify != nil {
			rc.Notify.PhaseStart(step.Phase.Label())
		}
		rc.Deps.Logger.Debug("Step starting", map[string]interface{}{"step": step.Name})

		outcome, err := step.Run(ctx, rc)
		if err != nil {
			snapshots[i].Status = StatusFailed
			snapshots[i].Error = err.Error()
			if step.Phase != "" && rc.Notify != nil {
				rc.Notify.PhaseEnd(step.Phase.Label(), true)
			}
			rc.Deps.Logger.Error("Step failed", map[string]interface{}{
				"step":  step.Name,
				"error": err.Error(),
			})
			return snapshots, fmt.Errorf("step %s: %w", step.Name, err)
		}

		snapshots[i].Status = StatusSucceeded
		if step.Phase != "" && rc.Notify != nil {
			rc.Notify.PhaseEnd(step.Phase.Label(), false)
		}

		if outcome == Halt {
			rc.Deps.Logger.Debug("Run halted", map[string]interface{}{"step": step.Name})
			break
		}
	}
	return snapshots, nil
}
