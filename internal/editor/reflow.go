// internal/editor/reflow.go
package editor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/scheduler"
)

// ReflowAll drives pagination and merge-back to a fixpoint synchronously,
// bypassing the debounce loop. Batch tooling uses this; the interactive
// path goes through the scheduler. Iteration is capped so a degenerate
// document that keeps producing work cannot spin forever; hitting the cap
// is reported as an error with the document left in its last consistent
// state.
func (e *Editor) ReflowAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < e.cfg.ReflowCap; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx, _, err := e.tickOnce(scheduler.Request{}, true)
		if errors.Is(err, errNoWork) {
			e.logger.Debug("reflow converged", zap.Int("steps", i))
			return nil
		}
		if err != nil {
			return err
		}
		e.commitLocked(tx)
	}
	return errors.New("editor: reflow did not converge")
}
