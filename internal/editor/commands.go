// internal/editor/commands.go
package editor

import (
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
	"github.com/rowanlabs/gridpager/internal/scheduler"
)

// The command surface returns plain booleans: true when the document
// changed, false for every precondition failure. Failures are logged at
// debug level and never surface to the caller; a rejected command leaves
// the document untouched.

// MergeSelection merges the rectangle spanned by the current cell
// selection.
func (e *Editor) MergeSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := e.sel.Cells
	if sel == nil {
		return false
	}
	m, err := grid.Build(e.root, sel.TablePath)
	if err != nil {
		e.logger.Debug("merge selection rejected", zap.Error(err))
		return false
	}
	rect, err := m.RectBetween(sel.Anchor, sel.Head)
	if err != nil {
		e.logger.Debug("merge selection rejected", zap.Error(err))
		return false
	}
	tx := doc.NewTransaction(e.root)
	if err := e.merges.Merge(tx, sel.TablePath, rect); err != nil {
		e.logger.Debug("merge selection rejected", zap.Error(err))
		return false
	}
	e.commitLocked(tx)
	e.triggerLocked(schedulerRequestForTable(sel.TablePath))
	return true
}

// UnmergeAtSelection splits the merged cell under the caret or selection
// anchor back into its constituent cells.
func (e *Editor) UnmergeAtSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cellPath, tablePath, ok := e.selectionCellLocked()
	if !ok {
		return false
	}
	tx := doc.NewTransaction(e.root)
	if err := e.merges.Unmerge(tx, tablePath, cellPath); err != nil {
		e.logger.Debug("unmerge rejected", zap.Error(err))
		return false
	}
	e.commitLocked(tx)
	e.triggerLocked(schedulerRequestForTable(tablePath))
	return true
}

// ToggleMerge unmerges when the target is a merged cell, otherwise merges
// the selected rectangle.
func (e *Editor) ToggleMerge() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := e.sel.Cells
	if sel == nil {
		return false
	}
	m, err := grid.Build(e.root, sel.TablePath)
	if err != nil {
		e.logger.Debug("toggle merge rejected", zap.Error(err))
		return false
	}
	rect, err := m.RectBetween(sel.Anchor, sel.Head)
	if err != nil {
		e.logger.Debug("toggle merge rejected", zap.Error(err))
		return false
	}
	tx := doc.NewTransaction(e.root)
	if err := e.merges.Toggle(tx, sel.TablePath, sel.Anchor, rect); err != nil {
		e.logger.Debug("toggle merge rejected", zap.Error(err))
		return false
	}
	e.commitLocked(tx)
	e.triggerLocked(schedulerRequestForTable(sel.TablePath))
	return true
}

// DeleteRowCascading deletes the caret's row, first unmerging every merged
// cell whose rectangle crosses it. Chain cleanup then cascades over any
// continuation rows the deletion orphans.
func (e *Editor) DeleteRowCascading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rowPath, tablePath, ok := e.selectionRowLocked()
	if !ok {
		return false
	}
	tx := doc.NewTransaction(e.root)
	if err := e.merges.DeleteRowCascading(tx, tablePath, rowPath); err != nil {
		e.logger.Debug("delete row rejected", zap.Error(err))
		return false
	}
	e.commitLocked(tx)
	e.triggerLocked(schedulerRequestForTable(tablePath))
	return true
}

// InsertRowAfterCascading inserts a fresh row below the caret's row,
// stretching vertical spans that cross the boundary.
func (e *Editor) InsertRowAfterCascading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rowPath, tablePath, ok := e.selectionRowLocked()
	if !ok {
		return false
	}
	tx := doc.NewTransaction(e.root)
	if err := e.merges.InsertRowAfterCascading(tx, tablePath, rowPath); err != nil {
		e.logger.Debug("insert row rejected", zap.Error(err))
		return false
	}
	e.commitLocked(tx)
	e.triggerLocked(schedulerRequestForTable(tablePath))
	return true
}

// selectionCellLocked resolves the cell the commands should act on: the
// cell-selection anchor when present, otherwise the caret's enclosing cell.
func (e *Editor) selectionCellLocked() (cellPath, tablePath doc.Path, ok bool) {
	if e.sel.Cells != nil {
		return e.sel.Cells.Anchor, e.sel.Cells.TablePath, true
	}
	cp, _, okC := doc.AncestorOfRole(e.root, e.sel.Caret.Path, doc.IsCellRole)
	if !okC {
		return nil, nil, false
	}
	tp, _, okT := doc.AncestorOfRole(e.root, cp, func(r doc.Role) bool { return r == doc.RoleTable })
	if !okT {
		return nil, nil, false
	}
	return cp, tp, true
}

func (e *Editor) selectionRowLocked() (rowPath, tablePath doc.Path, ok bool) {
	cp, _, okC := e.selectionAnyCellLocked()
	if !okC {
		return nil, nil, false
	}
	rp, _, okR := doc.AncestorOfRole(e.root, cp[:len(cp)-1], func(r doc.Role) bool { return r == doc.RoleRow })
	if !okR {
		return nil, nil, false
	}
	tp, _, okT := doc.AncestorOfRole(e.root, rp, func(r doc.Role) bool { return r == doc.RoleTable })
	if !okT {
		return nil, nil, false
	}
	return rp, tp, true
}

func (e *Editor) selectionAnyCellLocked() (doc.Path, *doc.Node, bool) {
	if e.sel.Cells != nil {
		n, ok := doc.Resolve(e.root, e.sel.Cells.Anchor)
		if !ok {
			return nil, nil, false
		}
		return e.sel.Cells.Anchor, n, true
	}
	return doc.AncestorOfRole(e.root, e.sel.Caret.Path, doc.IsCellRole)
}

func schedulerRequestForTable(tablePath doc.Path) scheduler.Request {
	return scheduler.Request{TablePath: tablePath}
}
