// internal/merge/commands.go
package merge

import (
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// DeleteRowCascading removes the row after first dissolving every merge
// rectangle that intersects it, so no origin or covered cell is left
// referencing a dead neighbor. Chain cascade and empty-container sweeping
// happen in the cleanup reconciler that runs on dispatch.
func (e *Engine) DeleteRowCascading(tx *doc.Transaction, tablePath, rowPath doc.Path) error {
	table, ok := doc.Resolve(tx.Root(), tablePath)
	if !ok || doc.Classify(table) != doc.RoleTable {
		return ErrStale
	}
	if table.Attrs.Locked {
		return ErrLocked
	}
	m, err := grid.Build(tx.Root(), tablePath)
	if err != nil {
		return ErrStale
	}
	rowIdx, ok := m.RowIndexOf(rowPath)
	if !ok {
		return ErrStale
	}

	// Unmerge every rectangle crossing the row. Unmerge only rewrites
	// attributes and cell content, so row paths stay stable throughout.
	for _, ref := range m.Refs() {
		if ref.Covered || !ref.IsOrigin() {
			continue
		}
		if ref.Row <= rowIdx && ref.Row+ref.RowSpan-1 >= rowIdx {
			if err := e.Unmerge(tx, tablePath, ref.Path); err != nil {
				return err
			}
		}
	}
	if err := tx.DeleteNode(rowPath); err != nil {
		return err
	}
	e.logger.Debug("deleted row with merge cascade", zap.Int("row", rowIdx))
	return nil
}

// InsertRowAfterCascading inserts an empty row below the given one. A
// vertical merge spanning across the insertion point grows by one row, and
// the new row's cells under it become covered members; every other column
// gets a plain empty cell.
func (e *Engine) InsertRowAfterCascading(tx *doc.Transaction, tablePath, rowPath doc.Path) error {
	table, ok := doc.Resolve(tx.Root(), tablePath)
	if !ok || doc.Classify(table) != doc.RoleTable {
		return ErrStale
	}
	if table.Attrs.Locked {
		return ErrLocked
	}
	m, err := grid.Build(tx.Root(), tablePath)
	if err != nil {
		return ErrStale
	}
	rowIdx, ok := m.RowIndexOf(rowPath)
	if !ok {
		return ErrStale
	}

	row, ok := doc.Resolve(tx.Root(), rowPath)
	if !ok || doc.Classify(row) != doc.RoleRow {
		return ErrStale
	}

	// One 1x1 cell per grid column; columns under a crossing vertical span
	// become covered members of the (extended) origin.
	crossings := map[*grid.CellRef]string{}
	newRow := &doc.Node{Kind: row.Kind}
	for col := 0; col < m.Cols; col++ {
		occupant := m.At(rowIdx, col)
		kind := doc.KindCell
		if occupant != nil {
			kind = occupant.Node.Kind
		}
		cell := doc.CloneCellSkeleton(&doc.Node{Kind: kind})
		if occupant != nil && occupant.Row <= rowIdx && occupant.Row+occupant.RowSpan-1 > rowIdx {
			id, seen := crossings[occupant]
			if !seen {
				id, err = doc.EnsureCellID(tx, occupant.Path)
				if err != nil {
					return err
				}
				crossings[occupant] = id
			}
			cell.Attrs.MergedTo = id
			cell.Attrs.HideMode = doc.HideModeHidden
		}
		newRow.Children = append(newRow.Children, cell)
	}
	for ref := range crossings {
		if err := tx.UpdateAttrs(ref.Path, func(a *doc.Attrs) { a.RowSpan = a.EffectiveRowSpan() + 1 }); err != nil {
			return err
		}
	}

	parent, idx, ok := rowPath.Parent()
	if !ok {
		return ErrStale
	}
	if err := tx.InsertNode(parent, idx+1, newRow); err != nil {
		return err
	}
	e.logger.Debug("inserted row with merge extension",
		zap.Int("after_row", rowIdx), zap.Int("extended_merges", len(crossings)))
	return nil
}
