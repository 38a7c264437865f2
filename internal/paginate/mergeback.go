// internal/paginate/mergeback.go
package paginate

import (
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/chain"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// MergeBack reclaims freed space in the cell at cellPath from the aligned
// cell of the row's continuation. At most one block moves per invocation;
// the caller reschedules until nothing moves. A continuation row whose
// cells are all visually empty is unlinked and deleted instead. Returns
// ErrNoChain when the row has no continuation, and (nil, nil) when the
// chain exists but nothing can move yet.
func (e *Engine) MergeBack(root *doc.Node, cellPath doc.Path) (*doc.Transaction, error) {
	cc, err := resolveCell(root, cellPath)
	if err != nil {
		return nil, err
	}
	if cc.table.Attrs.Locked {
		return nil, ErrLocked
	}
	if cc.row.Attrs.RowID == "" || cc.row.Attrs.LinkedNext == "" {
		return nil, ErrNoChain
	}
	reg := chain.Index(root)
	next, ok := reg.NextOf(cc.row.Attrs.RowID)
	if !ok {
		return nil, ErrNoChain
	}
	contRow, ok := doc.Resolve(root, next.Path)
	if !ok {
		return nil, ErrStale
	}

	if rowVisuallyEmpty(contRow) {
		return e.dissolveEmptyRow(root, cc, next)
	}

	contRowIdx, ok := cc.gridMap.RowIndexOf(next.Path)
	if !ok {
		return nil, ErrStale
	}
	contRef := cc.gridMap.At(contRowIdx, cc.col)
	if contRef == nil || contRef.Covered {
		return nil, ErrStale
	}
	contCell, ok := doc.Resolve(root, contRef.Path)
	if !ok || len(contCell.Children) == 0 {
		return nil, nil
	}

	// After a single-column split the aligned continuation cell may hold
	// nothing but its placeholder while another column carries the overflow.
	// Only real content moves back; placeholders stay where they are.
	first, firstIdx, rest := firstContentBlock(contCell)
	if first == nil {
		return nil, nil
	}
	h, err := e.geo.BlockHeight(first)
	if err != nil {
		return nil, err
	}
	spare, err := e.geo.SpareCapacity(cc.cell, e.cfg.MaxRowHeight)
	if err != nil {
		return nil, err
	}
	if h > spare-e.cfg.SafetyBuffer {
		return nil, nil
	}

	tx := doc.NewTransaction(root)
	if err := tx.AppendChildren(cc.cellPath, []*doc.Node{first.Clone()}); err != nil {
		return nil, err
	}
	if rest == 0 {
		// The cell's last content block moved out; leave the canonical
		// placeholder so the empty-row sweep can recognize and dissolve the
		// row next tick.
		if err := tx.ReplaceChildren(contRef.Path, []*doc.Node{doc.EmptyParagraph()}); err != nil {
			return nil, err
		}
	} else {
		if err := tx.DeleteChildren(contRef.Path, firstIdx, firstIdx+1); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("merged block back",
		zap.Int("col", cc.col),
		zap.Float64("block_height", h),
		zap.Float64("spare", spare))
	return tx, nil
}

// dissolveEmptyRow removes an all-empty continuation row and splices the
// chain pointers around it.
func (e *Engine) dissolveEmptyRow(root *doc.Node, cc *cellContext, next chain.RowInfo) (*doc.Transaction, error) {
	tx := doc.NewTransaction(root)

	// Relink across the doomed row before deleting it so the source row
	// keeps its deeper continuations.
	afterID := next.Next
	if afterID != "" {
		reg := chain.Index(root)
		if after, ok := reg.Lookup(afterID); ok {
			if err := tx.UpdateAttrs(after.Path, func(a *doc.Attrs) { a.LinkedPrev = cc.row.Attrs.RowID }); err != nil {
				return nil, err
			}
		} else {
			afterID = ""
		}
	}
	if err := tx.UpdateAttrs(cc.rowPath, func(a *doc.Attrs) { a.LinkedNext = afterID }); err != nil {
		return nil, err
	}
	target, ok := tx.Map(next.Path)
	if !ok {
		return nil, ErrStale
	}
	if err := tx.DeleteNode(target); err != nil {
		return nil, err
	}
	e.logger.Debug("dissolved empty continuation row",
		zap.String("row_id", next.RowID),
		zap.String("relinked_to", afterID))
	return tx, nil
}

// firstContentBlock finds the cell's first visually non-empty block. rest
// counts the non-empty blocks remaining after it.
func firstContentBlock(cell *doc.Node) (first *doc.Node, firstIdx, rest int) {
	for i, b := range cell.Children {
		if doc.IsVisuallyEmpty(b) {
			continue
		}
		if first == nil {
			first = b
			firstIdx = i
			continue
		}
		rest++
	}
	return first, firstIdx, rest
}

// rowVisuallyEmpty reports whether every cell in the row carries no visible
// content. Covered merge cells count as empty.
func rowVisuallyEmpty(row *doc.Node) bool {
	for _, c := range row.Children {
		if !doc.IsCellRole(doc.Classify(c)) {
			continue
		}
		if c.Attrs.MergedTo != "" {
			continue
		}
		for _, b := range c.Children {
			if !doc.IsVisuallyEmpty(b) {
				return false
			}
		}
	}
	return true
}

// RowsWithChains lists, in document order, the paths of rows that carry a
// forward link. Used by the scheduler's whole-document merge-back sweep.
func RowsWithChains(root *doc.Node) []doc.Path {
	var out []doc.Path
	for _, tp := range grid.TablePaths(root) {
		for _, rp := range grid.RowPaths(root, tp) {
			row, ok := doc.Resolve(root, rp)
			if !ok {
				continue
			}
			if row.Attrs.LinkedNext != "" {
				out = append(out, rp)
			}
		}
	}
	return out
}
