// internal/merge/merge.go

// Package merge implements the rectangular cell-merge state machine: one
// origin cell holding the consolidated content and span values, every other
// cell of the rectangle demoted to an empty covered cell pointing at the
// origin.
package merge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

var (
	// ErrOverlap rejects rectangles that intersect an existing merge.
	ErrOverlap = errors.New("merge: rectangle overlaps an existing merge")
	// ErrDegenerate rejects 1x1 merges and unmerges of unmerged cells.
	ErrDegenerate = errors.New("merge: nothing to do")
	// ErrLocked rejects mutation of locked tables.
	ErrLocked = errors.New("merge: table is locked")
	// ErrOutOfBounds rejects rectangles outside the grid.
	ErrOutOfBounds = errors.New("merge: rectangle outside grid bounds")
	// ErrStale reports that a path no longer resolves to the expected node.
	ErrStale = errors.New("merge: stale target")
)

// Engine performs merge, unmerge and toggle as atomic transactions.
type Engine struct {
	logger *zap.Logger
}

// New builds a merge engine.
func New(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.With(zap.String("component", "merge_engine"))}
}

// Merge consolidates the rectangle into the top-left cell. The transaction
// is only mutated on success; on error the caller discards it untouched.
func (e *Engine) Merge(tx *doc.Transaction, tablePath doc.Path, rect grid.Rect) error {
	table, ok := doc.Resolve(tx.Root(), tablePath)
	if !ok || doc.Classify(table) != doc.RoleTable {
		return ErrStale
	}
	if table.Attrs.Locked {
		return ErrLocked
	}
	if rect.Width() == 1 && rect.Height() == 1 {
		return ErrDegenerate
	}
	m, err := grid.Build(tx.Root(), tablePath)
	if err != nil {
		return ErrStale
	}
	if !m.InBounds(rect) {
		return ErrOutOfBounds
	}
	cells := m.CellsInRect(rect)
	for _, ref := range cells {
		if ref.IsOrigin() || ref.Node.Attrs.MergedTo != "" {
			return ErrOverlap
		}
	}
	// Covered members hold no coordinates and are not returned by
	// CellsInRect; reject when any owning origin's rectangle intersects.
	for _, ref := range m.Refs() {
		if !ref.Covered {
			continue
		}
		owner, ok := m.FindByCellID(ref.Node.Attrs.MergedTo)
		if !ok {
			return ErrOverlap // dangling mergedTo, refuse to stack merges
		}
		ownerRect := grid.Rect{Top: owner.Row, Left: owner.Col, Bottom: owner.Row + owner.RowSpan - 1, Right: owner.Col + owner.ColSpan - 1}
		if ownerRect.Contains(rect.Top, rect.Left) || rect.Contains(ownerRect.Top, ownerRect.Left) ||
			(ownerRect.Left <= rect.Right && rect.Left <= ownerRect.Right && ownerRect.Top <= rect.Bottom && rect.Top <= ownerRect.Bottom) {
			return ErrOverlap
		}
	}

	origin := m.At(rect.Top, rect.Left)
	if origin == nil || origin.Row != rect.Top || origin.Col != rect.Left {
		return ErrOutOfBounds
	}

	originID, err := doc.EnsureCellID(tx, origin.Path)
	if err != nil {
		return err
	}

	// Consolidated content: meaningful blocks of every cell in row-major
	// order starting with the origin; a visually empty cell contributes
	// nothing.
	var blocks []*doc.Node
	for _, ref := range cells {
		if doc.IsVisuallyEmpty(ref.Node) {
			continue
		}
		for _, b := range ref.Node.Children {
			blocks = append(blocks, b.Clone())
		}
	}
	if len(blocks) == 0 {
		blocks = []*doc.Node{doc.EmptyParagraph()}
	}

	if err := tx.UpdateAttrs(origin.Path, func(a *doc.Attrs) {
		a.MergeOrigin = true
		a.MergedTo = ""
		a.HideMode = ""
		a.ColSpan = rect.Width()
		a.RowSpan = rect.Height()
	}); err != nil {
		return err
	}
	if err := tx.ReplaceChildren(origin.Path, blocks); err != nil {
		return err
	}

	for _, ref := range cells {
		if ref == origin {
			continue
		}
		hide := doc.HideModeHidden
		if ref.Row == origin.Row {
			// Column-covered siblings in the origin's row vanish from the
			// grid; row-covered cells below keep a slot for row-height
			// bookkeeping.
			hide = doc.HideModeNone
		}
		if err := tx.UpdateAttrs(ref.Path, func(a *doc.Attrs) {
			a.MergeOrigin = false
			a.MergedTo = originID
			a.HideMode = hide
			a.ColSpan = 1
			a.RowSpan = 1
		}); err != nil {
			return err
		}
		if err := tx.ReplaceChildren(ref.Path, []*doc.Node{doc.EmptyParagraph()}); err != nil {
			return err
		}
	}

	e.logger.Debug("merged rectangle",
		zap.Int("rows", rect.Height()), zap.Int("cols", rect.Width()),
		zap.String("origin_cell", originID))
	return nil
}

// Unmerge dissolves the merge containing the given cell. The origin keeps
// its consolidated content; covered cells come back as normal empty cells.
func (e *Engine) Unmerge(tx *doc.Transaction, tablePath doc.Path, cellPath doc.Path) error {
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
	ref, ok := m.FindByPath(cellPath)
	if !ok {
		return ErrStale
	}
	origin := ref
	if ref.Node.Attrs.MergedTo != "" {
		origin, ok = m.FindByCellID(ref.Node.Attrs.MergedTo)
		if !ok {
			return ErrStale
		}
	}
	if origin.RowSpan <= 1 && origin.ColSpan <= 1 && !origin.Node.Attrs.MergeOrigin {
		return ErrDegenerate
	}
	originID := origin.Node.Attrs.CellID

	if err := tx.UpdateAttrs(origin.Path, func(a *doc.Attrs) {
		a.MergeOrigin = false
		a.ColSpan = 1
		a.RowSpan = 1
	}); err != nil {
		return err
	}
	for _, covered := range m.Refs() {
		if !covered.Covered || covered.Node.Attrs.MergedTo != originID {
			continue
		}
		if err := tx.UpdateAttrs(covered.Path, func(a *doc.Attrs) {
			a.MergedTo = ""
			a.HideMode = ""
			a.ColSpan = 1
			a.RowSpan = 1
		}); err != nil {
			return err
		}
		if err := tx.ReplaceChildren(covered.Path, []*doc.Node{doc.EmptyParagraph()}); err != nil {
			return err
		}
	}

	e.logger.Debug("unmerged rectangle", zap.String("origin_cell", originID))
	return nil
}

// Toggle attempts an unmerge at the anchor cell first; when that is a no-op
// it merges the rectangle instead.
func (e *Engine) Toggle(tx *doc.Transaction, tablePath doc.Path, anchor doc.Path, rect grid.Rect) error {
	err := e.Unmerge(tx, tablePath, anchor)
	if errors.Is(err, ErrDegenerate) {
		return e.Merge(tx, tablePath, rect)
	}
	return err
}
