// internal/paginate/paginate.go

// Package paginate implements row-level overflow pagination and its reverse.
// When a cell's rendered content exceeds the allowed height, the engine
// splits the content at a block boundary (or inside a block when a single
// block is taller than a page), synthesizes or reuses a linked continuation
// row, and moves the overflowing tail into the aligned cell of that row.
// Merge-back later reclaims freed space one block at a time and dissolves
// empty continuation rows.
package paginate

import (
	"errors"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/chain"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/geometry"
	"github.com/rowanlabs/gridpager/internal/grid"
)

var (
	// ErrNotOverflowing reports that the cell fits; pagination is a no-op.
	ErrNotOverflowing = errors.New("paginate: cell does not overflow")
	// ErrLocked rejects mutation of locked tables.
	ErrLocked = errors.New("paginate: table is locked")
	// ErrNoSplit reports that no split point could be determined.
	ErrNoSplit = errors.New("paginate: no split point")
	// ErrStale reports that a path no longer resolves as expected.
	ErrStale = errors.New("paginate: stale target")
	// ErrNoChain reports a merge-back attempt on a chainless row.
	ErrNoChain = errors.New("paginate: row has no continuation")
)

// Config bounds the pagination decisions.
type Config struct {
	// MaxRowHeight is the allowed rendered height of one cell, in the
	// geometry provider's units.
	MaxRowHeight float64
	// SafetyBuffer is subtracted from spare capacity before merge-back so
	// reclaimed blocks do not immediately re-overflow.
	SafetyBuffer float64
}

// Result describes what a pagination step did.
type Result struct {
	Tx *doc.Transaction
	// CaretTo is set when pagination was triggered at the active cell and
	// the caret should follow the moved content.
	CaretTo *doc.Position
}

// Engine runs overflow pagination and merge-back.
type Engine struct {
	geo    geometry.Provider
	cfg    Config
	logger *zap.Logger
}

// New builds a pagination engine.
func New(geo geometry.Provider, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{geo: geo, cfg: cfg, logger: logger.With(zap.String("component", "paginate_engine"))}
}

// cellContext is the re-resolved environment of one target cell. Everything
// here is derived from the current document inside the engine step, never
// carried over from scheduling time.
type cellContext struct {
	cellPath  doc.Path
	cell      *doc.Node
	rowPath   doc.Path
	row       *doc.Node
	tablePath doc.Path
	table     *doc.Node
	gridMap   *grid.Map
	col       int
	rowIdx    int
}

func resolveCell(root *doc.Node, cellPath doc.Path) (*cellContext, error) {
	cell, ok := doc.Resolve(root, cellPath)
	if !ok || !doc.IsCellRole(doc.Classify(cell)) {
		return nil, ErrStale
	}
	rowPath, row, ok := doc.AncestorOfRole(root, cellPath[:len(cellPath)-1], func(r doc.Role) bool { return r == doc.RoleRow })
	if !ok {
		return nil, ErrStale
	}
	tablePath, table, ok := doc.AncestorOfRole(root, rowPath, func(r doc.Role) bool { return r == doc.RoleTable })
	if !ok {
		return nil, ErrStale
	}
	m, err := grid.Build(root, tablePath)
	if err != nil {
		return nil, ErrStale
	}
	ref, ok := m.FindByPath(cellPath)
	if !ok || ref.Covered {
		return nil, ErrStale
	}
	rowIdx, ok := m.RowIndexOf(rowPath)
	if !ok {
		return nil, ErrStale
	}
	return &cellContext{
		cellPath:  cellPath.Clone(),
		cell:      cell,
		rowPath:   rowPath,
		row:       row,
		tablePath: tablePath,
		table:     table,
		gridMap:   m,
		col:       ref.Col,
		rowIdx:    rowIdx,
	}, nil
}

// PaginateCell moves the overflowing tail of the cell at cellPath into the
// aligned cell of the row's continuation, creating and linking the
// continuation first when the row has none. active marks pagination caused
// by direct editing at the cell, which makes the caret follow the moved
// content. Content is never deleted, and a non-overflowing cell is a no-op.
func (e *Engine) PaginateCell(root *doc.Node, cellPath doc.Path, active bool) (*Result, error) {
	cc, err := resolveCell(root, cellPath)
	if err != nil {
		return nil, err
	}
	if cc.table.Attrs.Locked {
		return nil, ErrLocked
	}
	over, err := e.geo.Overflows(cc.cell, e.cfg.MaxRowHeight)
	if err != nil {
		return nil, err
	}
	if !over {
		return nil, ErrNotOverflowing
	}

	head, tail, err := e.splitPoint(cc.cell)
	if err != nil {
		return nil, err
	}

	tx := doc.NewTransaction(root)
	contRowPath, err := e.ensureContinuation(tx, cc)
	if err != nil {
		return nil, err
	}

	// Re-derive the grid against the working document: the continuation row
	// may have just been inserted.
	m, err := grid.Build(tx.Root(), cc.tablePath)
	if err != nil {
		return nil, ErrStale
	}
	contRowIdx, ok := m.RowIndexOf(contRowPath)
	if !ok {
		return nil, ErrStale
	}
	contRef := m.At(contRowIdx, cc.col)
	if contRef == nil {
		return nil, ErrStale
	}

	contCell, ok := doc.Resolve(tx.Root(), contRef.Path)
	if !ok {
		return nil, ErrStale
	}
	if isUntouchedPlaceholder(contCell) {
		if err := tx.ReplaceChildren(contRef.Path, tail); err != nil {
			return nil, err
		}
	} else {
		if err := tx.PrependChildren(contRef.Path, tail); err != nil {
			return nil, err
		}
	}

	// Trim the source cell down to the head. Mapped cell path: the source
	// row sits above the continuation, so its path is unchanged by the
	// insert, but map anyway for safety.
	srcPath, ok := tx.Map(cc.cellPath)
	if !ok {
		return nil, ErrStale
	}
	if err := tx.ReplaceChildren(srcPath, head); err != nil {
		return nil, err
	}

	res := &Result{Tx: tx}
	if active {
		res.CaretTo = &doc.Position{Path: contRef.Path.Child(0), Offset: 0}
	}
	e.logger.Debug("paginated cell",
		zap.Int("col", cc.col),
		zap.Int("moved_blocks", len(tail)),
		zap.Bool("active", active))
	return res, nil
}

// splitPoint decides where the cell's content divides into a fitting head
// and an overflowing tail. Preferred: the last block boundary within the
// allowed height. Fallback when the very first block exceeds capacity: an
// inline split at the furthest fitting character offset.
func (e *Engine) splitPoint(cell *doc.Node) (head, tail []*doc.Node, err error) {
	if len(cell.Children) == 0 {
		return nil, nil, ErrNoSplit
	}
	var used float64
	boundary := 0
	for i, b := range cell.Children {
		h, err := e.geo.BlockHeight(b)
		if err != nil {
			return nil, nil, err
		}
		if used+h > e.cfg.MaxRowHeight {
			break
		}
		used += h
		boundary = i + 1
	}
	if boundary >= len(cell.Children) {
		// Measured overflow but every block fits individually; geometry and
		// block sums disagree, give up on this attempt.
		return nil, nil, ErrNoSplit
	}
	if boundary > 0 {
		head = cloneBlocks(cell.Children[:boundary])
		tail = cloneBlocks(cell.Children[boundary:])
		return head, tail, nil
	}

	// Inline fallback: the first block alone exceeds capacity.
	first := cell.Children[0]
	offset, ok, err := e.geo.SplitOffset(first, e.cfg.MaxRowHeight)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNoSplit
	}
	fittingPart, remainder, ok := splitBlockAt(first, offset)
	if !ok {
		return nil, nil, ErrNoSplit
	}
	head = append(head, fittingPart)
	tail = append(tail, remainder)
	tail = append(tail, cloneBlocks(cell.Children[1:])...)
	return head, tail, nil
}

// ensureContinuation returns the path of the row's continuation inside the
// transaction, synthesizing and linking an empty placeholder row when the
// chain ends here.
func (e *Engine) ensureContinuation(tx *doc.Transaction, cc *cellContext) (doc.Path, error) {
	rowID, err := doc.EnsureRowID(tx, cc.rowPath)
	if err != nil {
		return nil, err
	}
	reg := chain.Index(tx.Root())
	if next, ok := reg.NextOf(rowID); ok {
		return next.Path, nil
	}

	row, ok := doc.Resolve(tx.Root(), cc.rowPath)
	if !ok {
		return nil, ErrStale
	}
	cont := doc.CloneRowSkeleton(row)
	cont.Attrs.RowID = doc.NewID()
	cont.Attrs.LinkedPrev = rowID

	parent, idx, ok := cc.rowPath.Parent()
	if !ok {
		return nil, ErrStale
	}
	if err := tx.InsertNode(parent, idx+1, cont); err != nil {
		return nil, err
	}
	if err := tx.UpdateAttrs(cc.rowPath, func(a *doc.Attrs) { a.LinkedNext = cont.Attrs.RowID }); err != nil {
		return nil, err
	}
	e.logger.Debug("synthesized continuation row",
		zap.String("row_id", rowID), zap.String("continuation_id", cont.Attrs.RowID))
	return parent.Child(idx + 1), nil
}

// isUntouchedPlaceholder recognizes the empty skeleton a continuation cell
// is born with: exactly one visually empty block.
func isUntouchedPlaceholder(cell *doc.Node) bool {
	return len(cell.Children) == 1 && doc.IsVisuallyEmpty(cell.Children[0])
}

func cloneBlocks(blocks []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
