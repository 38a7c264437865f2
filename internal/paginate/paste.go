// internal/paginate/paste.go
package paginate

import (
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/chain"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// PasteTarget is where redirected paste content should land.
type PasteTarget struct {
	CellPath doc.Path
	// Prepend is true when the content goes before the target cell's
	// existing blocks rather than after.
	Prepend bool
	// Tx is non-nil when a continuation row had to be synthesized for the
	// redirect. The caller commits it before inserting; CellPath is then a
	// path into Tx's resulting document.
	Tx *doc.Transaction
}

// RedirectPaste decides where pasted blocks belong when the cell at
// cellPath cannot hold them. The engine measures the prospective height
// first; when the cell's current content plus the paste would reach the
// row-height limit, the paste goes into the aligned cell of the row's
// continuation, synthesizing and linking one when the chain ends here.
// Only a paste that stays strictly under the limit lands in place.
func (e *Engine) RedirectPaste(root *doc.Node, cellPath doc.Path, blocks []*doc.Node) (PasteTarget, error) {
	cc, err := resolveCell(root, cellPath)
	if err != nil {
		return PasteTarget{}, err
	}
	if cc.table.Attrs.Locked {
		return PasteTarget{}, ErrLocked
	}

	current, err := e.geo.ContentHeight(cc.cell)
	if err != nil {
		return PasteTarget{}, err
	}
	prospective := current
	for _, b := range blocks {
		h, err := e.geo.BlockHeight(b)
		if err != nil {
			return PasteTarget{}, err
		}
		prospective += h
	}
	if prospective < e.cfg.MaxRowHeight {
		return PasteTarget{CellPath: cc.cellPath}, nil
	}

	var contRowPath doc.Path
	var tx *doc.Transaction
	if cc.row.Attrs.RowID != "" {
		if next, ok := chain.Index(root).NextOf(cc.row.Attrs.RowID); ok {
			contRowPath = next.Path
		}
	}
	m := cc.gridMap
	if contRowPath == nil {
		tx = doc.NewTransaction(root)
		contRowPath, err = e.ensureContinuation(tx, cc)
		if err != nil {
			return PasteTarget{}, err
		}
		m, err = grid.Build(tx.Root(), cc.tablePath)
		if err != nil {
			return PasteTarget{}, ErrStale
		}
	}

	contRowIdx, ok := m.RowIndexOf(contRowPath)
	if !ok {
		return PasteTarget{}, ErrStale
	}
	contRef := m.At(contRowIdx, cc.col)
	if contRef == nil || contRef.Covered {
		return PasteTarget{}, ErrStale
	}
	e.logger.Debug("redirected paste to continuation",
		zap.Int("col", cc.col),
		zap.Bool("synthesized", tx != nil),
		zap.Float64("prospective_height", prospective))
	return PasteTarget{CellPath: contRef.Path, Prepend: true, Tx: tx}, nil
}
