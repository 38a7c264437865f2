// internal/doc/clone.go
package doc

import "github.com/google/uuid"

// EmptyParagraph returns the canonical empty content block.
func EmptyParagraph() *Node {
	return NewNode(KindParagraph)
}

// CloneCellSkeleton produces an empty cell of the same shape as template:
// same kind, spans reset to 1x1, all merge metadata cleared, content replaced
// by a single empty block. A fresh cellId is assigned lazily the first time
// an engine needs to reference the clone.
func CloneCellSkeleton(template *Node) *Node {
	cell := &Node{Kind: template.Kind}
	cell.Children = []*Node{EmptyParagraph()}
	return cell
}

// CloneRowSkeleton produces an empty continuation-row placeholder cloned
// cell-for-cell from template, with chain pointers cleared. The caller links
// it into a chain afterwards.
func CloneRowSkeleton(template *Node) *Node {
	row := &Node{Kind: template.Kind}
	for _, c := range template.Children {
		if IsCellRole(Classify(c)) {
			row.Children = append(row.Children, CloneCellSkeleton(c))
		}
	}
	return row
}

// NewID mints a stable identifier for rows and cells. IDs are assigned the
// first time any engine needs to reference the node and are never reused
// after deletion.
func NewID() string {
	return uuid.NewString()
}

// EnsureRowID assigns a rowId inside the transaction if the row lacks one,
// returning the effective id.
func EnsureRowID(t *Transaction, rowPath Path) (string, error) {
	row, ok := Resolve(t.Root(), rowPath)
	if !ok {
		return "", ErrBadPath
	}
	if row.Attrs.RowID != "" {
		return row.Attrs.RowID, nil
	}
	id := NewID()
	if err := t.UpdateAttrs(rowPath, func(a *Attrs) { a.RowID = id }); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureCellID assigns a cellId inside the transaction if the cell lacks
// one, returning the effective id.
func EnsureCellID(t *Transaction, cellPath Path) (string, error) {
	cell, ok := Resolve(t.Root(), cellPath)
	if !ok {
		return "", ErrBadPath
	}
	if cell.Attrs.CellID != "" {
		return cell.Attrs.CellID, nil
	}
	id := NewID()
	if err := t.UpdateAttrs(cellPath, func(a *Attrs) { a.CellID = id }); err != nil {
		return "", err
	}
	return id, nil
}
