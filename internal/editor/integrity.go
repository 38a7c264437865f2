// internal/editor/integrity.go
package editor

import (
	"fmt"

	"github.com/rowanlabs/gridpager/internal/chain"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// Problem is one structural defect found by CheckIntegrity.
type Problem struct {
	Path doc.Path
	Msg  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%v: %s", []int(p.Path), p.Msg)
}

// CheckIntegrity audits the document's structural invariants without
// mutating it: chain pointers must be symmetric and acyclic, merge
// references must resolve to an origin whose rectangle covers the
// referencing cell, and every grid must build cleanly. Returns nil when
// the document is sound.
func (e *Editor) CheckIntegrity() []Problem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CheckTree(e.root)
}

// CheckTree is the audit behind CheckIntegrity, usable on detached trees.
func CheckTree(root *doc.Node) []Problem {
	var out []Problem

	reg := chain.Index(root)
	for _, id := range reg.IDs() {
		info, _ := reg.Lookup(id)
		if info.Next != "" {
			next, ok := reg.Lookup(info.Next)
			if !ok {
				out = append(out, Problem{info.Path, fmt.Sprintf("linkedNext %q does not resolve", info.Next)})
			} else if next.Prev != id {
				out = append(out, Problem{info.Path, fmt.Sprintf("linkedNext %q does not point back", info.Next)})
			}
		}
		if info.Prev != "" {
			prev, ok := reg.Lookup(info.Prev)
			if !ok {
				out = append(out, Problem{info.Path, fmt.Sprintf("linkedPrev %q does not resolve", info.Prev)})
			} else if prev.Next != id {
				out = append(out, Problem{info.Path, fmt.Sprintf("linkedPrev %q does not point forward", info.Prev)})
			}
		}
		// The forward walk stops early when it would revisit a row. A walk
		// whose last hop still advertises a resolvable next is therefore a
		// cycle. Checked from chain heads only to report each loop once.
		if info.Prev == "" {
			fw := reg.Forward(id)
			if n := len(fw); n > 0 && fw[n-1].Next != "" {
				if _, ok := reg.Lookup(fw[n-1].Next); ok {
					out = append(out, Problem{info.Path, "chain contains a cycle"})
				}
			}
		}
	}

	for _, tp := range grid.TablePaths(root) {
		m, err := grid.Build(root, tp)
		if err != nil {
			out = append(out, Problem{tp, fmt.Sprintf("grid build failed: %v", err)})
			continue
		}
		for _, ref := range m.Refs() {
			if !ref.Covered {
				continue
			}
			cell, ok := doc.Resolve(root, ref.Path)
			if !ok {
				continue
			}
			originRef, ok := m.FindByCellID(cell.Attrs.MergedTo)
			if !ok {
				out = append(out, Problem{ref.Path, fmt.Sprintf("mergedTo %q does not resolve", cell.Attrs.MergedTo)})
				continue
			}
			rect := grid.Rect{
				Top:    originRef.Row,
				Left:   originRef.Col,
				Bottom: originRef.Row + originRef.RowSpan - 1,
				Right:  originRef.Col + originRef.ColSpan - 1,
			}
			rowIdx, okR := m.RowIndexOf(ref.RowPath)
			if okR && !rect.Contains(rowIdx, originRef.Col) {
				out = append(out, Problem{ref.Path, "covered cell lies outside its origin's rectangle"})
			}
			if cell.Attrs.HideMode != doc.HideModeNone && cell.Attrs.HideMode != doc.HideModeHidden {
				out = append(out, Problem{ref.Path, fmt.Sprintf("unknown hideMode %q", cell.Attrs.HideMode)})
			}
		}
	}
	return out
}
