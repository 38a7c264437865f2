// internal/chain/registry.go

// Package chain maintains the continuation-row linkage: rows carry
// rowId/linkedPrev/linkedNext attributes forming a doubly linked, acyclic,
// singly rooted list per logical row. The linkage is modeled as weak
// references — always re-resolved against the current document, never cached
// node pointers — because any row can disappear under an arbitrary edit.
package chain

import (
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// RowInfo is a snapshot of one row's identity and linkage.
type RowInfo struct {
	Path      doc.Path
	TablePath doc.Path
	RowID     string
	Prev      string
	Next      string
}

// Registry indexes every identified row of a document revision. It is a
// derivation like the grid map: rebuild after each transaction.
type Registry struct {
	byID  map[string]RowInfo
	order []string // document order of identified rows
}

// Index scans all tables of the document.
func Index(root *doc.Node) *Registry {
	r := &Registry{byID: map[string]RowInfo{}}
	for _, tp := range grid.TablePaths(root) {
		for _, rp := range grid.RowPaths(root, tp) {
			row, ok := doc.Resolve(root, rp)
			if !ok || row.Attrs.RowID == "" {
				continue
			}
			info := RowInfo{
				Path:      rp,
				TablePath: tp.Clone(),
				RowID:     row.Attrs.RowID,
				Prev:      row.Attrs.LinkedPrev,
				Next:      row.Attrs.LinkedNext,
			}
			if _, dup := r.byID[info.RowID]; dup {
				// Duplicate ids should not happen; keep the first, the
				// integrity checker reports the rest.
				continue
			}
			r.byID[info.RowID] = info
			r.order = append(r.order, info.RowID)
		}
	}
	return r
}

// Lookup resolves a rowId to its current row.
func (r *Registry) Lookup(rowID string) (RowInfo, bool) {
	if rowID == "" {
		return RowInfo{}, false
	}
	info, ok := r.byID[rowID]
	return info, ok
}

// NextOf resolves the continuation of the given row, if it exists.
func (r *Registry) NextOf(rowID string) (RowInfo, bool) {
	info, ok := r.Lookup(rowID)
	if !ok || info.Next == "" {
		return RowInfo{}, false
	}
	return r.Lookup(info.Next)
}

// IDs returns all indexed rowIds in document order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Forward returns the chain downstream of rowID (exclusive), in order,
// guarding against pointer cycles from corrupted documents.
func (r *Registry) Forward(rowID string) []RowInfo {
	var out []RowInfo
	seen := map[string]bool{rowID: true}
	cur, ok := r.Lookup(rowID)
	if !ok {
		return nil
	}
	for cur.Next != "" {
		next, ok := r.Lookup(cur.Next)
		if !ok || seen[next.RowID] {
			break
		}
		seen[next.RowID] = true
		out = append(out, next)
		cur = next
	}
	return out
}

// Origin walks linkedPrev up to the chain root.
func (r *Registry) Origin(rowID string) (RowInfo, bool) {
	cur, ok := r.Lookup(rowID)
	if !ok {
		return RowInfo{}, false
	}
	seen := map[string]bool{cur.RowID: true}
	for cur.Prev != "" {
		prev, ok := r.Lookup(cur.Prev)
		if !ok || seen[prev.RowID] {
			break
		}
		seen[prev.RowID] = true
		cur = prev
	}
	return cur, true
}
