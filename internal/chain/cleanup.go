// internal/chain/cleanup.go
package chain

import (
	"sort"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/grid"
)

// Reconciler cascades chain maintenance after an arbitrary document edit.
// It compares the row-id set before and after the edit; rows the edit
// removed take their entire downstream chain with them, and surviving
// predecessors get their dangling linkedNext cleared.
//
// Deleting a middle link deliberately discards the downstream remainder
// instead of re-parenting it onto the surviving head: a continuation row
// with no valid predecessor is meaningless content-wise. This can lose
// authored content that was only reachable via the deleted middle row; the
// behavior is intentional and documented rather than "fixed".
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler builds a reconciler.
func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger.With(zap.String("component", "chain_cleanup"))}
}

// Reconcile produces the follow-up transaction for the edit that turned
// before into after, or ok=false when no cleanup is needed. The transaction
// only removes already-orphaned structure, so it can never conflict with
// the triggering edit.
func (c *Reconciler) Reconcile(before, after *doc.Node) (*doc.Transaction, bool) {
	prev := Index(before)
	cur := Index(after)

	// Step 1: rows present before, absent after.
	var deleted []string
	for _, id := range prev.IDs() {
		if _, ok := cur.Lookup(id); !ok {
			deleted = append(deleted, id)
		}
	}
	if len(deleted) == 0 {
		return nil, false
	}

	clearNext := map[string]bool{} // surviving rows whose linkedNext dangles
	doomed := map[string]bool{}    // surviving rows to cascade-delete

	for _, id := range deleted {
		info, _ := prev.Lookup(id)
		// Step 2: a surviving predecessor loses its pointer.
		if info.Prev != "" {
			if _, survives := cur.Lookup(info.Prev); survives {
				clearNext[info.Prev] = true
			}
		}
		// Step 3: the downstream chain, as linked before the edit, goes too.
		for _, down := range prev.Forward(id) {
			if _, survives := cur.Lookup(down.RowID); survives {
				doomed[down.RowID] = true
			}
		}
	}
	// A predecessor that is itself doomed needs no pointer surgery.
	for id := range doomed {
		delete(clearNext, id)
	}
	if len(clearNext) == 0 && len(doomed) == 0 {
		return nil, false
	}

	tx := doc.NewTransaction(after)

	// Step 4a: clear dangling pointers.
	for id := range clearNext {
		if info, ok := findRow(tx.Root(), id); ok {
			if err := tx.UpdateAttrs(info.Path, func(a *doc.Attrs) { a.LinkedNext = "" }); err != nil {
				c.logger.Warn("failed to clear dangling linkedNext", zap.String("row_id", id), zap.Error(err))
			}
		}
	}

	// Step 4b: delete doomed rows, bottom of the document first so earlier
	// paths stay stable while later ones are removed.
	ids := make([]string, 0, len(doomed))
	for id := range doomed {
		ids = append(ids, id)
	}
	paths := map[string]doc.Path{}
	for _, id := range ids {
		if info, ok := findRow(tx.Root(), id); ok {
			paths[id] = info.Path
		}
	}
	sort.Slice(ids, func(i, j int) bool { return pathLess(paths[ids[j]], paths[ids[i]]) })
	for _, id := range ids {
		info, ok := findRow(tx.Root(), id)
		if !ok {
			continue
		}
		if err := tx.DeleteNode(info.Path); err != nil {
			c.logger.Warn("failed to delete orphaned continuation row", zap.String("row_id", id), zap.Error(err))
			continue
		}
		c.logger.Debug("cascaded continuation-row delete", zap.String("row_id", id))
	}

	// Step 4c: sweep row-groups and tables the deletions emptied. A container
	// that was already row-empty before the edit is not the cleanup's to
	// remove; only containers that lost their last row go.
	sweepEmpty(tx, emptyContainerSet(before))

	if !tx.Changed() {
		return nil, false
	}
	return tx, true
}

// findRow re-resolves a rowId against the transaction's current document;
// chain pointers are weak references and must be revalidated per operation.
func findRow(root *doc.Node, rowID string) (RowInfo, bool) {
	return Index(root).Lookup(rowID)
}

// sweepEmpty removes sections with no rows left, then tables with no rows
// left, re-resolving paths after each removal. preexisting fingerprints the
// containers that were row-empty before the triggering edit; each one
// shields a matching empty container from the sweep.
func sweepEmpty(tx *doc.Transaction, preexisting map[string]int) {
	for {
		target := findEmptyContainer(tx.Root(), preexisting)
		if target == nil {
			return
		}
		if err := tx.DeleteNode(target); err != nil {
			return
		}
	}
}

// emptyContainerSet fingerprints every row-empty section and table in root,
// counted as a multiset keyed by serialized subtree.
func emptyContainerSet(root *doc.Node) map[string]int {
	set := map[string]int{}
	doc.Walk(root, func(p doc.Path, n *doc.Node) bool {
		if isEmptyContainer(n) {
			if data, err := doc.Marshal(n); err == nil {
				set[string(data)]++
			}
		}
		return true
	})
	return set
}

func isEmptyContainer(n *doc.Node) bool {
	if n.Kind == doc.KindSection {
		return countRows(n) == 0
	}
	return doc.Classify(n) == doc.RoleTable && len(grid.RowPaths(n, doc.Path{})) == 0
}

func findEmptyContainer(root *doc.Node, preexisting map[string]int) doc.Path {
	budget := make(map[string]int, len(preexisting))
	for k, v := range preexisting {
		budget[k] = v
	}
	var found doc.Path
	doc.Walk(root, func(p doc.Path, n *doc.Node) bool {
		if found != nil {
			return false
		}
		if !isEmptyContainer(n) {
			return true
		}
		if data, err := doc.Marshal(n); err == nil && budget[string(data)] > 0 {
			budget[string(data)]--
			return true
		}
		found = p.Clone()
		return false
	})
	return found
}

func countRows(n *doc.Node) int {
	count := 0
	for _, c := range n.Children {
		if doc.Classify(c) == doc.RoleRow {
			count++
		}
	}
	return count
}

func pathLess(a, b doc.Path) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
