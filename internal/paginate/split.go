// internal/paginate/split.go
package paginate

import "github.com/rowanlabs/gridpager/internal/doc"

// splitBlockAt divides a single content block at the given rune offset into
// a left part and a right remainder. Offsets follow the measurement
// convention: text leaves contribute their rune count and a hard break
// contributes exactly one rune. Both halves keep the block's kind and
// attributes. ok is false when either half would come out empty.
func splitBlockAt(block *doc.Node, offset int) (left, right *doc.Node, ok bool) {
	total := streamLen(block)
	if offset <= 0 || offset >= total {
		return nil, nil, false
	}
	l := &doc.Node{Kind: block.Kind, Attrs: block.Attrs}
	r := &doc.Node{Kind: block.Kind, Attrs: block.Attrs}
	remaining := offset
	for _, c := range block.Children {
		if remaining <= 0 {
			r.Children = append(r.Children, c.Clone())
			continue
		}
		cl, cr, consumed := splitLeafRun(c, remaining)
		remaining -= consumed
		if cl != nil {
			l.Children = append(l.Children, cl)
		}
		if cr != nil {
			r.Children = append(r.Children, cr)
		}
	}
	return l, r, true
}

// splitLeafRun splits one inline child at most `limit` runes in. consumed is
// how many runes of the limit the left part used up.
func splitLeafRun(n *doc.Node, limit int) (left, right *doc.Node, consumed int) {
	switch n.Kind {
	case doc.KindText:
		runes := []rune(n.Text)
		if len(runes) <= limit {
			return n.Clone(), nil, len(runes)
		}
		l := n.Clone()
		l.Text = string(runes[:limit])
		r := n.Clone()
		r.Text = string(runes[limit:])
		return l, r, limit
	case doc.KindHardBreak:
		// One rune. limit >= 1 here, so the break lands on the left.
		return n.Clone(), nil, 1
	default:
		// Opaque inline node: atomic, counts as its text content.
		size := streamLen(n)
		if size <= limit {
			return n.Clone(), nil, size
		}
		return nil, n.Clone(), 0
	}
}

// streamLen measures a node in the same rune stream the geometry providers
// flatten to.
func streamLen(n *doc.Node) int {
	total := 0
	switch n.Kind {
	case doc.KindText:
		total = len([]rune(n.Text))
	case doc.KindHardBreak:
		total = 1
	default:
		for _, c := range n.Children {
			total += streamLen(c)
		}
	}
	return total
}
