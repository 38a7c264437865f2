// internal/doc/path.go
package doc

// Path addresses a node as the sequence of child indexes from the root.
// Paths are only valid against the document revision they were resolved on;
// remap them through a Transaction's Mapping after any edit.
type Path []int

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is an ancestor of (or equal to) p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Parent splits the path into its parent path and final child index.
func (p Path) Parent() (Path, int, bool) {
	if len(p) == 0 {
		return nil, 0, false
	}
	return p[:len(p)-1].Clone(), p[len(p)-1], true
}

// Child extends the path by one index.
func (p Path) Child(i int) Path {
	return append(p.Clone(), i)
}

// Position is a caret location: a node path plus a rune offset into the
// node's text content (offset 0 for non-text nodes).
type Position struct {
	Path   Path
	Offset int
}
