// internal/doc/transaction.go
package doc

import (
	"errors"
	"fmt"
)

// ErrBadPath is returned by transaction builders when a target path does not
// resolve against the transaction's working document.
var ErrBadPath = errors.New("doc: path does not resolve")

// stepKind enumerates the mapping-relevant edit shapes.
type stepKind int

const (
	stepInsert stepKind = iota
	stepDelete
	stepReplace
)

// mapStep is the position-mapping record of one applied edit.
type mapStep struct {
	kind   stepKind
	parent Path
	index  int
	count  int
}

// Transaction is an atomic batch of edits built against a base document.
// Builder methods mutate a private deep copy immediately, so engines can read
// intermediate state through Root() while building; the base document is
// never touched. Discarding the transaction discards every edit, which is
// what makes precondition and staleness failures free.
type Transaction struct {
	base    *Node
	root    *Node
	steps   []mapStep
	changed bool
}

// NewTransaction starts a transaction over base.
func NewTransaction(base *Node) *Transaction {
	return &Transaction{base: base, root: base.Clone()}
}

// Root returns the transaction's working document.
func (t *Transaction) Root() *Node { return t.root }

// Changed reports whether any edit was recorded.
func (t *Transaction) Changed() bool { return t.changed }

func (t *Transaction) resolve(p Path) (*Node, error) {
	n, ok := Resolve(t.root, p)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBadPath, p)
	}
	return n, nil
}

// InsertNode inserts n as a child of parent at index.
func (t *Transaction) InsertNode(parent Path, index int, n *Node) error {
	p, err := t.resolve(parent)
	if err != nil {
		return err
	}
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("%w: insert index %d out of range", ErrBadPath, index)
	}
	p.Children = append(p.Children, nil)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = n
	t.record(mapStep{kind: stepInsert, parent: parent.Clone(), index: index, count: 1})
	return nil
}

// DeleteNode removes the node addressed by target.
func (t *Transaction) DeleteNode(target Path) error {
	parent, idx, ok := target.Parent()
	if !ok {
		return fmt.Errorf("%w: cannot delete root", ErrBadPath)
	}
	return t.DeleteChildren(parent, idx, idx+1)
}

// DeleteChildren removes parent's children in [from, to).
func (t *Transaction) DeleteChildren(parent Path, from, to int) error {
	p, err := t.resolve(parent)
	if err != nil {
		return err
	}
	if from < 0 || to > len(p.Children) || from >= to {
		return fmt.Errorf("%w: delete range [%d,%d) out of range", ErrBadPath, from, to)
	}
	p.Children = append(p.Children[:from], p.Children[to:]...)
	t.record(mapStep{kind: stepDelete, parent: parent.Clone(), index: from, count: to - from})
	return nil
}

// ReplaceChildren swaps the full child list of target. Positions inside the
// old children do not survive the mapping.
func (t *Transaction) ReplaceChildren(target Path, children []*Node) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	n.Children = children
	t.record(mapStep{kind: stepReplace, parent: target.Clone()})
	return nil
}

// AppendChildren adds nodes at the end of target's child list.
func (t *Transaction) AppendChildren(target Path, children []*Node) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	at := len(n.Children)
	n.Children = append(n.Children, children...)
	t.record(mapStep{kind: stepInsert, parent: target.Clone(), index: at, count: len(children)})
	return nil
}

// PrependChildren adds nodes at the front of target's child list.
func (t *Transaction) PrependChildren(target Path, children []*Node) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	n.Children = append(append([]*Node(nil), children...), n.Children...)
	t.record(mapStep{kind: stepInsert, parent: target.Clone(), index: 0, count: len(children)})
	return nil
}

// SetAttrs rewrites target's attribute bag.
func (t *Transaction) SetAttrs(target Path, attrs Attrs) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	n.Attrs = attrs
	t.changed = true
	return nil
}

// UpdateAttrs applies fn to a copy of target's attributes and stores the
// result.
func (t *Transaction) UpdateAttrs(target Path, fn func(*Attrs)) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	a := n.Attrs
	fn(&a)
	n.Attrs = a
	t.changed = true
	return nil
}

// SetText rewrites the text of a text leaf.
func (t *Transaction) SetText(target Path, text string) error {
	n, err := t.resolve(target)
	if err != nil {
		return err
	}
	if n.Kind != KindText {
		return fmt.Errorf("%w: SetText on %q node", ErrBadPath, n.Kind)
	}
	n.Text = text
	t.changed = true
	return nil
}

func (t *Transaction) record(s mapStep) {
	t.steps = append(t.steps, s)
	t.changed = true
}

// -- Position mapping --

// Map remaps a path taken against the base document through every structural
// edit, in order. ok is false when the addressed node was deleted or its
// subtree wholesale replaced.
func (t *Transaction) Map(p Path) (Path, bool) {
	out := p.Clone()
	for _, s := range t.steps {
		var ok bool
		out, ok = mapThrough(out, s)
		if !ok {
			return nil, false
		}
	}
	return out, true
}

// MapPosition remaps a caret position; the offset is preserved when the
// addressed node survives.
func (t *Transaction) MapPosition(pos Position) (Position, bool) {
	p, ok := t.Map(pos.Path)
	if !ok {
		return Position{}, false
	}
	return Position{Path: p, Offset: pos.Offset}, true
}

func mapThrough(p Path, s mapStep) (Path, bool) {
	switch s.kind {
	case stepReplace:
		if len(p) > len(s.parent) && p.HasPrefix(s.parent) {
			return nil, false
		}
		return p, true
	case stepInsert:
		if len(p) > len(s.parent) && p.HasPrefix(s.parent) {
			depth := len(s.parent)
			if p[depth] >= s.index {
				p = p.Clone()
				p[depth] += s.count
			}
		}
		return p, true
	case stepDelete:
		if len(p) > len(s.parent) && p.HasPrefix(s.parent) {
			depth := len(s.parent)
			switch {
			case p[depth] >= s.index+s.count:
				p = p.Clone()
				p[depth] -= s.count
			case p[depth] >= s.index:
				return nil, false
			}
		}
		return p, true
	}
	return p, true
}
