// internal/doc/node.go
package doc

import "strings"

// -- Node kinds --

// Canonical kind tags. Schema variants (legacy exports, HTML-derived
// documents) may carry alternate spellings; Classify resolves them all.
const (
	KindDoc        = "doc"
	KindTable      = "table"
	KindSection    = "tableSection"
	KindRow        = "tableRow"
	KindCell       = "tableCell"
	KindHeaderCell = "tableHeader"
	KindParagraph  = "paragraph"
	KindText       = "text"
	KindHardBreak  = "hardBreak"
)

// HideMode values for covered cells. A covered cell in the merge origin's own
// row is removed from layout flow entirely (HideModeNone); covered cells in
// the rows below keep their layout slot but are rendered invisible
// (HideModeHidden) so row-height bookkeeping survives the merge.
const (
	HideModeNone   = "none"
	HideModeHidden = "hidden"
)

// Attrs is the mutable attribute bag carried by content nodes. Merge and
// chain metadata deliberately live here rather than in a side table: the
// attributes must travel with the node through copy, move and undo.
type Attrs struct {
	// Row attributes.
	RowID      string `json:"rowId,omitempty"`
	LinkedPrev string `json:"linkedPrev,omitempty"`
	LinkedNext string `json:"linkedNext,omitempty"`

	// Cell attributes.
	CellID      string `json:"cellId,omitempty"`
	MergeOrigin bool   `json:"mergeOrigin,omitempty"`
	MergedTo    string `json:"mergedTo,omitempty"`
	HideMode    string `json:"hideMode,omitempty"`
	ColSpan     int    `json:"colspan,omitempty"`
	RowSpan     int    `json:"rowspan,omitempty"`

	// Table attributes.
	Locked     bool      `json:"locked,omitempty"`
	ColumnSize []float64 `json:"columnSize,omitempty"`
}

// EffectiveColSpan treats unset/invalid spans as 1.
func (a Attrs) EffectiveColSpan() int {
	if a.ColSpan < 1 {
		return 1
	}
	return a.ColSpan
}

// EffectiveRowSpan treats unset/invalid spans as 1.
func (a Attrs) EffectiveRowSpan() int {
	if a.RowSpan < 1 {
		return 1
	}
	return a.RowSpan
}

// Node is a single node of the document tree. Text is only meaningful for
// KindText leaves.
type Node struct {
	Kind     string  `json:"kind"`
	Text     string  `json:"text,omitempty"`
	Attrs    Attrs   `json:"attrs"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode builds a node with the given kind and children.
func NewNode(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewText builds a text leaf.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Text: n.Text, Attrs: n.Attrs}
	if n.Attrs.ColumnSize != nil {
		out.Attrs.ColumnSize = append([]float64(nil), n.Attrs.ColumnSize...)
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.Children) }

// -- Role classification --

// Role is the closed polymorphic tag resolved once per node. All grid and
// chain algorithms dispatch on Role, never on raw kind strings.
type Role int

const (
	RoleOther Role = iota
	RoleTable
	RoleRow
	RoleCell
	RoleHeaderCell
)

// Alternate kind spellings accepted per role. Duck typing keeps the engine
// compatible with documents produced by older schemas and HTML importers.
var (
	tableKinds  = map[string]bool{KindTable: true, "pageTable": true, "htmlTable": true}
	rowKinds    = map[string]bool{KindRow: true, "table_row": true, "tr": true}
	cellKinds   = map[string]bool{KindCell: true, "table_cell": true, "td": true}
	headerKinds = map[string]bool{KindHeaderCell: true, "table_header": true, "th": true}
)

// Classify resolves a node to its structural role.
func Classify(n *Node) Role {
	if n == nil {
		return RoleOther
	}
	switch {
	case tableKinds[n.Kind]:
		return RoleTable
	case rowKinds[n.Kind]:
		return RoleRow
	case cellKinds[n.Kind]:
		return RoleCell
	case headerKinds[n.Kind]:
		return RoleHeaderCell
	default:
		return RoleOther
	}
}

// IsCellRole reports whether the role is an ordinary or header cell. The two
// variants behave identically everywhere except rendering.
func IsCellRole(r Role) bool { return r == RoleCell || r == RoleHeaderCell }

// -- Tree queries --

// Resolve walks the path from root and returns the addressed node.
func Resolve(root *Node, p Path) (*Node, bool) {
	n := root
	for _, i := range p {
		if n == nil || i < 0 || i >= len(n.Children) {
			return nil, false
		}
		n = n.Children[i]
	}
	if n == nil {
		return nil, false
	}
	return n, true
}

// AncestorOfRole returns the deepest node on the path (including the target
// itself) whose role matches the predicate, along with the path to it.
func AncestorOfRole(root *Node, p Path, match func(Role) bool) (Path, *Node, bool) {
	var (
		foundPath Path
		foundNode *Node
		ok        bool
	)
	n := root
	if match(Classify(n)) {
		foundPath, foundNode, ok = Path{}, n, true
	}
	for i, idx := range p {
		if idx < 0 || idx >= len(n.Children) {
			return nil, nil, false
		}
		n = n.Children[idx]
		if match(Classify(n)) {
			foundPath, foundNode, ok = p[:i+1].Clone(), n, true
		}
	}
	return foundPath, foundNode, ok
}

// Walk performs a depth-first traversal. The visitor returns false to stop
// descending into the current node's children.
func Walk(root *Node, fn func(p Path, n *Node) bool) {
	walk(root, Path{}, fn)
}

func walk(n *Node, p Path, fn func(Path, *Node) bool) {
	if n == nil {
		return
	}
	if !fn(p, n) {
		return
	}
	for i, c := range n.Children {
		walk(c, append(p.Clone(), i), fn)
	}
}

// -- Content inspection --

// TextContent concatenates all text under the node.
func TextContent(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(TextContent(c))
	}
	return b.String()
}

// IsVisuallyEmpty reports whether a cell or block carries no meaningful
// content: no non-whitespace text and no inline content beyond line breaks.
// Such cells contribute nothing to a merge's consolidated content and such
// rows are eligible for deletion during merge-back.
func IsVisuallyEmpty(n *Node) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case KindText:
		return strings.TrimSpace(n.Text) == ""
	case KindHardBreak:
		return true
	}
	if len(n.Children) == 0 {
		// A childless non-text leaf (image, embed, ...) is content.
		switch n.Kind {
		case KindParagraph, KindCell, KindHeaderCell, KindRow, KindSection, KindTable, KindDoc:
			return true
		default:
			return false
		}
	}
	for _, c := range n.Children {
		if !IsVisuallyEmpty(c) {
			return false
		}
	}
	return true
}
