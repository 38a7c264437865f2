// internal/doc/node_test.go
package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(text string) *Node {
	return NewNode(KindParagraph, NewText(text))
}

func simpleTable() *Node {
	return NewNode(KindDoc,
		NewNode(KindTable,
			NewNode(KindRow,
				NewNode(KindCell, paragraph("a1")),
				NewNode(KindCell, paragraph("b1")),
			),
			NewNode(KindRow,
				NewNode(KindCell, paragraph("a2")),
				NewNode(KindCell, paragraph("b2")),
			),
		),
	)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		kind string
		want Role
	}{
		{"canonical table", KindTable, RoleTable},
		{"alternate table spelling", "htmlTable", RoleTable},
		{"canonical row", KindRow, RoleRow},
		{"alternate row spelling", "tr", RoleRow},
		{"canonical cell", KindCell, RoleCell},
		{"alternate cell spelling", "td", RoleCell},
		{"header cell", KindHeaderCell, RoleHeaderCell},
		{"paragraph is other", KindParagraph, RoleOther},
		{"unknown kind is other", "blockquote", RoleOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&Node{Kind: tt.kind}))
		})
	}
}

func TestResolve(t *testing.T) {
	root := simpleTable()

	n, ok := Resolve(root, Path{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, KindCell, n.Kind)
	assert.Equal(t, "a2", TextContent(n))

	_, ok = Resolve(root, Path{0, 5})
	assert.False(t, ok)

	self, ok := Resolve(root, Path{})
	require.True(t, ok)
	assert.Same(t, root, self)
}

func TestAncestorOfRole(t *testing.T) {
	root := simpleTable()

	// Path to the text leaf inside cell b2.
	leaf := Path{0, 1, 1, 0, 0}

	cellPath, cell, ok := AncestorOfRole(root, leaf, IsCellRole)
	require.True(t, ok)
	assert.Equal(t, Path{0, 1, 1}, cellPath)
	assert.Equal(t, "b2", TextContent(cell))

	tablePath, _, ok := AncestorOfRole(root, leaf, func(r Role) bool { return r == RoleTable })
	require.True(t, ok)
	assert.Equal(t, Path{0}, tablePath)

	_, _, ok = AncestorOfRole(root, Path{0, 0}, func(r Role) bool { return r == RoleHeaderCell })
	assert.False(t, ok)
}

func TestIsVisuallyEmpty(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"empty paragraph", EmptyParagraph(), true},
		{"whitespace text", paragraph("   \t "), true},
		{"hard break only", NewNode(KindParagraph, &Node{Kind: KindHardBreak}), true},
		{"real text", paragraph("content"), false},
		{"cell with empty paragraph", NewNode(KindCell, EmptyParagraph()), true},
		{"cell with text", NewNode(KindCell, paragraph("x")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisuallyEmpty(tt.node))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	root := simpleTable()
	clone := root.Clone()

	cell, ok := Resolve(clone, Path{0, 0, 0})
	require.True(t, ok)
	cell.Attrs.CellID = "changed"
	cell.Children[0].Children[0].Text = "mutated"

	orig, _ := Resolve(root, Path{0, 0, 0})
	assert.Empty(t, orig.Attrs.CellID)
	assert.Equal(t, "a1", TextContent(orig))
}

func TestCloneRowSkeleton(t *testing.T) {
	row := NewNode(KindRow,
		NewNode(KindCell, paragraph("content")),
		NewNode(KindHeaderCell, paragraph("head")),
	)
	row.Children[0].Attrs = Attrs{CellID: "c1", ColSpan: 2, MergeOrigin: true}

	skel := CloneRowSkeleton(row)
	require.Len(t, skel.Children, 2)
	assert.Equal(t, KindCell, skel.Children[0].Kind)
	assert.Equal(t, KindHeaderCell, skel.Children[1].Kind)
	for _, c := range skel.Children {
		assert.Empty(t, c.Attrs.CellID, "skeleton cells get fresh ids lazily")
		assert.False(t, c.Attrs.MergeOrigin)
		assert.True(t, IsVisuallyEmpty(c))
	}
}

func TestEnsureIDs(t *testing.T) {
	root := simpleTable()
	tx := NewTransaction(root)

	id, err := EnsureRowID(tx, Path{0, 0})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// A second call returns the same id without minting a new one.
	again, err := EnsureRowID(tx, Path{0, 0})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// The base document is untouched.
	baseRow, _ := Resolve(root, Path{0, 0})
	assert.Empty(t, baseRow.Attrs.RowID)

	cellID, err := EnsureCellID(tx, Path{0, 0, 1})
	require.NoError(t, err)
	assert.NotEmpty(t, cellID)
	assert.NotEqual(t, id, cellID)
}
