// internal/doc/transaction_test.go
package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionIsolation(t *testing.T) {
	root := simpleTable()
	tx := NewTransaction(root)

	require.NoError(t, tx.SetText(Path{0, 0, 0, 0, 0}, "rewritten"))
	require.NoError(t, tx.DeleteNode(Path{0, 1}))

	// Working document sees both edits.
	cell, _ := Resolve(tx.Root(), Path{0, 0, 0})
	assert.Equal(t, "rewritten", TextContent(cell))
	table, _ := Resolve(tx.Root(), Path{0})
	assert.Len(t, table.Children, 1)

	// The base never changes; discarding the transaction is a no-op.
	origCell, _ := Resolve(root, Path{0, 0, 0})
	assert.Equal(t, "a1", TextContent(origCell))
	origTable, _ := Resolve(root, Path{0})
	assert.Len(t, origTable.Children, 2)
}

func TestTransactionChanged(t *testing.T) {
	tx := NewTransaction(simpleTable())
	assert.False(t, tx.Changed())
	require.NoError(t, tx.UpdateAttrs(Path{0, 0}, func(a *Attrs) { a.RowID = "r1" }))
	assert.True(t, tx.Changed())
}

func TestTransactionBadPaths(t *testing.T) {
	tx := NewTransaction(simpleTable())

	assert.ErrorIs(t, tx.SetText(Path{9}, "x"), ErrBadPath)
	assert.ErrorIs(t, tx.InsertNode(Path{0}, 7, EmptyParagraph()), ErrBadPath)
	assert.ErrorIs(t, tx.DeleteChildren(Path{0}, 1, 1), ErrBadPath)
	assert.ErrorIs(t, tx.DeleteNode(Path{}), ErrBadPath)
	assert.ErrorIs(t, tx.SetText(Path{0, 0}, "not a text leaf"), ErrBadPath)
	assert.False(t, tx.Changed(), "failed builders must not mark the transaction changed")
}

func TestMapThroughInsert(t *testing.T) {
	root := simpleTable()
	tx := NewTransaction(root)

	// Insert a row between the two existing rows.
	require.NoError(t, tx.InsertNode(Path{0}, 1, NewNode(KindRow, NewNode(KindCell, EmptyParagraph()))))

	// Paths at or after the insertion index shift down.
	mapped, ok := tx.Map(Path{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, Path{0, 2, 0}, mapped)

	// Paths before the insertion index stay put.
	mapped, ok = tx.Map(Path{0, 0, 1})
	require.True(t, ok)
	assert.Equal(t, Path{0, 0, 1}, mapped)
}

func TestMapThroughDelete(t *testing.T) {
	tx := NewTransaction(simpleTable())
	require.NoError(t, tx.DeleteNode(Path{0, 0}))

	// The deleted subtree does not survive.
	_, ok := tx.Map(Path{0, 0, 1})
	assert.False(t, ok)

	// Following siblings shift up.
	mapped, ok := tx.Map(Path{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, Path{0, 0, 0}, mapped)
}

func TestMapThroughReplace(t *testing.T) {
	tx := NewTransaction(simpleTable())
	require.NoError(t, tx.ReplaceChildren(Path{0, 0, 0}, []*Node{paragraph("new")}))

	// Positions inside the replaced cell are invalidated.
	_, ok := tx.Map(Path{0, 0, 0, 0})
	assert.False(t, ok)

	// The replaced node itself survives.
	mapped, ok := tx.Map(Path{0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, Path{0, 0, 0}, mapped)
}

func TestMapPosition(t *testing.T) {
	tx := NewTransaction(simpleTable())
	require.NoError(t, tx.InsertNode(Path{0}, 0, NewNode(KindRow, NewNode(KindCell, EmptyParagraph()))))

	pos, ok := tx.MapPosition(Position{Path: Path{0, 1, 0, 0, 0}, Offset: 2})
	require.True(t, ok)
	assert.Equal(t, Path{0, 2, 0, 0, 0}, pos.Path)
	assert.Equal(t, 2, pos.Offset)
}

func TestMapThroughSequence(t *testing.T) {
	// Edits compose in order: a delete followed by an insert at the same
	// level must both be applied to the mapped path.
	tx := NewTransaction(simpleTable())
	require.NoError(t, tx.DeleteNode(Path{0, 0}))
	require.NoError(t, tx.InsertNode(Path{0}, 0, NewNode(KindRow, NewNode(KindCell, EmptyParagraph()))))

	mapped, ok := tx.Map(Path{0, 1})
	require.True(t, ok)
	assert.Equal(t, Path{0, 1}, mapped)
}
