// internal/doc/export_test.go
package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportXHTML(t *testing.T) {
	root := simpleTable()

	out, err := ExportXHTML(root, 400)
	require.NoError(t, err)

	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<tr>")
	assert.Contains(t, out, "<td>")
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "b2")
	assert.Contains(t, out, "width:400px")
}

func TestExportXHTMLSpansAndHeader(t *testing.T) {
	row := NewNode(KindRow,
		func() *Node {
			h := NewNode(KindHeaderCell, paragraph("head"))
			h.Attrs.ColSpan = 2
			h.Attrs.RowSpan = 3
			return h
		}(),
	)
	root := NewNode(KindDoc, NewNode(KindTable, NewNode(KindSection, row)))

	out, err := ExportXHTML(root, 400)
	require.NoError(t, err)

	assert.Contains(t, out, `<th colspan="2" rowspan="3">`)
}

func TestExportXHTMLCoveredCells(t *testing.T) {
	origin := NewNode(KindCell, paragraph("origin"))
	origin.Attrs.CellID = "c-origin"
	origin.Attrs.ColSpan = 2

	sameRow := NewNode(KindCell, EmptyParagraph())
	sameRow.Attrs.MergedTo = "c-origin"
	sameRow.Attrs.HideMode = HideModeNone

	below := NewNode(KindCell, EmptyParagraph())
	below.Attrs.MergedTo = "c-origin"
	below.Attrs.HideMode = HideModeHidden

	root := NewNode(KindDoc, NewNode(KindTable, NewNode(KindSection,
		NewNode(KindRow, origin, sameRow),
		NewNode(KindRow, below, NewNode(KindCell, paragraph("kept"))),
	)))

	out, err := ExportXHTML(root, 400)
	require.NoError(t, err)

	// hideMode none drops the cell from layout flow entirely; hideMode
	// hidden keeps the slot but blanks it.
	assert.Contains(t, out, `<td colspan="2">`)
	assert.Contains(t, out, `visibility:hidden`)
	assert.Equal(t, 3, countOccurrences(out, "<td"), "covered same-row cell must not render")
}

func TestExportXHTMLBlocks(t *testing.T) {
	para := NewNode(KindParagraph, NewText("one"), NewNode(KindHardBreak), NewText("two"))
	cell := NewNode(KindCell, para)
	root := NewNode(KindDoc, NewNode(KindTable, NewNode(KindSection, NewNode(KindRow, cell))))

	out, err := ExportXHTML(root, 400)
	require.NoError(t, err)

	assert.Contains(t, out, "<br/>")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
}

func TestExportCellXHTML(t *testing.T) {
	cell := NewNode(KindCell, paragraph("alone"))

	out, err := ExportCellXHTML(cell, 250)
	require.NoError(t, err)

	assert.Contains(t, out, "alone")
	assert.Contains(t, out, "width:250px")
	assert.Contains(t, out, "<table>")
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
