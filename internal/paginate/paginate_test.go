// internal/paginate/paginate_test.go
package paginate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/geometry"
)

// Tests run against the estimator with default metrics: 50 characters per
// line, 20 units per line, 4 units of block spacing. A one-line paragraph
// measures 24, so a 100 unit row holds four of them.
const (
	testMaxHeight = 100
	testBuffer    = 10
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	est, err := geometry.NewEstimator(geometry.DefaultMetrics())
	require.NoError(t, err)
	return New(est, Config{MaxRowHeight: testMaxHeight, SafetyBuffer: testBuffer}, zaptest.NewLogger(t))
}

func para(text string) *doc.Node {
	return doc.NewNode(doc.KindParagraph, doc.NewText(text))
}

func cellWith(blocks ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.KindCell, blocks...)
}

func rowWith(cells ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.KindRow, cells...)
}

func docWith(rows ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.KindDoc,
		doc.NewNode(doc.KindTable, doc.NewNode(doc.KindSection, rows...)))
}

func mustResolve(t *testing.T, root *doc.Node, p doc.Path) *doc.Node {
	t.Helper()
	n, ok := doc.Resolve(root, p)
	require.True(t, ok, "%v must resolve", p)
	return n
}

func TestPaginateCellBlockBoundary(t *testing.T) {
	eng := newTestEngine(t)

	// Five one-line paragraphs measure 120; four fit, the fifth moves.
	root := docWith(rowWith(
		cellWith(para("left")),
		cellWith(para("one"), para("two"), para("three"), para("four"), para("five")),
	))

	res, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 1}, false)
	require.NoError(t, err)
	require.NotNil(t, res.Tx)
	assert.Nil(t, res.CaretTo)

	after := res.Tx.Root()
	section := mustResolve(t, after, doc.Path{0, 0})
	require.Len(t, section.Children, 2, "continuation row synthesized")

	src := mustResolve(t, after, doc.Path{0, 0, 0, 1})
	require.Len(t, src.Children, 4)
	assert.Equal(t, "four", doc.TextContent(src.Children[3]))

	// Chain pointers link the two rows both ways.
	srcRow := mustResolve(t, after, doc.Path{0, 0, 0})
	contRow := mustResolve(t, after, doc.Path{0, 0, 1})
	require.NotEmpty(t, srcRow.Attrs.RowID)
	require.NotEmpty(t, contRow.Attrs.RowID)
	assert.Equal(t, contRow.Attrs.RowID, srcRow.Attrs.LinkedNext)
	assert.Equal(t, srcRow.Attrs.RowID, contRow.Attrs.LinkedPrev)

	// The tail lands in the aligned column; the placeholder block it was
	// born with is replaced, not kept.
	contCell := mustResolve(t, after, doc.Path{0, 0, 1, 1})
	require.Len(t, contCell.Children, 1)
	assert.Equal(t, "five", doc.TextContent(contCell.Children[0]))

	// The untouched column keeps its empty skeleton.
	otherCell := mustResolve(t, after, doc.Path{0, 0, 1, 0})
	assert.True(t, doc.IsVisuallyEmpty(otherCell))
}

func TestPaginateCellCaretFollowsActiveEdit(t *testing.T) {
	eng := newTestEngine(t)
	root := docWith(rowWith(
		cellWith(para("one"), para("two"), para("three"), para("four"), para("five")),
	))

	res, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 0}, true)
	require.NoError(t, err)
	require.NotNil(t, res.CaretTo)
	assert.Equal(t, doc.Path{0, 0, 1, 0, 0}, res.CaretTo.Path)
	assert.Zero(t, res.CaretTo.Offset)
}

func TestPaginateCellInlineSplit(t *testing.T) {
	eng := newTestEngine(t)

	// A single 300-rune paragraph wraps to six lines (124 units). The
	// budget admits four lines, 200 runes.
	root := docWith(rowWith(cellWith(para(strings.Repeat("x", 300)))))

	res, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 0}, false)
	require.NoError(t, err)

	after := res.Tx.Root()
	src := mustResolve(t, after, doc.Path{0, 0, 0, 0})
	require.Len(t, src.Children, 1)
	assert.Len(t, doc.TextContent(src.Children[0]), 200)

	cont := mustResolve(t, after, doc.Path{0, 0, 1, 0})
	require.Len(t, cont.Children, 1)
	assert.Len(t, doc.TextContent(cont.Children[0]), 100)
	assert.Equal(t, doc.KindParagraph, cont.Children[0].Kind)
}

func TestPaginateCellReusesContinuation(t *testing.T) {
	eng := newTestEngine(t)

	src := rowWith(cellWith(para("one"), para("two"), para("three"), para("four"), para("five")))
	src.Attrs.RowID = "r1"
	src.Attrs.LinkedNext = "r2"
	cont := rowWith(cellWith(para("existing")))
	cont.Attrs.RowID = "r2"
	cont.Attrs.LinkedPrev = "r1"
	root := docWith(src, cont)

	res, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 0}, false)
	require.NoError(t, err)

	after := res.Tx.Root()
	section := mustResolve(t, after, doc.Path{0, 0})
	assert.Len(t, section.Children, 2, "existing continuation is reused, not duplicated")

	// Moved tail goes before content already in the continuation.
	contCell := mustResolve(t, after, doc.Path{0, 0, 1, 0})
	require.Len(t, contCell.Children, 2)
	assert.Equal(t, "five", doc.TextContent(contCell.Children[0]))
	assert.Equal(t, "existing", doc.TextContent(contCell.Children[1]))
}

func TestPaginateCellRejections(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("Not Overflowing", func(t *testing.T) {
		root := docWith(rowWith(cellWith(para("short"))))
		_, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 0}, false)
		assert.ErrorIs(t, err, ErrNotOverflowing)
	})

	t.Run("Locked Table", func(t *testing.T) {
		root := docWith(rowWith(cellWith(
			para("one"), para("two"), para("three"), para("four"), para("five"))))
		root.Children[0].Attrs.Locked = true
		_, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 0}, false)
		assert.ErrorIs(t, err, ErrLocked)
	})

	t.Run("Stale Path", func(t *testing.T) {
		root := docWith(rowWith(cellWith(para("x"))))
		_, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 9}, false)
		assert.ErrorIs(t, err, ErrStale)
	})

	t.Run("Covered Cell", func(t *testing.T) {
		origin := cellWith(para("wide"))
		origin.Attrs.CellID = "c-1"
		origin.Attrs.ColSpan = 2
		covered := cellWith(doc.EmptyParagraph())
		covered.Attrs.MergedTo = "c-1"
		covered.Attrs.HideMode = doc.HideModeNone
		root := docWith(rowWith(origin, covered))
		_, err := eng.PaginateCell(root, doc.Path{0, 0, 0, 1}, false)
		assert.ErrorIs(t, err, ErrStale)
	})
}

func TestPaginateUntilStable(t *testing.T) {
	eng := newTestEngine(t)

	// Ten one-line paragraphs paginate in repeated single steps until
	// every cell fits, without losing a block.
	blocks := make([]*doc.Node, 10)
	for i := range blocks {
		blocks[i] = para(strings.Repeat("q", i+1))
	}
	root := docWith(rowWith(cellWith(blocks...)))

	est, err := geometry.NewEstimator(geometry.DefaultMetrics())
	require.NoError(t, err)

	for range 10 {
		target := doc.Path(nil)
		for _, rp := range rowPathsOf(root) {
			cell := mustResolve(t, root, rp.Child(0))
			over, err := est.Overflows(cell, testMaxHeight)
			require.NoError(t, err)
			if over {
				target = rp.Child(0)
				break
			}
		}
		if target == nil {
			break
		}
		res, err := eng.PaginateCell(root, target, false)
		require.NoError(t, err)
		root = res.Tx.Root()
	}

	total := 0
	for _, rp := range rowPathsOf(root) {
		cell := mustResolve(t, root, rp.Child(0))
		over, err := est.Overflows(cell, testMaxHeight)
		require.NoError(t, err)
		assert.False(t, over)
		total += len(cell.Children)
	}
	assert.Equal(t, 10, total, "pagination never deletes content")
}

func rowPathsOf(root *doc.Node) []doc.Path {
	section, _ := doc.Resolve(root, doc.Path{0, 0})
	out := make([]doc.Path, len(section.Children))
	for i := range section.Children {
		out[i] = doc.Path{0, 0, i}
	}
	return out
}
