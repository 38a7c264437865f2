// internal/paginate/split_test.go
package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowanlabs/gridpager/internal/doc"
)

func TestSplitBlockAtText(t *testing.T) {
	block := para("hello world")

	left, right, ok := splitBlockAt(block, 5)
	require.True(t, ok)
	assert.Equal(t, "hello", doc.TextContent(left))
	assert.Equal(t, " world", doc.TextContent(right))
	assert.Equal(t, doc.KindParagraph, left.Kind)
	assert.Equal(t, doc.KindParagraph, right.Kind)

	// The source block is untouched.
	assert.Equal(t, "hello world", doc.TextContent(block))
}

func TestSplitBlockAtDegenerateOffsets(t *testing.T) {
	block := para("abc")

	_, _, ok := splitBlockAt(block, 0)
	assert.False(t, ok)
	_, _, ok = splitBlockAt(block, 3)
	assert.False(t, ok)
	_, _, ok = splitBlockAt(block, -1)
	assert.False(t, ok)
	_, _, ok = splitBlockAt(block, 99)
	assert.False(t, ok)
}

func TestSplitBlockAtSpansLeaves(t *testing.T) {
	block := doc.NewNode(doc.KindParagraph, doc.NewText("abc"), doc.NewText("def"))

	left, right, ok := splitBlockAt(block, 4)
	require.True(t, ok)
	assert.Equal(t, "abcd", doc.TextContent(left))
	assert.Equal(t, "ef", doc.TextContent(right))
	require.Len(t, left.Children, 2)
	require.Len(t, right.Children, 1)
}

func TestSplitBlockAtHardBreak(t *testing.T) {
	// Stream: a b \n c d. The break counts as one rune and lands on the
	// left when the offset passes it.
	block := doc.NewNode(doc.KindParagraph,
		doc.NewText("ab"), doc.NewNode(doc.KindHardBreak), doc.NewText("cd"))

	left, right, ok := splitBlockAt(block, 3)
	require.True(t, ok)
	require.Len(t, left.Children, 2)
	assert.Equal(t, doc.KindHardBreak, left.Children[1].Kind)
	assert.Equal(t, "cd", doc.TextContent(right))

	left, right, ok = splitBlockAt(block, 4)
	require.True(t, ok)
	assert.Equal(t, "c", doc.TextContent(left.Children[2]))
	assert.Equal(t, "d", doc.TextContent(right))
}

func TestSplitBlockAtKeepsAttrs(t *testing.T) {
	block := para("0123456789")
	block.Attrs.Locked = true

	left, right, ok := splitBlockAt(block, 4)
	require.True(t, ok)
	assert.True(t, left.Attrs.Locked)
	assert.True(t, right.Attrs.Locked)
}

func TestSplitBlockAtMultibyteText(t *testing.T) {
	block := para("héllo wörld")

	left, right, ok := splitBlockAt(block, 5)
	require.True(t, ok)
	assert.Equal(t, "héllo", doc.TextContent(left))
	assert.Equal(t, " wörld", doc.TextContent(right))
}
