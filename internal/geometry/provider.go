// internal/geometry/provider.go

// Package geometry abstracts the pixel measurements the pagination engines
// depend on. Providers are read-only: they never mutate the document, they
// only answer height and caret questions about it.
package geometry

import "github.com/rowanlabs/gridpager/internal/doc"

// Provider supplies rendered-height measurements for cells and blocks and
// the caret-from-height probe used to pick inline split points. All units
// are abstract pixels; the estimator derives them from configured text
// metrics, the chrome provider from a real layout pass.
type Provider interface {
	// ContentHeight reports the rendered height of the cell's content.
	ContentHeight(cell *doc.Node) (float64, error)

	// BlockHeight reports the rendered height of a single content block in
	// isolation.
	BlockHeight(block *doc.Node) (float64, error)

	// Overflows reports whether the cell's content exceeds maxHeight.
	Overflows(cell *doc.Node, maxHeight float64) (bool, error)

	// SpareCapacity reports how much of maxHeight the cell leaves unused.
	// Never negative.
	SpareCapacity(cell *doc.Node, maxHeight float64) (float64, error)

	// SplitOffset locates the furthest rune offset into the block whose
	// rendered position still fits within budget. ok is false when not even
	// the first character fits, or when the whole block fits (no split
	// needed).
	SplitOffset(block *doc.Node, budget float64) (offset int, ok bool, err error)
}
