// internal/geometry/estimator.go
package geometry

import (
	"errors"
	"math"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// ErrNoMetrics is returned when the estimator is configured with unusable
// text metrics.
var ErrNoMetrics = errors.New("geometry: invalid estimator metrics")

// Metrics are the text measurements the estimator derives heights from.
// They are configuration, not measurements: the point of the estimator is a
// deterministic provider for tests, batch reflow and headless operation.
type Metrics struct {
	CellWidth    float64 // content width available to a cell
	CharWidth    float64 // average glyph advance
	LineHeight   float64 // height of one wrapped line
	BlockSpacing float64 // vertical space a block adds around its lines
}

// DefaultMetrics mirrors a 400px cell of 16px monospaced text.
func DefaultMetrics() Metrics {
	return Metrics{CellWidth: 400, CharWidth: 8, LineHeight: 20, BlockSpacing: 4}
}

// Estimator is a Provider computing heights from character counts and
// configured metrics instead of a rendering pass. Wrapping is simulated at
// a fixed characters-per-line derived from CellWidth/CharWidth; hard breaks
// force a new line.
type Estimator struct {
	m            Metrics
	charsPerLine int
}

// NewEstimator validates the metrics and builds an estimator.
func NewEstimator(m Metrics) (*Estimator, error) {
	if m.CellWidth <= 0 || m.CharWidth <= 0 || m.LineHeight <= 0 || m.BlockSpacing < 0 {
		return nil, ErrNoMetrics
	}
	cpl := int(m.CellWidth / m.CharWidth)
	if cpl < 1 {
		cpl = 1
	}
	return &Estimator{m: m, charsPerLine: cpl}, nil
}

// flatten renders a block's inline content to a rune stream where a hard
// break is one '\n' rune. Split offsets index into this stream.
func flatten(block *doc.Node) []rune {
	var out []rune
	var visit func(n *doc.Node)
	visit = func(n *doc.Node) {
		switch n.Kind {
		case doc.KindText:
			out = append(out, []rune(n.Text)...)
		case doc.KindHardBreak:
			out = append(out, '\n')
		default:
			for _, c := range n.Children {
				visit(c)
			}
		}
	}
	for _, c := range block.Children {
		visit(c)
	}
	return out
}

func (e *Estimator) linesOf(stream []rune) int {
	lines := 0
	segment := 0
	flush := func() {
		if segment == 0 {
			lines++
			return
		}
		lines += int(math.Ceil(float64(segment) / float64(e.charsPerLine)))
		segment = 0
	}
	for _, r := range stream {
		if r == '\n' {
			flush()
			continue
		}
		segment++
	}
	flush()
	if lines < 1 {
		lines = 1
	}
	return lines
}

func (e *Estimator) streamHeight(stream []rune) float64 {
	return float64(e.linesOf(stream))*e.m.LineHeight + e.m.BlockSpacing
}

// BlockHeight implements Provider.
func (e *Estimator) BlockHeight(block *doc.Node) (float64, error) {
	if block == nil {
		return 0, errors.New("geometry: nil block")
	}
	return e.streamHeight(flatten(block)), nil
}

// ContentHeight implements Provider: the sum of the cell's block heights.
func (e *Estimator) ContentHeight(cell *doc.Node) (float64, error) {
	if cell == nil {
		return 0, errors.New("geometry: nil cell")
	}
	var total float64
	for _, b := range cell.Children {
		h, err := e.BlockHeight(b)
		if err != nil {
			return 0, err
		}
		total += h
	}
	return total, nil
}

// Overflows implements Provider.
func (e *Estimator) Overflows(cell *doc.Node, maxHeight float64) (bool, error) {
	h, err := e.ContentHeight(cell)
	if err != nil {
		return false, err
	}
	return h > maxHeight, nil
}

// SpareCapacity implements Provider.
func (e *Estimator) SpareCapacity(cell *doc.Node, maxHeight float64) (float64, error) {
	h, err := e.ContentHeight(cell)
	if err != nil {
		return 0, err
	}
	if h >= maxHeight {
		return 0, nil
	}
	return maxHeight - h, nil
}

// SplitOffset implements Provider with a binary search over the block's rune
// stream: the largest prefix whose simulated height stays within budget.
func (e *Estimator) SplitOffset(block *doc.Node, budget float64) (int, bool, error) {
	stream := flatten(block)
	total := len(stream)
	if total == 0 {
		return 0, false, nil
	}
	if e.streamHeight(stream) <= budget {
		return 0, false, nil // whole block fits, no split point needed
	}
	lo, hi := 0, total // invariant: prefix of length lo fits, hi does not
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if e.streamHeight(stream[:mid]) <= budget {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false, nil
	}
	return lo, true, nil
}

var _ Provider = (*Estimator)(nil)
