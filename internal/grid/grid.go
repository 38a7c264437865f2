// internal/grid/grid.go

// Package grid derives a read-only coordinate map from a table node: which
// cell occupies each (row, column) position once row and column spans are
// applied. The map is a pure derivation with no state of its own; rebuild it
// after every transaction instead of caching it.
package grid

import (
	"errors"
	"fmt"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// ErrNotTable is returned when the path does not address a table node.
var ErrNotTable = errors.New("grid: path is not a table")

// CellRef identifies one cell node and its place in the grid. Row/Col is the
// top-left coordinate of the cell's rectangle.
type CellRef struct {
	Path    doc.Path
	Node    *doc.Node
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	RowPath doc.Path
	Covered bool // covered member of a merge; occupies no coordinates
}

// IsOrigin reports whether the cell heads a merge rectangle.
func (c *CellRef) IsOrigin() bool {
	return c.Node.Attrs.MergeOrigin || c.RowSpan > 1 || c.ColSpan > 1
}

// Rect is an inclusive rectangle of grid coordinates.
type Rect struct {
	Top, Left, Bottom, Right int
}

// Width returns the number of columns the rectangle spans.
func (r Rect) Width() int { return r.Right - r.Left + 1 }

// Height returns the number of rows the rectangle spans.
func (r Rect) Height() int { return r.Bottom - r.Top + 1 }

// Contains reports whether the coordinate lies inside the rectangle.
func (r Rect) Contains(row, col int) bool {
	return row >= r.Top && row <= r.Bottom && col >= r.Left && col <= r.Right
}

// Map is the occupancy grid of one table.
type Map struct {
	TablePath doc.Path
	Table     *doc.Node
	Rows      int
	Cols      int

	occupancy [][]*CellRef
	refs      []*CellRef // document order, covered cells included
	rowPaths  []doc.Path
}

// Build derives the map for the table at tablePath. Covered merge members
// occupy no coordinates (their origin's rectangle accounts for them); they
// are still indexed for id and path lookup.
func Build(root *doc.Node, tablePath doc.Path) (*Map, error) {
	table, ok := doc.Resolve(root, tablePath)
	if !ok || doc.Classify(table) != doc.RoleTable {
		return nil, ErrNotTable
	}

	m := &Map{TablePath: tablePath.Clone(), Table: table}
	m.rowPaths = RowPaths(root, tablePath)
	m.Rows = len(m.rowPaths)

	rowNodes := make([]*doc.Node, m.Rows)
	for i, rp := range m.rowPaths {
		rowNodes[i], _ = doc.Resolve(root, rp)
	}

	// Occupancy filled with a moving cursor per row; rowspans from earlier
	// rows block columns below them.
	var grid [][]*CellRef
	ensure := func(row, col int) {
		for len(grid) <= row {
			grid = append(grid, nil)
		}
		for len(grid[row]) <= col {
			grid[row] = append(grid[row], nil)
		}
	}

	for ri, row := range rowNodes {
		if row == nil {
			continue
		}
		col := 0
		for ci, cell := range row.Children {
			role := doc.Classify(cell)
			if !doc.IsCellRole(role) {
				continue
			}
			ref := &CellRef{
				Path:    m.rowPaths[ri].Child(ci),
				Node:    cell,
				RowPath: m.rowPaths[ri],
			}
			if cell.Attrs.MergedTo != "" {
				ref.Covered = true
				ref.Row, ref.Col = ri, -1
				m.refs = append(m.refs, ref)
				continue
			}
			ref.RowSpan = cell.Attrs.EffectiveRowSpan()
			ref.ColSpan = cell.Attrs.EffectiveColSpan()

			// Skip columns claimed by rowspans from rows above.
			for {
				ensure(ri, col)
				if grid[ri][col] == nil {
					break
				}
				col++
			}
			ref.Row, ref.Col = ri, col
			for r := ri; r < ri+ref.RowSpan; r++ {
				for c := col; c < col+ref.ColSpan; c++ {
					ensure(r, c)
					grid[r][c] = ref
				}
			}
			col += ref.ColSpan
			m.refs = append(m.refs, ref)
		}
	}

	// Normalize width.
	for _, r := range grid {
		if len(r) > m.Cols {
			m.Cols = len(r)
		}
	}
	for i := range grid {
		for len(grid[i]) < m.Cols {
			grid[i] = append(grid[i], nil)
		}
	}
	if len(grid) > m.Rows {
		// rowspans running past the last physical row; clamp.
		grid = grid[:m.Rows]
	}
	m.occupancy = grid
	return m, nil
}

// At returns the occupant of (row, col), or nil when the coordinate is empty
// or out of bounds.
func (m *Map) At(row, col int) *CellRef {
	if row < 0 || row >= len(m.occupancy) || col < 0 || col >= len(m.occupancy[row]) {
		return nil
	}
	return m.occupancy[row][col]
}

// Refs returns every cell in document order, covered cells included.
func (m *Map) Refs() []*CellRef { return m.refs }

// FindByPath returns the ref for the cell at path.
func (m *Map) FindByPath(p doc.Path) (*CellRef, bool) {
	for _, r := range m.refs {
		if r.Path.Equal(p) {
			return r, true
		}
	}
	return nil, false
}

// FindByCellID returns the ref carrying the given cellId.
func (m *Map) FindByCellID(id string) (*CellRef, bool) {
	if id == "" {
		return nil, false
	}
	for _, r := range m.refs {
		if r.Node.Attrs.CellID == id {
			return r, true
		}
	}
	return nil, false
}

// RowIndexOf returns the grid row index of the row at rowPath.
func (m *Map) RowIndexOf(rowPath doc.Path) (int, bool) {
	for i, rp := range m.rowPaths {
		if rp.Equal(rowPath) {
			return i, true
		}
	}
	return 0, false
}

// RowPath returns the document path of grid row i.
func (m *Map) RowPath(i int) (doc.Path, bool) {
	if i < 0 || i >= len(m.rowPaths) {
		return nil, false
	}
	return m.rowPaths[i], true
}

// RectBetween returns the minimal rectangle covering the two cells,
// expanded so every span inside it lies fully within the rectangle.
func (m *Map) RectBetween(a, b doc.Path) (Rect, error) {
	ra, ok := m.FindByPath(a)
	if !ok || ra.Covered {
		return Rect{}, fmt.Errorf("grid: anchor cell not in grid")
	}
	rb, ok := m.FindByPath(b)
	if !ok || rb.Covered {
		return Rect{}, fmt.Errorf("grid: head cell not in grid")
	}
	rect := Rect{
		Top:    min(ra.Row, rb.Row),
		Left:   min(ra.Col, rb.Col),
		Bottom: max(ra.Row+ra.RowSpan-1, rb.Row+rb.RowSpan-1),
		Right:  max(ra.Col+ra.ColSpan-1, rb.Col+rb.ColSpan-1),
	}
	// Grow until every intersecting span is contained.
	for {
		grown := false
		for _, ref := range m.refs {
			if ref.Covered {
				continue
			}
			cr := Rect{Top: ref.Row, Left: ref.Col, Bottom: ref.Row + ref.RowSpan - 1, Right: ref.Col + ref.ColSpan - 1}
			if !intersects(rect, cr) {
				continue
			}
			if cr.Top < rect.Top {
				rect.Top, grown = cr.Top, true
			}
			if cr.Left < rect.Left {
				rect.Left, grown = cr.Left, true
			}
			if cr.Bottom > rect.Bottom {
				rect.Bottom, grown = cr.Bottom, true
			}
			if cr.Right > rect.Right {
				rect.Right, grown = cr.Right, true
			}
		}
		if !grown {
			return rect, nil
		}
	}
}

// CellsInRect returns the unique occupants of the rectangle in row-major
// order of their top-left coordinates.
func (m *Map) CellsInRect(r Rect) []*CellRef {
	var out []*CellRef
	seen := map[*CellRef]bool{}
	for row := r.Top; row <= r.Bottom; row++ {
		for col := r.Left; col <= r.Right; col++ {
			ref := m.At(row, col)
			if ref == nil || seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// InBounds reports whether the rectangle lies within the grid.
func (m *Map) InBounds(r Rect) bool {
	return r.Top >= 0 && r.Left >= 0 && r.Bottom < m.Rows && r.Right < m.Cols && r.Top <= r.Bottom && r.Left <= r.Right
}

func intersects(a, b Rect) bool {
	return a.Left <= b.Right && b.Left <= a.Right && a.Top <= b.Bottom && b.Top <= a.Bottom
}

// RowPaths lists the paths of every row in the table, in visual order,
// whether rows sit directly under the table or inside sections.
func RowPaths(root *doc.Node, tablePath doc.Path) []doc.Path {
	table, ok := doc.Resolve(root, tablePath)
	if !ok {
		return nil
	}
	var out []doc.Path
	for i, c := range table.Children {
		switch doc.Classify(c) {
		case doc.RoleRow:
			out = append(out, tablePath.Child(i))
		default:
			if c.Kind == doc.KindSection {
				for j, rc := range c.Children {
					if doc.Classify(rc) == doc.RoleRow {
						out = append(out, tablePath.Child(i).Child(j))
					}
				}
			}
		}
	}
	return out
}

// TablePaths lists the paths of every table in the document.
func TablePaths(root *doc.Node) []doc.Path {
	var out []doc.Path
	doc.Walk(root, func(p doc.Path, n *doc.Node) bool {
		if doc.Classify(n) == doc.RoleTable {
			out = append(out, p.Clone())
			return false // no nested tables inside cells for grid purposes
		}
		return true
	})
	return out
}
