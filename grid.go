package sapling

import (
	"fmt"
	"image"
)

// Grid is an immutable 2D grid of integer-sized tiles. Column widths, row
// heights and the gaps between them may vary per index.
//
// Column and row arguments may be negative to count from the end, like
// Python list indices. Indices out of range panic.
type Grid struct {
	colW, rowH     []int
	colGap, rowGap []int // len(colW)-1 and len(rowH)-1
}

// NewGrid creates a grid of cols by rows tiles, all tileW by tileH, with gapX
// between columns and gapY between rows.
func NewGrid(cols, rows, tileW, tileH, gapX, gapY int) *Grid {
	if cols < 0 || rows < 0 {
		panic(fmt.Sprintf("sapling: grid of %dx%d tiles", cols, rows))
	}
	return &Grid{
		colW:   repeatInt(tileW, cols),
		rowH:   repeatInt(tileH, rows),
		colGap: repeatInt(gapX, cols-1),
		rowGap: repeatInt(gapY, rows-1),
	}
}

// NewGridSizes creates a grid from per-column widths, per-row heights and the
// gaps after each column and row but the last. Nil gaps mean no gaps.
func NewGridSizes(colW, rowH, colGap, rowGap []int) (*Grid, error) {
	if colGap == nil {
		colGap = repeatInt(0, len(colW)-1)
	}
	if rowGap == nil {
		rowGap = repeatInt(0, len(rowH)-1)
	}
	if len(colGap) != max(len(colW)-1, 0) {
		return nil, fmt.Errorf("%w: %d columns, %d column gaps", ErrGridMismatch, len(colW), len(colGap))
	}
	if len(rowGap) != max(len(rowH)-1, 0) {
		return nil, fmt.Errorf("%w: %d rows, %d row gaps", ErrGridMismatch, len(rowH), len(rowGap))
	}
	clone := func(s []int) []int { return append([]int(nil), s...) }
	return &Grid{colW: clone(colW), rowH: clone(rowH), colGap: clone(colGap), rowGap: clone(rowGap)}, nil
}

func repeatInt(v, n int) []int {
	s := make([]int, max(n, 0))
	for i := range s {
		s[i] = v
	}
	return s
}

// wrap resolves a possibly negative index into [0, n).
func wrap(i, n int, axis string) int {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		panic(fmt.Sprintf("sapling: grid %s %d out of range [0, %d)", axis, i, n))
	}
	return i
}

// NCols returns the number of columns.
func (g *Grid) NCols() int { return len(g.colW) }

// NRows returns the number of rows.
func (g *Grid) NRows() int { return len(g.rowH) }

func axisSize(sizes, gaps []int) int {
	n := 0
	for _, s := range sizes {
		n += s
	}
	for _, s := range gaps {
		n += s
	}
	return n
}

// W returns the total width.
func (g *Grid) W() int { return axisSize(g.colW, g.colGap) }

// H returns the total height.
func (g *Grid) H() int { return axisSize(g.rowH, g.rowGap) }

// Size returns the total size.
func (g *Grid) Size() image.Point { return image.Pt(g.W(), g.H()) }

func axisPos(sizes, gaps []int, i int) int {
	n := 0
	for j := 0; j < i; j++ {
		n += sizes[j] + gaps[j]
	}
	return n
}

// TileX returns the left edge of column col relative to the grid.
func (g *Grid) TileX(col int) int {
	return axisPos(g.colW, g.colGap, wrap(col, len(g.colW), "column"))
}

// TileY returns the top edge of row row relative to the grid.
func (g *Grid) TileY(row int) int {
	return axisPos(g.rowH, g.rowGap, wrap(row, len(g.rowH), "row"))
}

// TilePos returns the top-left corner of a tile relative to the grid.
func (g *Grid) TilePos(col, row int) image.Point {
	return image.Pt(g.TileX(col), g.TileY(row))
}

// TileSize returns the size of a tile.
func (g *Grid) TileSize(col, row int) image.Point {
	return image.Pt(g.colW[wrap(col, len(g.colW), "column")], g.rowH[wrap(row, len(g.rowH), "row")])
}

// TileRect returns the rectangle of a tile relative to the grid.
func (g *Grid) TileRect(col, row int) image.Rectangle {
	p := g.TilePos(col, row)
	return image.Rectangle{Min: p, Max: p.Add(g.TileSize(col, row))}
}

// GridTile is one tile yielded by TileRects.
type GridTile struct {
	Col, Row int
	Rect     image.Rectangle
}

// TileRects returns every tile, column by column.
func (g *Grid) TileRects() []GridTile {
	tiles := make([]GridTile, 0, len(g.colW)*len(g.rowH))
	x := 0
	for col, w := range g.colW {
		y := 0
		for row, h := range g.rowH {
			tiles = append(tiles, GridTile{col, row, image.Rect(x, y, x+w, y+h)})
			if row < len(g.rowGap) {
				y += h + g.rowGap[row]
			}
		}
		if col < len(g.colGap) {
			x += w + g.colGap[col]
		}
	}
	return tiles
}

// axisAt finds the index of the tile covering pos on one axis.
func axisAt(sizes, gaps []int, pos int) (int, bool) {
	if pos < 0 {
		return 0, false
	}
	at := 0
	for i, s := range sizes {
		at += s
		if pos < at {
			return i, true
		}
		if i < len(gaps) {
			at += gaps[i]
			if pos < at {
				return 0, false
			}
		}
	}
	return 0, false
}

// TileAt returns the tile containing p, which is relative to the grid. The
// result is false in gaps and outside the grid.
func (g *Grid) TileAt(p image.Point) (col, row int, ok bool) {
	col, ok = axisAt(g.colW, g.colGap, p.X)
	if !ok {
		return 0, 0, false
	}
	row, ok = axisAt(g.rowH, g.rowGap, p.Y)
	if !ok {
		return 0, 0, false
	}
	return col, row, true
}

// AlignRect returns r moved to the given alignment within a tile.
func (g *Grid) AlignRect(r image.Rectangle, col, row int, a Alignment, pad, offset image.Point) image.Rectangle {
	p := alignRect(r, g.TileRect(col, row), a, pad, offset)
	return image.Rectangle{Min: p, Max: p.Add(r.Size())}
}

// Align moves gr to the given alignment within a tile and returns the area it
// now covers. gr is moved relative to the grid's origin, not cropped.
func (g *Grid) Align(gr *Graphic, col, row int, a Alignment, pad, offset image.Point) image.Rectangle {
	r := g.AlignRect(gr.Rect(), col, row, a, pad, offset)
	gr.SetPos(r.Min.X, r.Min.Y)
	return r
}

// InfiniteGrid is a grid of uniform tiles extending in all directions from
// tile (0, 0), whose top-left corner is the origin.
type InfiniteGrid struct {
	Tile image.Point
	Gap  image.Point
}

// NewInfiniteGrid creates an infinite grid. Negative sizes or gaps panic.
func NewInfiniteGrid(tileW, tileH, gapX, gapY int) InfiniteGrid {
	if tileW < 0 || tileH < 0 || gapX < 0 || gapY < 0 {
		panic("sapling: infinite grid tile sizes and gaps must not be negative")
	}
	return InfiniteGrid{Tile: image.Pt(tileW, tileH), Gap: image.Pt(gapX, gapY)}
}

func (g InfiniteGrid) stride() image.Point { return g.Tile.Add(g.Gap) }

// TileX returns the left edge of column col.
func (g InfiniteGrid) TileX(col int) int { return g.stride().X * col }

// TileY returns the top edge of row row.
func (g InfiniteGrid) TileY(row int) int { return g.stride().Y * row }

// TilePos returns the top-left corner of a tile.
func (g InfiniteGrid) TilePos(col, row int) image.Point {
	return image.Pt(g.TileX(col), g.TileY(row))
}

// TileRect returns the rectangle of a tile.
func (g InfiniteGrid) TileRect(col, row int) image.Rectangle {
	p := g.TilePos(col, row)
	return image.Rectangle{Min: p, Max: p.Add(g.Tile)}
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// TileRects returns every tile intersecting r, gaps included, column by
// column.
func (g InfiniteGrid) TileRects(r image.Rectangle) []GridTile {
	s := g.stride()
	if r.Empty() || s.X <= 0 || s.Y <= 0 {
		return nil
	}
	c0, c1 := floorDiv(r.Min.X, s.X), floorDiv(r.Max.X-1, s.X)
	r0, r1 := floorDiv(r.Min.Y, s.Y), floorDiv(r.Max.Y-1, s.Y)
	tiles := make([]GridTile, 0, (c1-c0+1)*(r1-r0+1))
	for col := c0; col <= c1; col++ {
		for row := r0; row <= r1; row++ {
			tiles = append(tiles, GridTile{col, row, g.TileRect(col, row)})
		}
	}
	return tiles
}

// TileAt returns the tile containing p. The result is false in gaps.
func (g InfiniteGrid) TileAt(p image.Point) (col, row int, ok bool) {
	s := g.stride()
	if s.X <= 0 || s.Y <= 0 {
		return 0, 0, false
	}
	col, row = floorDiv(p.X, s.X), floorDiv(p.Y, s.Y)
	if p.X-col*s.X >= g.Tile.X || p.Y-row*s.Y >= g.Tile.Y {
		return 0, 0, false
	}
	return col, row, true
}

// AlignRect returns r moved to the given alignment within a tile.
func (g InfiniteGrid) AlignRect(r image.Rectangle, col, row int, a Alignment, pad, offset image.Point) image.Rectangle {
	p := alignRect(r, g.TileRect(col, row), a, pad, offset)
	return image.Rectangle{Min: p, Max: p.Add(r.Size())}
}

// Align moves gr to the given alignment within a tile and returns the area it
// now covers.
func (g InfiniteGrid) Align(gr *Graphic, col, row int, a Alignment, pad, offset image.Point) image.Rectangle {
	r := g.AlignRect(gr.Rect(), col, row, a, pad, offset)
	gr.SetPos(r.Min.X, r.Min.Y)
	return r
}
