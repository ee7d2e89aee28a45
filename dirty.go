package sapling

import (
	"fmt"
	"image"
	"slices"
	"strings"
)

// Dirty describes which pixels changed relative to a previous state: nothing,
// everything, or an explicit list of rectangles. The zero value means nothing
// changed.
type Dirty struct {
	all   bool
	rects []image.Rectangle
}

// DirtyNone returns a Dirty reporting no change.
func DirtyNone() Dirty { return Dirty{} }

// DirtyAll returns a Dirty reporting that everything changed.
func DirtyAll() Dirty { return Dirty{all: true} }

// DirtyRects returns a Dirty covering the given rectangles. Empty rectangles
// are dropped; if none remain the result reports no change.
func DirtyRects(rects ...image.Rectangle) Dirty {
	var rs []image.Rectangle
	for _, r := range rects {
		if r = r.Canon(); !r.Empty() {
			rs = append(rs, r)
		}
	}
	return Dirty{rects: rs}
}

// IsNone reports whether nothing changed.
func (d Dirty) IsNone() bool { return !d.all && len(d.rects) == 0 }

// IsAll reports whether everything changed.
func (d Dirty) IsAll() bool { return d.all }

// Rects returns the changed rectangles. It is nil when d is all or none.
func (d Dirty) Rects() []image.Rectangle {
	if d.all {
		return nil
	}
	return d.rects
}

// Combine returns the union of d and o. All absorbs everything else.
func (d Dirty) Combine(o Dirty) Dirty {
	switch {
	case d.all || o.all:
		return DirtyAll()
	case len(o.rects) == 0:
		return d
	case len(d.rects) == 0:
		return o
	}
	rs := make([]image.Rectangle, 0, len(d.rects)+len(o.rects))
	rs = append(rs, d.rects...)
	rs = append(rs, o.rects...)
	return Dirty{rects: rs}
}

// Translate moves every rectangle by p.
func (d Dirty) Translate(p image.Point) Dirty {
	if d.all || len(d.rects) == 0 {
		return d
	}
	rs := make([]image.Rectangle, len(d.rects))
	for i, r := range d.rects {
		rs[i] = r.Add(p)
	}
	return Dirty{rects: rs}
}

// Clip intersects every rectangle with r, dropping those left empty.
func (d Dirty) Clip(r image.Rectangle) Dirty {
	if d.all {
		return d
	}
	var rs []image.Rectangle
	for _, dr := range d.rects {
		if c := dr.Intersect(r); !c.Empty() {
			rs = append(rs, c)
		}
	}
	return Dirty{rects: rs}
}

// Area returns the summed area of the rectangles. Overlaps are counted twice.
func (d Dirty) Area() int {
	n := 0
	for _, r := range d.rects {
		n += r.Dx() * r.Dy()
	}
	return n
}

func (d Dirty) String() string {
	switch {
	case d.all:
		return "all"
	case len(d.rects) == 0:
		return "none"
	}
	parts := make([]string, len(d.rects))
	for i, r := range d.rects {
		parts[i] = r.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}

// disjoint returns non-overlapping rectangles covering the union of add minus
// the union of rm. The plane is cut along every rectangle edge into a grid of
// cells; marked cells are then merged along rows and down columns.
func disjoint(add, rm []image.Rectangle) []image.Rectangle {
	var xs, ys []int
	for _, set := range [2][]image.Rectangle{add, rm} {
		for _, r := range set {
			if r.Empty() {
				continue
			}
			xs = append(xs, r.Min.X, r.Max.X)
			ys = append(ys, r.Min.Y, r.Max.Y)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	slices.Sort(xs)
	xs = slices.Compact(xs)
	slices.Sort(ys)
	ys = slices.Compact(ys)
	cols, rows := len(xs)-1, len(ys)-1
	if cols <= 0 || rows <= 0 {
		return nil
	}

	const (
		cellAdd = 1 << iota
		cellRm
	)
	grid := make([]uint8, cols*rows)
	mark := func(r image.Rectangle, bit uint8) {
		if r.Empty() {
			return
		}
		c0, _ := slices.BinarySearch(xs, r.Min.X)
		c1, _ := slices.BinarySearch(xs, r.Max.X)
		r0, _ := slices.BinarySearch(ys, r.Min.Y)
		r1, _ := slices.BinarySearch(ys, r.Max.Y)
		for row := r0; row < r1; row++ {
			for col := c0; col < c1; col++ {
				grid[row*cols+col] |= bit
			}
		}
	}
	for _, r := range add {
		mark(r, cellAdd)
	}
	for _, r := range rm {
		mark(r, cellRm)
	}

	// Merge runs of marked cells within each row band, then merge runs with
	// the same horizontal extent across consecutive bands.
	type run struct{ x0, x1 int }
	var out []image.Rectangle
	open := map[run]int{} // run -> index in out of the rect still growing
	for row := 0; row < rows; row++ {
		next := map[run]int{}
		for col := 0; col < cols; {
			if grid[row*cols+col] != cellAdd {
				col++
				continue
			}
			start := col
			for col < cols && grid[row*cols+col] == cellAdd {
				col++
			}
			rn := run{xs[start], xs[col]}
			if i, ok := open[rn]; ok && out[i].Max.Y == ys[row] {
				out[i].Max.Y = ys[row+1]
				next[rn] = i
				continue
			}
			out = append(out, image.Rect(rn.x0, ys[row], rn.x1, ys[row+1]))
			next[rn] = len(out) - 1
		}
		open = next
	}
	return out
}

// union returns disjoint rectangles covering all of rs.
func union(rs []image.Rectangle) []image.Rectangle {
	return disjoint(rs, nil)
}
