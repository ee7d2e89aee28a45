package sapling

import (
	"image"
	"time"
)

// Draw brings the destination surface up to date and returns the area that
// changed: all of it, none of it, or a list of disjoint rectangles. Pass the
// result to whatever presents the surface so it can limit its update.
//
// Each changed area is painted back to front, starting at the highest
// graphic that covers it with opaque pixels, or at the background colour if
// none does and one is set; graphics beneath that are skipped.
//
// With no graphics nothing is drawn, and areas marked dirty stay pending
// until there is something to draw.
func (m *Manager) Draw() Dirty {
	if m.dest == nil || len(m.layers) == 0 {
		m.stats = drawStats{}
		return DirtyNone()
	}
	var stats drawStats
	t0 := time.Now()

	bounds := m.dest.Bounds()
	full := m.dirty.IsAll()
	var dirty []image.Rectangle
	if full {
		dirty = []image.Rectangle{bounds}
	} else {
		dirty = m.dirty.Clip(bounds).Rects()
	}
	m.dirty = DirtyNone()

	// Back to front: render and collect what each graphic changed.
	gs := m.ordered()
	for _, g := range gs {
		for _, r := range g.preDraw() {
			if c := r.Intersect(bounds); !c.Empty() {
				dirty = append(dirty, c)
			}
		}
	}
	stats.graphics = len(gs)
	stats.renderTime = time.Since(t0)

	if len(dirty) == 0 {
		for _, g := range gs {
			g.draw(m.dest, nil)
		}
		m.debugLog(stats)
		return DirtyNone()
	}
	t1 := time.Now()
	dirty = union(dirty)

	// Front to back: each graphic redraws the changed area it overlaps, minus
	// whatever opaque graphics above it hide.
	todo := make([][]image.Rectangle, len(gs))
	var cover []image.Rectangle
	for i := len(gs) - 1; i >= 0; i-- {
		g := gs[i]
		if !g.visible {
			continue
		}
		pr := g.postrot()
		var in []image.Rectangle
		for _, r := range dirty {
			if c := r.Intersect(pr); !c.Empty() {
				in = append(in, c)
			}
		}
		if len(in) == 0 {
			continue
		}
		todo[i] = disjoint(in, cover)
		if pr = pr.Intersect(bounds); !pr.Empty() && g.OpaqueIn(pr) {
			cover = append(cover, pr)
		}
	}
	var bg []image.Rectangle
	if m.hasBG {
		bg = disjoint(dirty, cover)
	}
	stats.occludeTime = time.Since(t1)

	t2 := time.Now()
	if len(bg) > 0 {
		m.dest.Fill(m.bg, bg...)
	}
	for i, g := range gs {
		g.draw(m.dest, todo[i])
		stats.blits += len(todo[i])
	}
	stats.blitTime = time.Since(t2)
	stats.rects = len(dirty)
	for _, r := range dirty {
		stats.area += r.Dx() * r.Dy()
	}
	m.debugLog(stats)

	var out Dirty
	if full {
		out = DirtyAll()
	} else {
		out = DirtyRects(dirty...)
	}
	if m.asGraphic != nil {
		if full {
			m.asGraphic.Dirty()
		} else {
			m.asGraphic.Dirty(dirty...)
		}
	}
	return out
}

// ordered returns every graphic back to front.
func (m *Manager) ordered() []*Graphic {
	var gs []*Graphic
	for _, l := range m.layers {
		gs = append(gs, m.graphics[l]...)
	}
	return gs
}
