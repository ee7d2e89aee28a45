package sapling

import (
	"image"
	"image/color"
	"slices"

	"github.com/tanema/gween/ease"
)

// Item is anything a manager can add or remove: a *Graphic or a Group.
type Item interface {
	graphics() []*Graphic
}

func (g *Graphic) graphics() []*Graphic { return []*Graphic{g} }

// Group is a set of graphics that can be added, removed and changed together.
type Group []*Graphic

func (gr Group) graphics() []*Graphic { return gr }

// SetLayer moves every graphic to layer l.
func (gr Group) SetLayer(l int) Group {
	for _, g := range gr {
		g.SetLayer(l)
	}
	return gr
}

// SetVisible shows or hides every graphic.
func (gr Group) SetVisible(v bool) Group {
	for _, g := range gr {
		g.SetVisible(v)
	}
	return gr
}

// SetBlend sets the compositing mode of every graphic.
func (gr Group) SetBlend(b BlendMode) Group {
	for _, g := range gr {
		g.SetBlend(b)
	}
	return gr
}

// SetManager moves every graphic to m, or detaches them if m is nil.
func (gr Group) SetManager(m *Manager) Group {
	for _, g := range gr {
		g.SetManager(m)
	}
	return gr
}

// SetScaleFunc sets the scale function of every graphic.
func (gr Group) SetScaleFunc(fn ScaleFunc) Group {
	for _, g := range gr {
		g.SetScaleFunc(fn)
	}
	return gr
}

// MoveBy moves every graphic by (dx, dy).
func (gr Group) MoveBy(dx, dy int) Group {
	for _, g := range gr {
		g.MoveBy(dx, dy)
	}
	return gr
}

// OpaqueIn reports whether any graphic is opaque in all of r.
func (gr Group) OpaqueIn(r image.Rectangle) bool {
	for _, g := range gr {
		if g.OpaqueIn(r) {
			return true
		}
	}
	return false
}

// Manager draws graphics to a surface, redrawing only what changed since the
// last draw. Graphics in higher layers are drawn over lower ones; the overlay,
// if any, is drawn over everything.
type Manager struct {
	sched *Scheduler
	dest  *Surface
	bg    color.NRGBA
	hasBG bool

	layers   []int // occupied, ascending
	graphics map[int][]*Graphic

	overlay      *Graphic
	overlayLayer int // layer to restore when the overlay is replaced
	fade         *Graphic
	fadeID       int

	dirty Dirty
	debug bool
	stats drawStats

	asGraphic *Graphic
}

// NewManager creates a manager drawing to dest using sched for fades. dest
// may be nil, in which case nothing is drawn until one is set.
func NewManager(sched *Scheduler, dest *Surface) *Manager {
	if sched == nil {
		sched = NewScheduler(DefaultFPS)
	}
	m := &Manager{
		sched:    sched,
		graphics: make(map[int][]*Graphic),
	}
	m.SetSurface(dest)
	return m
}

// NewManagerSize creates a manager drawing to a new transparent surface.
func NewManagerSize(sched *Scheduler, w, h int) *Manager {
	return NewManager(sched, NewSurface(w, h))
}

// Scheduler returns the scheduler used for fades.
func (m *Manager) Scheduler() *Scheduler { return m.sched }

// Surface returns the destination surface.
func (m *Manager) Surface() *Surface { return m.dest }

// SetSurface changes the destination surface and redraws everything on the
// next draw.
func (m *Manager) SetSurface(dest *Surface) {
	m.dest = dest
	m.dirty = DirtyNone()
	m.Dirty()
	if m.asGraphic != nil && dest != nil {
		m.asGraphic.SetOrigSurface(dest)
	}
}

// Bounds returns the destination rectangle, or an empty one if there is no
// destination.
func (m *Manager) Bounds() image.Rectangle {
	if m.dest == nil {
		return image.Rectangle{}
	}
	return m.dest.Bounds()
}

// Size returns the destination size.
func (m *Manager) Size() image.Point { return m.Bounds().Size() }

// Background returns the colour drawn where no graphic covers a redrawn area,
// and false if none is set.
func (m *Manager) Background() (color.NRGBA, bool) { return m.bg, m.hasBG }

// SetBackground sets the background colour and redraws everything. Without
// one, redrawn areas no graphic covers keep their previous pixels.
func (m *Manager) SetBackground(c color.Color) {
	m.bg, m.hasBG = toNRGBA(c), true
	m.Dirty()
}

// ClearBackground removes the background colour set by [Manager.SetBackground].
func (m *Manager) ClearBackground() {
	m.bg, m.hasBG = color.NRGBA{}, false
}

// Layers returns the occupied layers, lowest first.
func (m *Manager) Layers() []int { return slices.Clone(m.layers) }

// Graphics returns the graphics in layer l.
func (m *Manager) Graphics(l int) []*Graphic { return slices.Clone(m.graphics[l]) }

// Len returns the number of graphics, including the overlay.
func (m *Manager) Len() int {
	n := 0
	for _, gs := range m.graphics {
		n += len(gs)
	}
	return n
}

// Add adds graphics and groups, detaching each graphic from any other manager
// first. Graphics already in m are left alone. A graphic in LayerOverlay that
// is not the overlay panics.
func (m *Manager) Add(items ...Item) {
	for _, it := range items {
		for _, g := range it.graphics() {
			if g.layer == LayerOverlay && g != m.overlay {
				panic("sapling: LayerOverlay is reserved for the manager's overlay")
			}
			if g.manager == m {
				continue
			}
			if g.manager != nil {
				g.manager.Rm(g)
			}
			gs, ok := m.graphics[g.layer]
			if !ok {
				i, _ := slices.BinarySearch(m.layers, g.layer)
				m.layers = slices.Insert(m.layers, i, g.layer)
			}
			m.graphics[g.layer] = append(gs, g)
			g.manager = m
			// never drawn here, so there is no old area to erase
			g.wasVisible = false
		}
	}
}

// Rm removes graphics and groups. The area a graphic last covered is redrawn.
// Graphics not in m are ignored.
func (m *Manager) Rm(items ...Item) {
	for _, it := range items {
		for _, g := range it.graphics() {
			if g.manager != m {
				continue
			}
			gs := m.graphics[g.layer]
			i := slices.Index(gs, g)
			if i < 0 {
				continue
			}
			gs = slices.Delete(gs, i, i+1)
			if len(gs) == 0 {
				delete(m.graphics, g.layer)
				if j, ok := slices.BinarySearch(m.layers, g.layer); ok {
					m.layers = slices.Delete(m.layers, j, j+1)
				}
			} else {
				m.graphics[g.layer] = gs
			}
			g.manager = nil
			if g.wasVisible {
				m.Dirty(g.lastPostrot)
			}
			if g == m.overlay {
				m.overlay = nil
				g.layer = m.overlayLayer
			}
		}
	}
}

// Contains reports whether g belongs to m.
func (m *Manager) Contains(g *Graphic) bool { return g.manager == m }

// Overlay returns the graphic drawn over everything else, or nil.
func (m *Manager) Overlay() *Graphic { return m.overlay }

// SetOverlay replaces the overlay. The previous overlay is removed and gets
// its old layer back. Pass nil to remove the overlay.
func (m *Manager) SetOverlay(g *Graphic) {
	if m.overlay != nil {
		m.Rm(m.overlay)
	}
	if g == nil {
		return
	}
	g.SetManager(nil)
	m.overlay, m.overlayLayer = g, g.layer
	g.layer = LayerOverlay
	m.Add(g)
}

// Dirty marks areas of the destination for redrawing, or all of it if no
// rectangles are given. It does nothing without a destination.
func (m *Manager) Dirty(rects ...image.Rectangle) {
	if m.dest == nil {
		return
	}
	if len(rects) == 0 {
		m.dirty = DirtyAll()
		return
	}
	m.dirty = m.dirty.Combine(DirtyRects(rects...))
}

// FadeTo covers the manager with an overlay that fades to c over the given
// number of seconds. If a fade overlay is already showing, the fade continues
// from its current colour; otherwise it starts from c at zero alpha. The
// overlay stays when the fade ends.
func (m *Manager) FadeTo(c color.Color, seconds float64) {
	target := toNRGBA(c)
	m.sched.RmTimeout(m.fadeID)
	ov := m.fade
	if ov == nil || m.overlay != ov {
		start := target
		start.A = 0
		ov = NewColour(start, m.Bounds())
		ov.Name = "fade"
		m.SetOverlay(ov)
		m.fade = ov
	}
	m.fadeID = m.sched.InterpTween(colourVals(ov.Colour()), colourVals(target), seconds, ease.Linear, func(v []float64) {
		ov.Fill(valsColour(v))
	})
}

// Fading reports whether a fade is running.
func (m *Manager) Fading() bool { return m.fadeID != 0 && m.sched.Has(m.fadeID) }

// CancelFade stops any running fade and removes the fade overlay.
func (m *Manager) CancelFade() {
	if m.fade == nil {
		return
	}
	m.sched.RmTimeout(m.fadeID)
	m.fadeID = 0
	if m.overlay == m.fade {
		m.SetOverlay(nil)
	}
	m.fade = nil
}

// AsGraphic returns a graphic showing the manager's destination surface, so
// one manager can be drawn inside another. Drawing the graphic draws the
// manager first. The same graphic is returned on every call.
func (m *Manager) AsGraphic() *Graphic {
	if m.asGraphic != nil {
		return m.asGraphic
	}
	if m.dest == nil {
		panic("sapling: manager has no surface")
	}
	g := NewGraphic(m.dest, 0, 0)
	g.prerender = func() { m.Draw() }
	m.asGraphic = g
	return g
}

// SetDebugMode enables per-draw statistics, logged at debug level.
func (m *Manager) SetDebugMode(enabled bool) { m.debug = enabled }
