package sapling

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// graphicIDCounter is a plain counter (no atomic: sapling is single-threaded).
var graphicIDCounter uint32

func nextGraphicID() uint32 {
	graphicIDCounter++
	return graphicIDCounter
}

// Graphic is the drawable unit: an original surface, a transform pipeline
// producing the final surface from it, and a position on its manager's
// surface.
//
// Setters return the graphic so calls can be chained. Nothing is recomputed
// until the graphic is rendered, either explicitly or when drawn.
type Graphic struct {
	// Identity
	ID   uint32
	Name string

	// Source
	orig    *Surface
	res     Resources
	resName string

	// Pipeline
	stages     []*stage
	origDirty  Dirty
	pending    bool
	renderFrom int

	// Modifier state kept in step with queued stage arguments
	scale     Vec2
	cropped   image.Rectangle
	isCropped bool
	flipped   FlipArgs
	opacity   uint8
	angle     float64
	colour    color.NRGBA

	scaleFn         ScaleFunc
	rotateFn        RotateFunc
	rotateThreshold float64

	// Result
	surface   *Surface
	opaque    bool
	rect      image.Rectangle // pre-rotation, in manager space
	rotOffset image.Point
	dirty     Dirty // changes to surface since the last draw

	// Compositing
	visible bool
	blend   BlendMode
	layer   int
	manager *Manager

	// State recorded by the last draw
	lastRect    image.Rectangle
	lastPostrot image.Rectangle
	lastBlend   BlendMode
	wasVisible  bool
	blits       int

	// prerender runs before each render; managers drawn as graphics use it.
	prerender func()
}

func newGraphic(sfc *Surface, x, y int, kinds []stageKind) *Graphic {
	if sfc == nil {
		panic("sapling: nil surface")
	}
	g := &Graphic{
		ID:              nextGraphicID(),
		orig:            sfc,
		stages:          newStages(kinds),
		scale:           Vec2{1, 1},
		opacity:         255,
		scaleFn:         ScaleSmooth,
		rotateFn:        RotateZoom,
		rotateThreshold: DefaultRotateThreshold,
		surface:         sfc,
		opaque:          !sfc.HasAlpha(),
		rect:            image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x, y).Add(sfc.Size())},
		visible:         true,
	}
	return g
}

// NewGraphic creates a graphic showing sfc with its top-left corner at (x, y).
// The surface is used directly, not copied.
func NewGraphic(sfc *Surface, x, y int) *Graphic {
	return newGraphic(sfc, x, y, graphicStages)
}

// NewGraphicFromResource loads the named image from res. The graphic can later
// be refreshed with [Graphic.Reload].
func NewGraphicFromResource(res Resources, name string, x, y int) (*Graphic, error) {
	sfc, err := res.Image(name)
	if err != nil {
		return nil, fmt.Errorf("sapling: graphic %q: %w", name, err)
	}
	g := NewGraphic(sfc, x, y)
	g.Name = name
	g.res, g.resName = res, name
	return g, nil
}

// NewColour creates a graphic filled with a flat colour covering r.
func NewColour(c color.Color, r image.Rectangle) *Graphic {
	r = r.Canon()
	g := newGraphic(NewSurface(r.Dx(), r.Dy()), r.Min.X, r.Min.Y, colourStages)
	g.transformBuiltin(stageFill, FillArgs{Colour: toNRGBA(c)})
	return g
}

// --- Source ---

// OrigSurface returns the surface before any transforms.
func (g *Graphic) OrigSurface() *Surface { return g.orig }

// SetOrigSurface replaces the original surface; every stage is reapplied.
func (g *Graphic) SetOrigSurface(sfc *Surface) *Graphic {
	if sfc == nil {
		panic("sapling: nil surface")
	}
	if sfc == g.orig {
		return g
	}
	g.undoFrom(0)
	g.orig = sfc
	g.applyFrom(0)
	g.origDirty = DirtyAll()
	return g
}

// Reload fetches the original surface again, bypassing any cache, if the
// graphic was loaded from a resource provider. Otherwise it does nothing.
func (g *Graphic) Reload() error {
	if g.res == nil {
		return nil
	}
	sfc, err := g.res.Reload(g.resName)
	if err != nil {
		return fmt.Errorf("sapling: reload %q: %w", g.resName, err)
	}
	g.SetOrigSurface(sfc)
	return nil
}

// Dirty marks rectangles of the original surface as changed, or all of it if
// none are given. Call it after writing to [Graphic.OrigSurface].
func (g *Graphic) Dirty(rects ...image.Rectangle) *Graphic {
	if len(rects) == 0 {
		g.origDirty = DirtyAll()
		return g
	}
	g.origDirty = g.origDirty.Combine(DirtyRects(rects...))
	return g
}

// Surface renders the graphic and returns its final surface. It must not be
// modified.
func (g *Graphic) Surface() *Surface {
	g.Render()
	return g.surface
}

// --- Geometry ---

// Rect returns the area covered before rotation.
func (g *Graphic) Rect() image.Rectangle {
	g.Render()
	return g.rect
}

// PostrotRect returns the area actually covered, after rotation.
func (g *Graphic) PostrotRect() image.Rectangle {
	g.Render()
	return g.postrot()
}

func (g *Graphic) postrot() image.Rectangle {
	at := g.rect.Min.Add(g.rotOffset)
	return image.Rectangle{Min: at, Max: at.Add(g.surface.Size())}
}

// Pos returns the top-left corner of [Graphic.Rect].
func (g *Graphic) Pos() image.Point { return g.rect.Min }

// X returns the left edge of [Graphic.Rect].
func (g *Graphic) X() int { return g.rect.Min.X }

// Y returns the top edge of [Graphic.Rect].
func (g *Graphic) Y() int { return g.rect.Min.Y }

// Size returns the size of [Graphic.Rect].
func (g *Graphic) Size() image.Point { return g.Rect().Size() }

// W returns the width of [Graphic.Rect].
func (g *Graphic) W() int { return g.Size().X }

// H returns the height of [Graphic.Rect].
func (g *Graphic) H() int { return g.Size().Y }

// SetRect moves the graphic to r.Min and resizes it if the size differs.
func (g *Graphic) SetRect(r image.Rectangle) *Graphic {
	r = r.Canon()
	cur := g.Rect()
	g.rect = image.Rectangle{Min: r.Min, Max: r.Min.Add(cur.Size())}
	if r.Size() != cur.Size() {
		g.Resize(r.Dx(), r.Dy())
	}
	return g
}

// SetPos moves the top-left corner to (x, y).
func (g *Graphic) SetPos(x, y int) *Graphic {
	g.rect = g.rect.Add(image.Pt(x, y).Sub(g.rect.Min))
	return g
}

// SetX moves the left edge to x.
func (g *Graphic) SetX(x int) *Graphic { return g.SetPos(x, g.rect.Min.Y) }

// SetY moves the top edge to y.
func (g *Graphic) SetY(y int) *Graphic { return g.SetPos(g.rect.Min.X, y) }

// MoveBy moves the graphic by (dx, dy).
func (g *Graphic) MoveBy(dx, dy int) *Graphic {
	g.rect = g.rect.Add(image.Pt(dx, dy))
	return g
}

// SetSize resizes the graphic through the resize stage.
func (g *Graphic) SetSize(w, h int) *Graphic {
	return g.SetRect(image.Rectangle{Min: g.rect.Min, Max: g.rect.Min.Add(image.Pt(w, h))})
}

// SetW sets the width through the resize stage.
func (g *Graphic) SetW(w int) *Graphic { return g.SetSize(w, g.H()) }

// SetH sets the height through the resize stage.
func (g *Graphic) SetH(h int) *Graphic { return g.SetSize(g.W(), h) }

// Align positions the graphic inside the manager's surface; see
// [Graphic.AlignWithin].
func (g *Graphic) Align(a Alignment, pad, offset image.Point) *Graphic {
	var within image.Rectangle
	if g.manager != nil {
		within = g.manager.Bounds()
	}
	return g.AlignWithin(a, pad, offset, within)
}

// AlignWithin positions the graphic at the given alignment inside within,
// inset by pad and then shifted by offset.
func (g *Graphic) AlignWithin(a Alignment, pad, offset image.Point, within image.Rectangle) *Graphic {
	p := alignRect(g.Rect(), within, a, pad, offset)
	return g.SetPos(p.X, p.Y)
}

// --- Builtin transforms ---

// Crop shows only r of the input to the crop stage. r need not lie within it;
// uncovered pixels are transparent. The graphic moves by r.Min so the visible
// pixels stay in place.
func (g *Graphic) Crop(r image.Rectangle) *Graphic {
	return g.transformBuiltin(stageCrop, CropArgs{Rect: r.Canon()})
}

// CroppedRect returns the rectangle currently cropped to, in the crop stage's
// input space.
func (g *Graphic) CroppedRect() image.Rectangle {
	if g.isCropped {
		return g.cropped
	}
	size, _ := g.SizeBeforeTransform(stageNames[stageCrop])
	return image.Rectangle{Max: size}
}

// Flip mirrors the graphic horizontally if x and vertically if y.
func (g *Graphic) Flip(x, y bool) *Graphic {
	return g.transformBuiltin(stageFlip, FlipArgs{X: x, Y: y})
}

// Flipped reports the axes currently mirrored.
func (g *Graphic) Flipped() (x, y bool) { return g.flipped.X, g.flipped.Y }

// Fade sets the opacity, from 0 (invisible) to 255.
func (g *Graphic) Fade(opacity uint8) *Graphic {
	return g.transformBuiltin(stageFade, FadeArgs{Opacity: opacity})
}

// Opacity returns the current opacity.
func (g *Graphic) Opacity() uint8 { return g.opacity }

// Resize scales the graphic to w by h, keeping its top-left corner fixed. A
// size of zero or less keeps the current size on that axis.
func (g *Graphic) Resize(w, h int) *Graphic {
	return g.ResizeAbout(w, h, Vec2{})
}

// ResizeAbout scales the graphic to w by h, keeping the point about (relative
// to the top-left corner before scaling) fixed on screen.
func (g *Graphic) ResizeAbout(w, h int, about Vec2) *Graphic {
	return g.transformBuiltin(stageResize, ResizeArgs{W: w, H: h, About: about})
}

// ResizeBoth resizes keeping the aspect ratio. Pass zero for the dimension
// to derive.
func (g *Graphic) ResizeBoth(w, h int, about Vec2) *Graphic {
	src, _ := g.SizeBeforeTransform(stageNames[stageResize])
	switch {
	case w <= 0 && src.Y > 0:
		w = roundInt(float64(src.X) * float64(h) / float64(src.Y))
	case w > 0 && src.X > 0:
		h = roundInt(float64(src.Y) * float64(w) / float64(src.X))
	}
	return g.ResizeAbout(w, h, about)
}

// Rescale scales by ratios of the size before the resize stage.
func (g *Graphic) Rescale(sx, sy float64, about Vec2) *Graphic {
	src, _ := g.SizeBeforeTransform(stageNames[stageResize])
	return g.ResizeAbout(roundInt(sx*float64(src.X)), roundInt(sy*float64(src.Y)), about)
}

// RescaleBoth scales both axes by s.
func (g *Graphic) RescaleBoth(s float64, about Vec2) *Graphic {
	return g.Rescale(s, s, about)
}

// SetScale scales by ratios about the top-left corner.
func (g *Graphic) SetScale(sx, sy float64) *Graphic {
	return g.Rescale(sx, sy, Vec2{})
}

// Scale returns the current scale ratios.
func (g *Graphic) Scale() Vec2 { return g.scale }

// Rotate rotates anti-clockwise by angle radians about the centre. The angle
// is absolute, not added to the current one.
func (g *Graphic) Rotate(angle float64) *Graphic {
	checkAngle(angle)
	return g.transformBuiltin(stageRotate, RotateArgs{Angle: angle, Centre: true})
}

// RotateAbout rotates about a point relative to the top-left corner before
// rotation.
func (g *Graphic) RotateAbout(angle float64, about Vec2) *Graphic {
	checkAngle(angle)
	return g.transformBuiltin(stageRotate, RotateArgs{Angle: angle, About: about})
}

func checkAngle(angle float64) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		panic(fmt.Sprintf("sapling: invalid rotation angle %v", angle))
	}
}

// Angle returns the current rotation angle.
func (g *Graphic) Angle() float64 { return g.angle }

// Fill replaces every pixel with c while keeping the graphic's shape. Fill
// with [Transparent] to stop.
func (g *Graphic) Fill(c color.Color) *Graphic {
	return g.transformBuiltin(stageFill, FillArgs{Colour: toNRGBA(c)})
}

// Colour returns the fill colour, or [Transparent] if not filled.
func (g *Graphic) Colour() color.NRGBA { return g.colour }

// SetScaleFunc replaces the function used by the resize stage.
func (g *Graphic) SetScaleFunc(fn ScaleFunc) *Graphic {
	if fn == nil {
		fn = ScaleSmooth
	}
	g.scaleFn = fn
	return g.Retransform(stageNames[stageResize])
}

// SetRotateFunc replaces the function used by the rotate stage.
func (g *Graphic) SetRotateFunc(fn RotateFunc) *Graphic {
	if fn == nil {
		fn = RotateZoom
	}
	g.rotateFn = fn
	return g.Retransform(stageNames[stageRotate])
}

// SetRotateThreshold sets the smallest angle change that rotates the graphic.
func (g *Graphic) SetRotateThreshold(t float64) *Graphic {
	g.rotateThreshold = t
	return g.Retransform(stageNames[stageRotate])
}

// RotateThreshold returns the rotation threshold.
func (g *Graphic) RotateThreshold() float64 { return g.rotateThreshold }

// --- Compositing ---

// Visible reports whether the graphic is drawn.
func (g *Graphic) Visible() bool { return g.visible }

// SetVisible shows or hides the graphic.
func (g *Graphic) SetVisible(v bool) *Graphic {
	g.visible = v
	return g
}

// Blend returns the compositing mode.
func (g *Graphic) Blend() BlendMode { return g.blend }

// SetBlend sets the compositing mode.
func (g *Graphic) SetBlend(b BlendMode) *Graphic {
	g.blend = b
	return g
}

// Layer returns the layer. Higher layers are drawn on top.
func (g *Graphic) Layer() int { return g.layer }

// SetLayer moves the graphic to another layer, re-adding it to its manager.
func (g *Graphic) SetLayer(l int) *Graphic {
	if l == g.layer {
		return g
	}
	m := g.manager
	if m != nil {
		m.Rm(g)
	}
	g.layer = l
	if m != nil {
		m.Add(g)
	}
	return g
}

// Manager returns the manager the graphic belongs to, or nil.
func (g *Graphic) Manager() *Manager { return g.manager }

// SetManager detaches the graphic from its manager, then adds it to m unless
// m is nil.
func (g *Graphic) SetManager(m *Manager) *Graphic {
	if g.manager == m {
		return g
	}
	if g.manager != nil {
		g.manager.Rm(g)
	}
	if m != nil {
		m.Add(g)
	}
	return g
}

// OpaqueIn reports whether the graphic covers every pixel of r with opaque
// pixels when drawn.
func (g *Graphic) OpaqueIn(r image.Rectangle) bool {
	g.Render()
	return g.visible && g.opaque && g.blend.occludes() && r.In(g.postrot())
}

// Snapshot renders the graphic and returns a detached copy of its current
// appearance with no transforms.
func (g *Graphic) Snapshot() *Graphic {
	g.Render()
	pr := g.postrot()
	s := NewGraphic(g.surface.Copy(), pr.Min.X, pr.Min.Y)
	s.Name = g.Name
	s.layer = g.layer
	s.visible, s.blend = g.visible, g.blend
	s.scaleFn, s.rotateFn, s.rotateThreshold = g.scaleFn, g.rotateFn, g.rotateThreshold
	return s
}

// preDraw renders and returns the manager-space rectangles that must be
// redrawn for this graphic. Geometry, blend or visibility changes invalidate
// both the previous and the current area.
func (g *Graphic) preDraw() []image.Rectangle {
	if g.prerender != nil {
		g.prerender()
	}
	g.Render()
	pr := g.postrot()
	d := g.dirty
	g.dirty = DirtyNone()
	if d.IsAll() || g.rect != g.lastRect || pr != g.lastPostrot ||
		g.blend != g.lastBlend || g.visible != g.wasVisible {
		var rs []image.Rectangle
		if g.wasVisible {
			rs = append(rs, g.lastPostrot)
		}
		if g.visible {
			rs = append(rs, pr)
		}
		return rs
	}
	if !g.visible {
		return nil
	}
	return d.Translate(pr.Min).Clip(pr).Rects()
}

// draw blits the final surface into rects of dst, which are in manager space,
// then records the state compared against by the next preDraw.
func (g *Graphic) draw(dst *Surface, rects []image.Rectangle) {
	pr := g.postrot()
	for _, r := range rects {
		dst.Blit(g.surface, r.Min, r.Sub(pr.Min), g.blend)
		g.blits++
	}
	g.lastRect, g.lastPostrot = g.rect, pr
	g.lastBlend, g.wasVisible = g.blend, g.visible
}

func (g *Graphic) String() string {
	name := g.Name
	if name == "" {
		name = fmt.Sprintf("graphic#%d", g.ID)
	}
	return fmt.Sprintf("%s %v layer=%d", name, g.rect, g.layer)
}
