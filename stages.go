package sapling

import (
	"image"
	"image/color"
	"math"
)

// Flip partial-update heuristic. A partial flip is used when
//
//	k * (sum of dirty areas)^0.75 < w * h^0.75
//
// where k is FlipPartialCostAlpha for surfaces with alpha and
// FlipPartialCostOpaque otherwise. These were tuned empirically and may be
// adjusted.
var (
	FlipPartialCostAlpha  = 5.0
	FlipPartialCostOpaque = 3.5
)

// DefaultRotateThreshold is the smallest angle, in radians, that rotates a
// graphic at all. New graphics copy it.
var DefaultRotateThreshold = 2 * math.Pi / 500

// CropArgs are the arguments of the crop stage.
type CropArgs struct {
	Rect image.Rectangle
}

// FlipArgs are the arguments of the flip stage.
type FlipArgs struct {
	X, Y bool
}

// FadeArgs are the arguments of the fade stage.
type FadeArgs struct {
	Opacity uint8
}

// ResizeArgs are the arguments of the resize stage. A W or H of zero or less
// keeps the input size on that axis. About is relative to the top-left corner
// before scaling.
type ResizeArgs struct {
	W, H  int
	About Vec2
}

// target returns the output size for an input of the given size.
func (a ResizeArgs) target(src image.Point) image.Point {
	t := image.Pt(a.W, a.H)
	if t.X <= 0 {
		t.X = src.X
	}
	if t.Y <= 0 {
		t.Y = src.Y
	}
	return t
}

// RotateArgs are the arguments of the rotate stage. Angle is anti-clockwise
// in radians. About is relative to the top-left corner before rotation and is
// ignored when Centre is set.
type RotateArgs struct {
	Angle  float64
	About  Vec2
	Centre bool
}

// pivot returns the rotation point for a surface of the given size.
func (a RotateArgs) pivot(size image.Point) Vec2 {
	if a.Centre {
		return Vec2{float64(size.X) / 2, float64(size.Y) / 2}
	}
	return a.About
}

// FillArgs are the arguments of the fill stage.
type FillArgs struct {
	Colour color.NRGBA
}

func lastAs[T any](v any) *T {
	if t, ok := v.(T); ok {
		return &t
	}
	return nil
}

// genMods builds the modifier pair for a builtin stage given the size of its
// input, and returns the size of its output. Modifiers keep the graphic's
// bookkeeping in step with queued arguments before any pixels are computed.
func genMods(kind stageKind, src image.Point, args any) (apply, undo func(*Graphic), dst image.Point) {
	switch kind {
	case stageCrop:
		r := args.(CropArgs).Rect
		apply = func(g *Graphic) {
			at := g.rect.Min.Add(r.Min)
			g.rect = image.Rectangle{Min: at, Max: at.Add(r.Size())}
			g.cropped, g.isCropped = r, true
		}
		undo = func(g *Graphic) {
			at := g.rect.Min.Sub(r.Min)
			g.rect = image.Rectangle{Min: at, Max: at.Add(src)}
			g.cropped, g.isCropped = image.Rectangle{}, false
		}
		return apply, undo, r.Size()

	case stageFlip:
		a := args.(FlipArgs)
		apply = func(g *Graphic) { g.flipped = a }
		undo = func(g *Graphic) { g.flipped = FlipArgs{} }
		return apply, undo, src

	case stageFade:
		o := args.(FadeArgs).Opacity
		apply = func(g *Graphic) { g.opacity = o }
		undo = func(g *Graphic) { g.opacity = 255 }
		return apply, undo, src

	case stageResize:
		a := args.(ResizeArgs)
		size := a.target(src)
		scale := Vec2{1, 1}
		if src.X > 0 {
			scale.X = float64(size.X) / float64(src.X)
		}
		if src.Y > 0 {
			scale.Y = float64(size.Y) / float64(src.Y)
		}
		off := image.Pt(roundInt((1-scale.X)*a.About.X), roundInt((1-scale.Y)*a.About.Y))
		apply = func(g *Graphic) {
			g.scale = scale
			at := g.rect.Min.Add(off)
			g.rect = image.Rectangle{Min: at, Max: at.Add(size)}
		}
		undo = func(g *Graphic) {
			g.scale = Vec2{1, 1}
			at := g.rect.Min.Sub(off)
			g.rect = image.Rectangle{Min: at, Max: at.Add(src)}
		}
		return apply, undo, size

	case stageRotate:
		a := args.(RotateArgs)
		apply = func(g *Graphic) { g.angle = a.Angle }
		undo = func(g *Graphic) { g.angle = 0 }
		return apply, undo, src

	case stageFill:
		c := args.(FillArgs).Colour
		apply = func(g *Graphic) { g.colour = c }
		undo = func(g *Graphic) { g.colour = Transparent }
		return apply, undo, src
	}
	panic("sapling: no modifiers for custom stage")
}

// runStage dispatches a stage. src is the stage input, dst its cached result
// (nil if it never ran), d what changed in src since the stage last ran and
// last the arguments of the cached result (nil forces a full run).
func (g *Graphic) runStage(st *stage, src, dst *Surface, d Dirty, last any) (*Surface, Dirty) {
	switch st.kind {
	case stageCrop:
		return cropStage(src, dst, d, lastAs[CropArgs](last), st.args.(CropArgs))
	case stageFlip:
		return flipStage(src, dst, d, lastAs[FlipArgs](last), st.args.(FlipArgs))
	case stageFade:
		return fadeStage(src, dst, d, lastAs[FadeArgs](last), st.args.(FadeArgs))
	case stageResize:
		return g.resizeStage(src, dst, d, lastAs[ResizeArgs](last), st.args.(ResizeArgs))
	case stageRotate:
		return g.rotateStage(src, dst, d, lastAs[RotateArgs](last), st.args.(RotateArgs))
	case stageFill:
		return fillStage(src, dst, d, lastAs[FillArgs](last), st.args.(FillArgs))
	default:
		return st.fn(src, dst, d, last, st.args)
	}
}

func cropStage(src, dst *Surface, d Dirty, last *CropArgs, a CropArgs) (*Surface, Dirty) {
	rect := a.Rect
	if rect == src.Bounds() {
		return src, d
	}
	if !d.IsAll() && last != nil && last.Rect == rect && dst != nil && dst != src {
		if d.IsNone() {
			return dst, d
		}
		// Border outside src stays empty, so only the overlap is redrawn.
		var out []image.Rectangle
		for _, r := range d.Rects() {
			r = r.Intersect(rect)
			if r.Empty() {
				continue
			}
			s := r.Sub(rect.Min)
			dst.Blit(src, s.Min, r, BlendNone)
			out = append(out, s)
		}
		return dst, DirtyRects(out...)
	}
	var n *Surface
	if rect.In(src.Bounds()) && !src.HasAlpha() {
		n = NewOpaqueSurface(rect.Dx(), rect.Dy())
	} else {
		n = NewSurface(rect.Dx(), rect.Dy())
	}
	n.Blit(src, image.Point{}, rect, BlendNone)
	return n, DirtyAll()
}

func flipStage(src, dst *Surface, d Dirty, last *FlipArgs, a FlipArgs) (*Surface, Dirty) {
	if !a.X && !a.Y {
		return src, d
	}
	if !d.IsAll() && last != nil && *last == a && dst != nil && dst != src {
		if d.IsNone() {
			return dst, d
		}
		w, h := src.W(), src.H()
		k := FlipPartialCostOpaque
		if src.HasAlpha() {
			k = FlipPartialCostAlpha
		}
		if k*math.Pow(float64(d.Area()), 0.75) < float64(w)*math.Pow(float64(h), 0.75) {
			var out []image.Rectangle
			for _, r := range d.Rects() {
				r = r.Intersect(src.Bounds())
				if r.Empty() {
					continue
				}
				tmp := blankLike(src, r.Dx(), r.Dy())
				tmp.Blit(src, image.Point{}, r, BlendNone)
				at := r.Min
				if a.X {
					at.X = w - r.Max.X
				}
				if a.Y {
					at.Y = h - r.Max.Y
				}
				dst.Blit(FlipSurface(tmp, a.X, a.Y), at, tmp.Bounds(), BlendNone)
				out = append(out, image.Rectangle{Min: at, Max: at.Add(r.Size())})
			}
			return dst, DirtyRects(out...)
		}
	}
	return FlipSurface(src, a.X, a.Y), DirtyAll()
}

func fadeStage(src, dst *Surface, d Dirty, last *FadeArgs, a FadeArgs) (*Surface, Dirty) {
	if a.Opacity == 255 {
		return src, d
	}
	if !d.IsAll() && last != nil && *last == a && dst != nil && dst != src {
		if d.IsNone() {
			return dst, d
		}
		for _, r := range d.Rects() {
			fadeInto(dst, src, r, a.Opacity)
		}
		return dst, d.Clip(src.Bounds())
	}
	n := NewSurface(src.W(), src.H())
	fadeInto(n, src, src.Bounds(), a.Opacity)
	return n, DirtyAll()
}

// fadeInto writes src multiplied by (255, 255, 255, opacity) into dst within r.
func fadeInto(dst, src *Surface, r image.Rectangle, opacity uint8) {
	r = r.Intersect(src.Bounds()).Intersect(dst.Bounds())
	o := uint32(opacity)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.img.PixOffset(r.Min.X, y)
		di := dst.img.PixOffset(r.Min.X, y)
		for x := 0; x < r.Dx(); x++ {
			s := src.img.Pix[si+4*x : si+4*x+4]
			p := dst.img.Pix[di+4*x : di+4*x+4]
			p[0], p[1], p[2] = s[0], s[1], s[2]
			a := uint32(s[3])
			if !src.alpha {
				a = 255
			}
			p[3] = uint8((a*o + 127) / 255)
		}
	}
}

func (g *Graphic) resizeStage(src, dst *Surface, d Dirty, last *ResizeArgs, a ResizeArgs) (*Surface, Dirty) {
	size := a.target(src.Size())
	if size == src.Size() {
		return src, d
	}
	if d.IsNone() && last != nil && last.target(src.Size()) == size && dst != nil && dst != src {
		return dst, d
	}
	return g.scaleFn(src, size.X, size.Y), DirtyAll()
}

func (g *Graphic) rotateStage(src, dst *Surface, d Dirty, last *RotateArgs, a RotateArgs) (*Surface, Dirty) {
	if math.Abs(a.Angle) < g.rotateThreshold {
		return src, d
	}
	if d.IsNone() && last != nil && dst != nil && dst != src &&
		math.Abs(a.Angle-last.Angle) < g.rotateThreshold &&
		a.pivot(src.Size()) == last.pivot(src.Size()) {
		return dst, d
	}
	in := src
	if _, ok := quarterTurns(a.Angle); !ok && !src.HasAlpha() {
		in = src.ConvertAlpha()
	}
	return g.rotateFn(in, a.Angle), DirtyAll()
}

func fillStage(src, dst *Surface, d Dirty, last *FillArgs, a FillArgs) (*Surface, Dirty) {
	c := a.Colour
	if c == Transparent {
		return src, d
	}
	if dst != nil && dst != src && dst.Size() == src.Size() {
		if !dst.HasAlpha() && c.A < 255 {
			dst = dst.ConvertAlpha()
			d = DirtyAll()
		}
		if d.IsAll() || last == nil || last.Colour != c {
			dst.Fill(c)
			return dst, DirtyAll()
		}
		if !d.IsNone() {
			dst.Fill(c, d.Rects()...)
		}
		return dst, d
	}
	var n *Surface
	if c.A < 255 {
		n = NewSurface(src.W(), src.H())
	} else {
		n = NewOpaqueSurface(src.W(), src.H())
	}
	n.Fill(c)
	return n, DirtyAll()
}
