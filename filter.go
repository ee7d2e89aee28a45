package sapling

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"golang.org/x/image/draw"
)

// Filter is a visual effect applied to a graphic's pixels as a custom
// transform; see [Graphic.SetFilter]. Filters never change the surface size.
//
// The filters in this package are comparable values. Those that work pixel by
// pixel update only the changed part of their input, and do nothing when set
// again unchanged.
type Filter interface {
	// Apply returns a new surface holding the filtered src.
	Apply(src *Surface) *Surface
}

// pointFilter is a filter whose output pixels depend only on the input pixel
// at the same position.
type pointFilter interface {
	Filter
	applyRect(dst, src *Surface, r image.Rectangle)
}

// SetFilter adds a filter stage called name, or replaces the filter of an
// existing one. Options place the stage as for [Graphic.Transform].
func (g *Graphic) SetFilter(name string, f Filter, opts ...TransformOption) *Graphic {
	return g.Transform(name, filterStage, f, opts...)
}

func filterStage(src, dst *Surface, dirty Dirty, last, args any) (*Surface, Dirty) {
	f := args.(Filter)
	pf, ok := f.(pointFilter)
	if !ok || dst == nil || dst == src || dirty.IsAll() || dst.Size() != src.Size() || last != args {
		return f.Apply(src), DirtyAll()
	}
	for _, r := range dirty.Rects() {
		pf.applyRect(dst, src, r.Intersect(src.Bounds()))
	}
	return dst, dirty
}

// applyPoint runs a point filter over the whole of src.
func applyPoint(f pointFilter, src *Surface, alpha bool) *Surface {
	dst := blankLike(src, src.W(), src.H())
	if alpha && !dst.alpha {
		dst = NewSurface(src.W(), src.H())
	}
	f.applyRect(dst, src, src.Bounds())
	return dst
}

// eachPixel calls fn for every pixel of r in src, storing the result in dst.
func eachPixel(dst, src *Surface, r image.Rectangle, fn func(c color.NRGBA) color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.img.PixOffset(r.Min.X, y)
		di := dst.img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, si, di = x+1, si+4, di+4 {
			p := src.img.Pix[si : si+4 : si+4]
			c := fn(color.NRGBA{p[0], p[1], p[2], p[3]})
			if !dst.alpha {
				c.A = 255
			}
			q := dst.img.Pix[di : di+4 : di+4]
			q[0], q[1], q[2], q[3] = c.R, c.G, c.B, c.A
		}
	}
}

// --- ColourMatrixFilter ---

// ColourMatrixFilter applies a 4x5 colour matrix to straight-alpha pixel
// values in [0, 1]. The matrix is stored in row-major order:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...].
type ColourMatrixFilter struct {
	Matrix [20]float64
}

// NewColourMatrixFilter returns the identity matrix filter.
func NewColourMatrixFilter() ColourMatrixFilter {
	var f ColourMatrixFilter
	f.Matrix[0], f.Matrix[6], f.Matrix[12], f.Matrix[18] = 1, 1, 1, 1
	return f
}

// BrightnessFilter adds b, in [-1, 1], to every colour channel.
func BrightnessFilter(b float64) ColourMatrixFilter {
	return ColourMatrixFilter{[20]float64{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	}}
}

// ContrastFilter scales contrast about mid grey. 1 is unchanged, 0 is flat
// grey.
func ContrastFilter(c float64) ColourMatrixFilter {
	t := (1 - c) / 2
	return ColourMatrixFilter{[20]float64{
		c, 0, 0, 0, t,
		0, c, 0, 0, t,
		0, 0, c, 0, t,
		0, 0, 0, 1, 0,
	}}
}

// SaturationFilter scales saturation. 1 is unchanged, 0 is greyscale.
func SaturationFilter(s float64) ColourMatrixFilter {
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	return ColourMatrixFilter{[20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}}
}

// touchesAlpha reports whether the matrix can make opaque pixels translucent.
func (f ColourMatrixFilter) touchesAlpha() bool {
	return f.Matrix[15] != 0 || f.Matrix[16] != 0 || f.Matrix[17] != 0 || f.Matrix[18] != 1 || f.Matrix[19] != 0
}

func (f ColourMatrixFilter) Apply(src *Surface) *Surface {
	return applyPoint(f, src, f.touchesAlpha())
}

func (f ColourMatrixFilter) applyRect(dst, src *Surface, r image.Rectangle) {
	m := &f.Matrix
	eachPixel(dst, src, r, func(c color.NRGBA) color.NRGBA {
		in := [4]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, float64(c.A) / 255}
		var out [4]uint8
		for i := range out {
			row := m[i*5 : i*5+5]
			v := row[0]*in[0] + row[1]*in[1] + row[2]*in[2] + row[3]*in[3] + row[4]
			out[i] = clampByte(v * 255)
		}
		return color.NRGBA{out[0], out[1], out[2], out[3]}
	})
}

// --- Effects ---

// Effect is a fixed colour effect.
type Effect uint8

const (
	EffectGreyscale Effect = iota
	EffectInvert
	EffectSepia
)

func (e Effect) Apply(src *Surface) *Surface { return applyPoint(e, src, false) }

func (e Effect) applyRect(dst, src *Surface, r image.Rectangle) {
	var out *image.RGBA
	in := src.img.SubImage(r)
	switch e {
	case EffectGreyscale:
		out = effect.Grayscale(in)
	case EffectInvert:
		out = effect.Invert(in)
	case EffectSepia:
		out = effect.Sepia(in)
	default:
		panic("sapling: unknown effect")
	}
	draw.Draw(dst.img, r, out, out.Bounds().Min, draw.Src)
	if !dst.alpha {
		dst.forceOpaque()
	}
}

// HueFilter rotates hue by Shift degrees.
type HueFilter struct {
	Shift int
}

func (f HueFilter) Apply(src *Surface) *Surface { return applyPoint(f, src, false) }

func (f HueFilter) applyRect(dst, src *Surface, r image.Rectangle) {
	out := adjust.Hue(src.img.SubImage(r), f.Shift)
	draw.Draw(dst.img, r, out, out.Bounds().Min, draw.Src)
	if !dst.alpha {
		dst.forceOpaque()
	}
}

// --- BlurFilter ---

// BlurFilter applies a Gaussian blur of the given radius in pixels.
type BlurFilter struct {
	Radius float64
}

func (f BlurFilter) Apply(src *Surface) *Surface {
	if f.Radius <= 0 {
		return src.Copy()
	}
	out := SurfaceFromImage(blur.Gaussian(src.img, f.Radius))
	if !src.alpha {
		out.forceOpaque()
		out.alpha = false
	}
	return out
}

// --- InlineFilter ---

// InlineFilter recolours visible pixels that border transparent ones or the
// edge of the surface.
type InlineFilter struct {
	Colour color.NRGBA
}

func (f InlineFilter) Apply(src *Surface) *Surface {
	dst := src.ConvertAlpha()
	w, h := src.W(), src.H()
	transparent := func(x, y int) bool {
		return x < 0 || y < 0 || x >= w || y >= h || src.At(x, y).A == 0
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if transparent(x, y) {
				continue
			}
			if transparent(x+1, y) || transparent(x-1, y) || transparent(x, y+1) || transparent(x, y-1) {
				dst.img.SetNRGBA(x, y, f.Colour)
			}
		}
	}
	return dst
}

// --- PaletteFilter ---

// PaletteFilter maps each pixel's luminance to one of 256 colours, keeping
// its alpha. Changing Cycle shifts the mapping for palette animation.
type PaletteFilter struct {
	Palette [256]color.NRGBA
	Cycle   int
}

// NewPaletteFilter returns a greyscale palette filter.
func NewPaletteFilter() PaletteFilter {
	var f PaletteFilter
	for i := range f.Palette {
		f.Palette[i] = color.NRGBA{uint8(i), uint8(i), uint8(i), 255}
	}
	return f
}

func (f PaletteFilter) Apply(src *Surface) *Surface { return applyPoint(f, src, false) }

func (f PaletteFilter) applyRect(dst, src *Surface, r image.Rectangle) {
	eachPixel(dst, src, r, func(c color.NRGBA) color.NRGBA {
		if c.A == 0 {
			return color.NRGBA{}
		}
		lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		i := (int(math.Round(lum)) + f.Cycle) % 256
		if i < 0 {
			i += 256
		}
		p := f.Palette[i]
		p.A = c.A
		return p
	})
}
