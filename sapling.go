package sapling

import (
	"image"
	"image/color"
	"math"
)

// Vec2 is a 2D vector used for sub-pixel points such as the pivot of a
// resize or rotation.
type Vec2 struct {
	X, Y float64
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Round rounds both components half away from zero.
func (v Vec2) Round() image.Point {
	return image.Pt(roundInt(v.X), roundInt(v.Y))
}

// rotate applies the anti-clockwise rotation matrix for a y-down coordinate
// system.
func (v Vec2) rotate(angle float64) Vec2 {
	s, c := math.Sincos(angle)
	return Vec2{c*v.X + s*v.Y, -s*v.X + c*v.Y}
}

// vecOf converts an integer point.
func vecOf(p image.Point) Vec2 { return Vec2{float64(p.X), float64(p.Y)} }

// roundInt rounds half away from zero.
func roundInt(x float64) int {
	return int(math.Round(x))
}

// BlendMode selects the compositing operation used when a graphic's surface is
// blitted onto another surface.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
	BlendNone                      // opaque copy (skip blending)
)

// String returns the mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendNormal:
		return "normal"
	case BlendAdd:
		return "add"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	case BlendErase:
		return "erase"
	case BlendNone:
		return "none"
	default:
		return "unknown"
	}
}

// occludes reports whether an opaque source drawn in this mode fully hides
// what is beneath it.
func (b BlendMode) occludes() bool {
	return b == BlendNormal || b == BlendNone
}

// LayerOverlay is the layer reserved for a manager's overlay graphic. It sorts
// after every other layer.
const LayerOverlay = math.MaxInt

// Common colours.
var (
	Transparent = color.NRGBA{}
	Black       = color.NRGBA{A: 255}
	White       = color.NRGBA{255, 255, 255, 255}
)

// toNRGBA converts any colour to non-premultiplied 8-bit form.
func toNRGBA(c color.Color) color.NRGBA {
	if n, ok := c.(color.NRGBA); ok {
		return n
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// Alignment gives per-axis placement: negative aligns to the leading edge,
// zero centres and positive aligns to the trailing edge.
type Alignment struct {
	X, Y int
}

// Common alignments.
var (
	AlignCentre      = Alignment{0, 0}
	AlignTopLeft     = Alignment{-1, -1}
	AlignBottomRight = Alignment{1, 1}
)

// alignRect returns the position the top-left corner of rect should move to so
// that rect sits at the given alignment inside within, inset by pad and then
// shifted by offset.
func alignRect(rect, within image.Rectangle, a Alignment, pad, offset image.Point) image.Point {
	within = image.Rectangle{
		Min: within.Min.Add(pad),
		Max: within.Max.Sub(pad),
	}
	x := alignAxis(a.X, within.Min.X, within.Dx(), rect.Dx(), offset.X)
	y := alignAxis(a.Y, within.Min.Y, within.Dy(), rect.Dy(), offset.Y)
	return image.Pt(x, y)
}

func alignAxis(align, start, space, size, offset int) int {
	var x float64
	switch {
	case align < 0:
		x = 0
	case align == 0:
		x = float64(space-size) / 2
	default:
		x = float64(space - size)
	}
	return roundInt(float64(start) + x + float64(offset))
}
