package sapling

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
)

// Surface is a 2D pixel buffer in non-premultiplied RGBA. Surfaces without an
// alpha channel are always fully opaque: every operation that writes to them
// discards transparency by compositing over black.
type Surface struct {
	img   *image.NRGBA
	alpha bool
}

// NewSurface creates a transparent surface with an alpha channel.
func NewSurface(w, h int) *Surface {
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0))), alpha: true}
}

// NewOpaqueSurface creates a black surface without an alpha channel.
func NewOpaqueSurface(w, h int) *Surface {
	s := &Surface{img: image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))}
	s.Fill(Black)
	return s
}

// SurfaceFromImage copies img into a new surface with its origin at (0, 0).
// The surface has an alpha channel only if img has any non-opaque pixel.
func SurfaceFromImage(img image.Image) *Surface {
	n := nrgbaFromImage(img)
	return &Surface{img: n, alpha: !n.Opaque()}
}

func nrgbaFromImage(img image.Image) *image.NRGBA {
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	return n
}

// Size returns the surface dimensions.
func (s *Surface) Size() image.Point { return s.img.Rect.Size() }

// W returns the surface width.
func (s *Surface) W() int { return s.img.Rect.Dx() }

// H returns the surface height.
func (s *Surface) H() int { return s.img.Rect.Dy() }

// Bounds returns the surface rectangle, always anchored at (0, 0).
func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }

// HasAlpha reports whether the surface may contain non-opaque pixels.
func (s *Surface) HasAlpha() bool { return s.alpha }

// Image returns the backing image. Writes to it must be followed by
// [Graphic.Dirty] on any graphic using this surface as its original.
func (s *Surface) Image() *image.NRGBA { return s.img }

// At returns the pixel at (x, y), or transparent outside the surface.
func (s *Surface) At(x, y int) color.NRGBA { return s.img.NRGBAAt(x, y) }

// Set writes a pixel. On surfaces without alpha the colour is made opaque.
func (s *Surface) Set(x, y int, c color.Color) {
	n := toNRGBA(c)
	if !s.alpha {
		n.A = 255
	}
	s.img.SetNRGBA(x, y, n)
}

// Copy returns an independent copy.
func (s *Surface) Copy() *Surface {
	img := image.NewNRGBA(s.img.Rect)
	copy(img.Pix, s.img.Pix)
	return &Surface{img: img, alpha: s.alpha}
}

// ConvertAlpha returns a copy with an alpha channel.
func (s *Surface) ConvertAlpha() *Surface {
	c := s.Copy()
	c.alpha = true
	return c
}

// Fill replaces the pixels in the given rectangles, or the whole surface if
// none are given, with c. No blending takes place.
func (s *Surface) Fill(c color.Color, rects ...image.Rectangle) {
	n := toNRGBA(c)
	if !s.alpha {
		n.A = 255
	}
	if len(rects) == 0 {
		rects = []image.Rectangle{s.img.Rect}
	}
	px := [4]byte{n.R, n.G, n.B, n.A}
	for _, r := range rects {
		r = r.Intersect(s.img.Rect)
		if r.Empty() {
			continue
		}
		first := s.img.PixOffset(r.Min.X, r.Min.Y)
		row := s.img.Pix[first : first+4*r.Dx()]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], px[:])
		}
		for y := r.Min.Y + 1; y < r.Max.Y; y++ {
			i := s.img.PixOffset(r.Min.X, y)
			copy(s.img.Pix[i:i+4*r.Dx()], row)
		}
	}
}

// Blit composites the sr portion of src onto s with its top-left corner at dp.
// Both rectangles are clipped to their surfaces. src must not be s.
func (s *Surface) Blit(src *Surface, dp image.Point, sr image.Rectangle, mode BlendMode) {
	clipped := sr.Intersect(src.img.Rect)
	dp = dp.Add(clipped.Min.Sub(sr.Min))
	sr = clipped
	dr := image.Rectangle{Min: dp, Max: dp.Add(sr.Size())}
	c := dr.Intersect(s.img.Rect)
	if c.Empty() {
		return
	}
	sp := sr.Min.Add(c.Min.Sub(dr.Min))
	w := 4 * c.Dx()
	for y := 0; y < c.Dy(); y++ {
		di := s.img.PixOffset(c.Min.X, c.Min.Y+y)
		si := src.img.PixOffset(sp.X, sp.Y+y)
		blendRow(s.img.Pix[di:di+w], src.img.Pix[si:si+w], mode, src.alpha, s.alpha)
	}
}

// forceOpaque sets every alpha to 255 without touching colour.
func (s *Surface) forceOpaque() {
	for i := 3; i < len(s.img.Pix); i += 4 {
		s.img.Pix[i] = 255
	}
}

func blendRow(dst, src []byte, mode BlendMode, srcAlpha, dstAlpha bool) {
	if mode == BlendNone || (mode == BlendNormal && !srcAlpha) {
		copy(dst, src)
		if srcAlpha && !dstAlpha {
			flattenRow(dst)
		}
		return
	}
	for i := 0; i < len(dst); i += 4 {
		sa := uint32(src[i+3])
		if sa == 0 {
			continue
		}
		if sa == 255 && mode == BlendNormal {
			copy(dst[i:i+4], src[i:i+4])
			continue
		}
		da := uint32(dst[i+3])
		// Premultiplied channels scaled by 255*255; alpha scaled by 255.
		sA, dA := sa*255, da*255
		var oA uint32
		var op [3]uint32
		for k := 0; k < 3; k++ {
			sp := uint32(src[i+k]) * sa
			dp := uint32(dst[i+k]) * da
			switch mode {
			case BlendAdd:
				op[k] = min(sp+dp, 255*255)
			case BlendMultiply:
				op[k] = sp*dp/(255*255) + dp*(255-sa)/255
			case BlendScreen:
				op[k] = sp + dp - sp*dp/(255*255)
			case BlendErase:
				op[k] = dp * (255 - sa) / 255
			default:
				op[k] = sp + dp*(255-sa)/255
			}
		}
		switch mode {
		case BlendAdd:
			oA = min(sA+dA, 255*255)
		case BlendMultiply:
			oA = dA
		case BlendErase:
			oA = dA * (255 - sa) / 255
		default:
			oA = sA + dA*(255-sa)/255
		}
		if !dstAlpha {
			for k := 0; k < 3; k++ {
				dst[i+k] = uint8(min((op[k]+127)/255, 255))
			}
			dst[i+3] = 255
			continue
		}
		if oA == 0 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = 0, 0, 0, 0
			continue
		}
		for k := 0; k < 3; k++ {
			dst[i+k] = uint8(min((op[k]*255+oA/2)/oA, 255))
		}
		dst[i+3] = uint8((oA + 127) / 255)
	}
}

// flattenRow composites a row over black and makes it opaque.
func flattenRow(px []byte) {
	for i := 0; i < len(px); i += 4 {
		a := uint32(px[i+3])
		if a == 255 {
			continue
		}
		px[i] = uint8((uint32(px[i])*a + 127) / 255)
		px[i+1] = uint8((uint32(px[i+1])*a + 127) / 255)
		px[i+2] = uint8((uint32(px[i+2])*a + 127) / 255)
		px[i+3] = 255
	}
}

// ScaleFunc scales a surface to exactly w by h pixels. It must not modify s.
type ScaleFunc func(s *Surface, w, h int) *Surface

// RotateFunc rotates a surface anti-clockwise by angle radians, growing the
// result to fit. It must not modify s.
type RotateFunc func(s *Surface, angle float64) *Surface

// ScaleSmooth scales with a Catmull-Rom kernel. It is the default ScaleFunc.
func ScaleSmooth(s *Surface, w, h int) *Surface {
	return scaleWith(draw.CatmullRom, s, w, h)
}

// ScaleNearest scales with nearest-neighbour sampling, preserving hard pixel
// edges.
func ScaleNearest(s *Surface, w, h int) *Surface {
	return scaleWith(draw.NearestNeighbor, s, w, h)
}

// ScaleLinear scales with bilinear filtering.
func ScaleLinear(s *Surface, w, h int) *Surface {
	if w <= 0 || h <= 0 || s.img.Rect.Empty() {
		return blankLike(s, w, h)
	}
	out := transform.Resize(s.img, w, h, transform.Linear)
	r := &Surface{img: nrgbaFromImage(out), alpha: s.alpha}
	if !s.alpha {
		r.forceOpaque()
	}
	return r
}

func scaleWith(sc draw.Scaler, s *Surface, w, h int) *Surface {
	if w <= 0 || h <= 0 || s.img.Rect.Empty() {
		return blankLike(s, w, h)
	}
	r := &Surface{img: image.NewNRGBA(image.Rect(0, 0, w, h)), alpha: s.alpha}
	sc.Scale(r.img, r.img.Rect, s.img, s.img.Rect, draw.Src, nil)
	if !s.alpha {
		r.forceOpaque()
	}
	return r
}

func blankLike(s *Surface, w, h int) *Surface {
	if s.alpha {
		return NewSurface(w, h)
	}
	return NewOpaqueSurface(w, h)
}

// RotateZoom rotates about the centre and grows the result to fit. Exact
// quarter turns are pixel-exact. It is the default RotateFunc.
func RotateZoom(s *Surface, angle float64) *Surface {
	if q, ok := quarterTurns(angle); ok {
		return rotateQuarter(s, q)
	}
	if s.img.Rect.Empty() {
		return NewSurface(0, 0)
	}
	// bild rotates clockwise in degrees.
	out := transform.Rotate(s.img, -angle*180/math.Pi, &transform.RotationOptions{ResizeBounds: true})
	return &Surface{img: nrgbaFromImage(out), alpha: true}
}

// quarterTurns reports whether angle is a whole number of quarter turns and,
// if so, how many anti-clockwise turns in [0, 4).
func quarterTurns(angle float64) (int, bool) {
	q := angle / (math.Pi / 2)
	r := math.Round(q)
	if math.Abs(q-r) > 1e-9 {
		return 0, false
	}
	n := int(math.Mod(r, 4))
	if n < 0 {
		n += 4
	}
	return n, true
}

// rotateQuarter rotates anti-clockwise by n quarter turns.
func rotateQuarter(s *Surface, n int) *Surface {
	if n == 0 {
		return s.Copy()
	}
	w, h := s.W(), s.H()
	ow, oh := w, h
	if n%2 == 1 {
		ow, oh = h, w
	}
	r := &Surface{img: image.NewNRGBA(image.Rect(0, 0, ow, oh)), alpha: s.alpha}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch n {
			case 1:
				dx, dy = y, w-1-x
			case 2:
				dx, dy = w-1-x, h-1-y
			default:
				dx, dy = h-1-y, x
			}
			si := s.img.PixOffset(x, y)
			di := r.img.PixOffset(dx, dy)
			copy(r.img.Pix[di:di+4], s.img.Pix[si:si+4])
		}
	}
	return r
}

// FlipSurface returns a copy mirrored horizontally if x and vertically if y.
func FlipSurface(s *Surface, x, y bool) *Surface {
	w, h := s.W(), s.H()
	r := &Surface{img: image.NewNRGBA(s.img.Rect), alpha: s.alpha}
	for sy := 0; sy < h; sy++ {
		dy := sy
		if y {
			dy = h - 1 - sy
		}
		if !x {
			si := s.img.PixOffset(0, sy)
			di := r.img.PixOffset(0, dy)
			copy(r.img.Pix[di:di+4*w], s.img.Pix[si:si+4*w])
			continue
		}
		for sx := 0; sx < w; sx++ {
			si := s.img.PixOffset(sx, sy)
			di := r.img.PixOffset(w-1-sx, dy)
			copy(r.img.Pix[di:di+4], s.img.Pix[si:si+4])
		}
	}
	return r
}
