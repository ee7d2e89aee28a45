package sapling

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func xywh(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// pattern returns an opaque surface where every pixel differs from its
// neighbours.
func pattern(w, h int) *Surface {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 17), uint8(y * 29), uint8(x*y + 7), 255})
		}
	}
	return SurfaceFromImage(img)
}

// solid returns a surface filled with c, with alpha only if c is translucent.
func solid(w, h int, c color.NRGBA) *Surface {
	var s *Surface
	if c.A == 255 {
		s = NewOpaqueSurface(w, h)
	} else {
		s = NewSurface(w, h)
	}
	s.Fill(c)
	return s
}

func assertPixel(t *testing.T, s *Surface, x, y int, want color.NRGBA) {
	t.Helper()
	if got := s.At(x, y); got != want {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}

func assertSameSurface(t *testing.T, got, want *Surface) {
	t.Helper()
	if got.Size() != want.Size() {
		t.Fatalf("size = %v, want %v", got.Size(), want.Size())
	}
	for y := 0; y < got.H(); y++ {
		for x := 0; x < got.W(); x++ {
			if g, w := got.At(x, y), want.At(x, y); g != w {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

func assertRect(t *testing.T, what string, got, want image.Rectangle) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// covered reports whether p lies in any of rs.
func covered(p image.Point, rs []image.Rectangle) bool {
	for _, r := range rs {
		if p.In(r) {
			return true
		}
	}
	return false
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, got none", what)
		}
	}()
	fn()
}
