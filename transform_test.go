package sapling

import (
	"image"
	"image/color"
	"math"
	"slices"
	"testing"
)

// invertStage is a custom transform that inverts colour and supports partial
// updates.
func invertStage(src, dst *Surface, d Dirty, last, args any) (*Surface, Dirty) {
	if dst == nil || dst == src || d.IsAll() || last != args {
		n := src.Copy()
		invertInto(n, src, n.Bounds())
		return n, DirtyAll()
	}
	for _, r := range d.Rects() {
		invertInto(dst, src, r)
	}
	return dst, d
}

func invertInto(dst, src *Surface, r image.Rectangle) {
	r = r.Intersect(src.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := src.At(x, y)
			dst.Set(x, y, color.NRGBA{255 - c.R, 255 - c.G, 255 - c.B, c.A})
		}
	}
}

func TestRenderIdempotent(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0).Crop(xywh(1, 1, 5, 4)).Fade(100).Rotate(0.5)
	first := g.Surface()
	snapshot := first.Copy()
	g.dirty = DirtyNone()

	g.Render()
	if g.Surface() != first {
		t.Error("second render replaced the surface")
	}
	if !g.dirty.IsNone() {
		t.Errorf("second render reported dirty %v", g.dirty)
	}
	assertSameSurface(t, g.Surface(), snapshot)
}

func TestNoOpTransformsKeepOriginal(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Graphic)
	}{
		{"fade 255", func(g *Graphic) { g.Fade(255) }},
		{"rotate 0", func(g *Graphic) { g.Rotate(0) }},
		{"rotate below threshold", func(g *Graphic) { g.Rotate(DefaultRotateThreshold / 2) }},
		{"resize to same size", func(g *Graphic) { g.Resize(8, 6) }},
		{"resize keep both", func(g *Graphic) { g.Resize(-1, -1) }},
		{"crop to bounds", func(g *Graphic) { g.Crop(xywh(0, 0, 8, 6)) }},
		{"flip nothing", func(g *Graphic) { g.Flip(false, false) }},
		{"fill transparent", func(g *Graphic) { g.Fill(Transparent) }},
		{"all together", func(g *Graphic) {
			g.Crop(xywh(0, 0, 8, 6)).Flip(false, false).Fade(255).Resize(8, 6).Rotate(0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := pattern(8, 6)
			g := NewGraphic(orig, 3, 4)
			tt.op(g)
			if g.Surface() != orig {
				t.Error("no-op transform replaced the original surface")
			}
			assertRect(t, "Rect()", g.Rect(), xywh(3, 4, 8, 6))
			assertRect(t, "PostrotRect()", g.PostrotRect(), xywh(3, 4, 8, 6))
		})
	}
}

// Changing part of the original must give the same result as building the
// graphic from scratch, and every changed pixel must be reported dirty.
func TestPartialUpdateMatchesFullRender(t *testing.T) {
	tests := []struct {
		name   string
		ops    func(*Graphic) *Graphic
		change image.Rectangle
	}{
		{"crop flip fade", func(g *Graphic) *Graphic {
			return g.Crop(xywh(1, 1, 6, 4)).Flip(true, false).Fade(128)
		}, xywh(2, 2, 2, 1)},
		{"crop beyond source", func(g *Graphic) *Graphic {
			return g.Crop(xywh(-2, -1, 12, 9))
		}, xywh(6, 4, 3, 3)},
		{"flip both small change", func(g *Graphic) *Graphic {
			return g.Flip(true, true)
		}, xywh(0, 0, 1, 1)},
		{"flip large change", func(g *Graphic) *Graphic {
			return g.Flip(false, true)
		}, xywh(0, 0, 8, 5)},
		{"fade", func(g *Graphic) *Graphic {
			return g.Fade(40)
		}, xywh(7, 5, 4, 4)},
		{"resize", func(g *Graphic) *Graphic {
			return g.Resize(16, 3)
		}, xywh(1, 1, 1, 1)},
		{"quarter turn", func(g *Graphic) *Graphic {
			return g.Rotate(math.Pi / 2)
		}, xywh(3, 0, 2, 2)},
		{"fill", func(g *Graphic) *Graphic {
			return g.Fill(color.NRGBA{0, 200, 0, 255})
		}, xywh(0, 0, 2, 2)},
		{"custom after flip", func(g *Graphic) *Graphic {
			return g.Flip(true, false).Transform("invert", invertStage, 1)
		}, xywh(5, 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := pattern(8, 6)
			g := tt.ops(NewGraphic(orig, 0, 0))
			before := g.Surface().Copy()
			g.dirty = DirtyNone()

			orig.Fill(color.NRGBA{250, 10, 200, 255}, tt.change)
			g.Dirty(tt.change)
			after := g.Surface()

			fresh := tt.ops(NewGraphic(orig.Copy(), 0, 0)).Surface()
			assertSameSurface(t, after, fresh)

			if g.dirty.IsAll() || after.Size() != before.Size() {
				return
			}
			rects := g.dirty.Rects()
			for y := 0; y < after.H(); y++ {
				for x := 0; x < after.W(); x++ {
					if after.At(x, y) != before.At(x, y) && !covered(image.Pt(x, y), rects) {
						t.Fatalf("pixel (%d,%d) changed but dirty is %v", x, y, g.dirty)
					}
				}
			}
		})
	}
}

func TestRotationKeepsPivotQuarterTurns(t *testing.T) {
	about := Vec2{2.5, 3.5}
	for _, angle := range []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2, -math.Pi / 2} {
		orig := pattern(8, 6)
		marker := orig.At(2, 3)
		g := NewGraphic(orig, 10, 20).RotateAbout(angle, about)
		sfc := g.Surface()

		found := false
		for y := 0; y < sfc.H() && !found; y++ {
			for x := 0; x < sfc.W(); x++ {
				if sfc.At(x, y) != marker {
					continue
				}
				found = true
				if got := g.PostrotRect().Min.Add(image.Pt(x, y)); got != image.Pt(12, 23) {
					t.Errorf("angle %v: pivot pixel at %v, want (12,23)", angle, got)
				}
				break
			}
		}
		if !found {
			t.Errorf("angle %v: pivot pixel missing from rotated surface", angle)
		}
		assertRect(t, "Rect()", g.Rect(), xywh(10, 20, 8, 6))
	}
}

func TestRotationKeepsPivotArbitrary(t *testing.T) {
	orig := NewOpaqueSurface(20, 14)
	orig.Fill(White, xywh(4, 6, 3, 3))
	about := Vec2{5.5, 7.5}
	for _, angle := range []float64{math.Pi / 4, 1, -2.2} {
		g := NewGraphic(orig, 100, 50).RotateAbout(angle, about)
		sfc := g.Surface()
		var sum, sx, sy float64
		for y := 0; y < sfc.H(); y++ {
			for x := 0; x < sfc.W(); x++ {
				c := sfc.At(x, y)
				w := float64(c.R) * float64(c.A)
				sum += w
				sx += w * (float64(x) + 0.5)
				sy += w * (float64(y) + 0.5)
			}
		}
		if sum == 0 {
			t.Fatalf("angle %v: marker lost", angle)
		}
		pr := g.PostrotRect()
		gotX, gotY := float64(pr.Min.X)+sx/sum, float64(pr.Min.Y)+sy/sum
		if math.Abs(gotX-105.5) > 1.5 || math.Abs(gotY-57.5) > 1.5 {
			t.Errorf("angle %v: pivot moved to (%.2f,%.2f), want (105.5,57.5)", angle, gotX, gotY)
		}
	}
}

func TestRotateCentre(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 10, 20).Rotate(math.Pi / 2)
	assertRect(t, "Rect()", g.Rect(), xywh(10, 20, 8, 6))
	assertRect(t, "PostrotRect()", g.PostrotRect(), xywh(11, 19, 6, 8))
	if g.Angle() != math.Pi/2 {
		t.Errorf("Angle() = %v, want %v", g.Angle(), math.Pi/2)
	}

	g.Rotate(0)
	assertRect(t, "PostrotRect() after reset", g.PostrotRect(), xywh(10, 20, 8, 6))
}

func TestRotateThreshold(t *testing.T) {
	orig := pattern(8, 6)
	g := NewGraphic(orig, 0, 0).SetRotateThreshold(0.5).Rotate(0.4)
	if g.Surface() != orig {
		t.Error("rotation below the threshold changed the surface")
	}
	g.Rotate(0.6)
	rotated := g.Surface()
	if rotated == orig {
		t.Fatal("rotation above the threshold did nothing")
	}
	g.Rotate(0.7)
	if g.Surface() != rotated {
		t.Error("angle change below the threshold rerotated")
	}
}

func TestCropMovesGraphic(t *testing.T) {
	orig := pattern(8, 6)
	g := NewGraphic(orig, 10, 10).Crop(xywh(2, 3, 4, 2))
	assertRect(t, "Rect()", g.Rect(), xywh(12, 13, 4, 2))
	assertRect(t, "CroppedRect()", g.CroppedRect(), xywh(2, 3, 4, 2))
	assertPixel(t, g.Surface(), 0, 0, orig.At(2, 3))

	g.Untransform("crop")
	assertRect(t, "Rect() after uncrop", g.Rect(), xywh(10, 10, 8, 6))
	assertRect(t, "CroppedRect() after uncrop", g.CroppedRect(), xywh(0, 0, 8, 6))
}

func TestResizeAbout(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0).ResizeAbout(16, 12, Vec2{4, 3})
	assertRect(t, "Rect()", g.Rect(), xywh(-4, -3, 16, 12))
	if g.Scale() != (Vec2{2, 2}) {
		t.Errorf("Scale() = %v, want (2,2)", g.Scale())
	}

	g.Untransform("resize")
	assertRect(t, "Rect() after unresize", g.Rect(), xywh(0, 0, 8, 6))
	if g.Scale() != (Vec2{1, 1}) {
		t.Errorf("Scale() after unresize = %v, want (1,1)", g.Scale())
	}
}

func TestResizeZeroKeepsSize(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0)
	tests := []struct {
		w, h int
		want image.Point
	}{
		{0, 3, image.Pt(8, 3)},
		{4, 0, image.Pt(4, 6)},
		{0, 0, image.Pt(8, 6)},
		{-1, 12, image.Pt(8, 12)},
	}
	for _, tt := range tests {
		g.Resize(tt.w, tt.h)
		if g.Size() != tt.want {
			t.Errorf("Resize(%d, %d) size = %v, want %v", tt.w, tt.h, g.Size(), tt.want)
		}
	}
}

func TestResizeHelpers(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0).ResizeBoth(16, -1, Vec2{})
	if g.Size() != image.Pt(16, 12) {
		t.Errorf("ResizeBoth size = %v, want (16,12)", g.Size())
	}
	g.ResizeBoth(-1, 3, Vec2{})
	if g.Size() != image.Pt(4, 3) {
		t.Errorf("ResizeBoth by height size = %v, want (4,3)", g.Size())
	}
	g.ResizeBoth(0, 6, Vec2{})
	if g.Size() != image.Pt(8, 6) {
		t.Errorf("ResizeBoth(0, 6) size = %v, want (8,6)", g.Size())
	}
	g.SetScale(0.5, 2)
	if g.Size() != image.Pt(4, 12) {
		t.Errorf("SetScale size = %v, want (4,12)", g.Size())
	}
	g.SetSize(5, 5)
	if g.Size() != image.Pt(5, 5) {
		t.Errorf("SetSize size = %v, want (5,5)", g.Size())
	}
}

func TestTransformsAfterCrop(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0).Crop(xywh(0, 0, 4, 4)).Resize(8, 8)
	if size, ok := g.SizeBeforeTransform("resize"); !ok || size != image.Pt(4, 4) {
		t.Errorf("SizeBeforeTransform(resize) = %v, %v; want (4,4), true", size, ok)
	}
	sfc, ok := g.SurfaceBeforeTransform("resize")
	if !ok || sfc.Size() != image.Pt(4, 4) {
		t.Errorf("SurfaceBeforeTransform(resize) = %v, %v", sfc, ok)
	}
	if sfc, _ := g.SurfaceBeforeTransform("crop"); sfc != g.OrigSurface() {
		t.Error("SurfaceBeforeTransform(crop) is not the original")
	}
	if _, ok := g.SizeBeforeTransform("nope"); ok {
		t.Error("SizeBeforeTransform of an unknown stage succeeded")
	}
}

func TestLastTransformArgs(t *testing.T) {
	g := NewGraphic(pattern(2, 2), 0, 0).Fade(100)
	args, ok := g.LastTransformArgs("fade")
	if !ok || args != (FadeArgs{Opacity: 100}) {
		t.Errorf("LastTransformArgs(fade) = %v, %v", args, ok)
	}
	if g.Opacity() != 100 {
		t.Errorf("Opacity() = %d, want 100", g.Opacity())
	}
	g.Untransform("fade")
	if _, ok := g.LastTransformArgs("fade"); ok {
		t.Error("LastTransformArgs after Untransform succeeded")
	}
	if g.Opacity() != 255 {
		t.Errorf("Opacity() after Untransform = %d, want 255", g.Opacity())
	}
}

func TestCustomTransformOrder(t *testing.T) {
	g := NewGraphic(pattern(2, 2), 0, 0)
	want := []string{"crop", "flip", "fade", "resize", "rotate"}
	if got := g.Transforms(); !slices.Equal(got, want) {
		t.Fatalf("Transforms() = %v, want %v", got, want)
	}

	g.Transform("a", invertStage, 1)
	g.Transform("b", invertStage, 1, Before("rotate"))
	want = []string{"crop", "flip", "fade", "resize", "b", "rotate", "a"}
	if got := g.Transforms(); !slices.Equal(got, want) {
		t.Errorf("Transforms() = %v, want %v", got, want)
	}

	g.Transform("a", invertStage, 2, AtIndex(0))
	g.Transform("b", invertStage, 3)
	g.Transform("c", invertStage, 1, After("missing"))
	want = []string{"a", "crop", "flip", "fade", "resize", "b", "rotate", "c"}
	if got := g.Transforms(); !slices.Equal(got, want) {
		t.Errorf("Transforms() = %v, want %v", got, want)
	}

	g.Untransform("b").Untransform("rotate").Untransform("unknown")
	want = []string{"a", "crop", "flip", "fade", "resize", "rotate", "c"}
	if got := g.Transforms(); !slices.Equal(got, want) {
		t.Errorf("Transforms() after Untransform = %v, want %v", got, want)
	}

	c := NewColour(White, xywh(0, 0, 2, 2))
	if got := c.Transforms(); got[0] != "fill" {
		t.Errorf("colour graphic Transforms() = %v, want fill first", got)
	}
}

func TestCustomTransformDirty(t *testing.T) {
	var got []Dirty
	record := func(src, dst *Surface, d Dirty, last, args any) (*Surface, Dirty) {
		got = append(got, d)
		return invertStage(src, dst, d, last, args)
	}
	orig := pattern(4, 4)
	g := NewGraphic(orig, 0, 0).Transform("invert", record, 1)
	first := g.Surface()
	assertPixel(t, first, 0, 0, color.NRGBA{255, 255, 248, 255})

	orig.Set(1, 1, White)
	g.Dirty(xywh(1, 1, 1, 1))
	if g.Surface() != first {
		t.Error("partial update replaced the surface")
	}
	if n := len(got); n != 2 || got[1].String() != "[(1,1)-(2,2)]" {
		t.Fatalf("stage saw dirty %v, want second call with [(1,1)-(2,2)]", got)
	}
	assertPixel(t, first, 1, 1, Black)

	g.Transform("invert", record, 2)
	if g.Surface() == first {
		t.Error("new arguments did not rebuild the stage")
	}

	g.Untransform("invert")
	if g.Surface() != orig {
		t.Error("removing the only stage did not restore the original")
	}
}

func TestRetransform(t *testing.T) {
	calls := 0
	fn := func(src, dst *Surface, d Dirty, last, args any) (*Surface, Dirty) {
		calls++
		return invertStage(src, dst, d, last, args)
	}
	g := NewGraphic(pattern(2, 2), 0, 0).Transform("invert", fn, 1)
	g.Render()
	g.Render()
	g.Retransform("invert")
	g.Render()
	if calls != 2 {
		t.Errorf("stage ran %d times, want 2", calls)
	}
}

func TestTransformPanics(t *testing.T) {
	g := NewGraphic(pattern(2, 2), 0, 0)
	expectPanic(t, "builtin name", func() { g.Transform("crop", invertStage, nil) })
	expectPanic(t, "nil function", func() { g.Transform("x", nil, nil) })
	expectPanic(t, "bad index", func() { g.Transform("x", invertStage, nil, AtIndex(99)) })
	expectPanic(t, "negative index", func() { g.Transform("x", invertStage, nil, AtIndex(-1)) })
	expectPanic(t, "NaN angle", func() { g.Rotate(math.NaN()) })
	expectPanic(t, "infinite angle", func() { g.RotateAbout(math.Inf(1), Vec2{}) })
	expectPanic(t, "nil surface", func() { NewGraphic(nil, 0, 0) })
}
