package sapling

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"testing/fstest"
)

func TestGraphicPosition(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 3, 4)
	if g.Pos() != image.Pt(3, 4) || g.W() != 8 || g.H() != 6 {
		t.Fatalf("Pos() = %v, size %dx%d", g.Pos(), g.W(), g.H())
	}
	g.SetPos(10, 20).MoveBy(-1, 2)
	assertRect(t, "Rect()", g.Rect(), xywh(9, 22, 8, 6))
	g.SetX(0).SetY(1)
	if g.X() != 0 || g.Y() != 1 {
		t.Errorf("X(), Y() = %d, %d; want 0, 1", g.X(), g.Y())
	}
	if args, ok := g.LastTransformArgs("resize"); ok {
		t.Errorf("moving touched the resize stage: %v", args)
	}
}

func TestGraphicSetRect(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0)
	g.SetRect(xywh(5, 5, 8, 6))
	if _, ok := g.LastTransformArgs("resize"); ok {
		t.Error("SetRect with the same size resized")
	}
	g.SetRect(xywh(1, 2, 4, 3))
	assertRect(t, "Rect()", g.Rect(), xywh(1, 2, 4, 3))
	if g.Surface().Size() != image.Pt(4, 3) {
		t.Errorf("surface size = %v, want (4,3)", g.Surface().Size())
	}
	if g.Scale() != (Vec2{0.5, 0.5}) {
		t.Errorf("Scale() = %v, want (0.5,0.5)", g.Scale())
	}
	g.SetW(8).SetH(12)
	assertRect(t, "Rect() after SetW/SetH", g.Rect(), xywh(1, 2, 8, 12))
}

func TestGraphicAlign(t *testing.T) {
	m := NewManagerSize(nil, 100, 50)
	g := NewGraphic(pattern(10, 10), 0, 0)
	m.Add(g)

	g.Align(AlignCentre, image.Point{}, image.Point{})
	assertRect(t, "centre", g.Rect(), xywh(45, 20, 10, 10))
	g.Align(AlignBottomRight, image.Pt(5, 5), image.Point{})
	assertRect(t, "bottom right", g.Rect(), xywh(85, 35, 10, 10))
	g.Align(AlignTopLeft, image.Point{}, image.Pt(2, 3))
	assertRect(t, "top left", g.Rect(), xywh(2, 3, 10, 10))
	g.AlignWithin(Alignment{1, -1}, image.Point{}, image.Point{}, xywh(0, 0, 30, 30))
	assertRect(t, "within", g.Rect(), xywh(20, 0, 10, 10))
}

func TestGraphicFillKeepsSource(t *testing.T) {
	orig := pattern(4, 4)
	keep := orig.Copy()
	g := NewGraphic(orig, 0, 0).Fill(White)
	assertPixel(t, g.Surface(), 3, 3, White)
	if g.Colour() != White {
		t.Errorf("Colour() = %v, want white", g.Colour())
	}
	assertSameSurface(t, orig, keep)

	g.Fill(Transparent)
	if g.Surface() != orig {
		t.Error("unfilling did not restore the original")
	}
}

func TestColourGraphic(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	g := NewColour(red, image.Rect(8, 8, 5, 5))
	assertRect(t, "Rect()", g.Rect(), xywh(5, 5, 3, 3))
	sfc := g.Surface()
	assertPixel(t, sfc, 1, 1, red)
	if sfc.HasAlpha() {
		t.Error("opaque colour graphic has alpha")
	}

	half := color.NRGBA{0, 0, 255, 128}
	g.Fill(half)
	assertPixel(t, g.Surface(), 2, 2, half)
	if !g.Surface().HasAlpha() {
		t.Error("translucent colour graphic has no alpha")
	}
	g.SetScaleFunc(ScaleNearest).Resize(6, 6)
	assertPixel(t, g.Surface(), 5, 5, half)
}

func TestGraphicOpaqueIn(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 0, 0)
	r := xywh(1, 1, 2, 2)
	if !g.OpaqueIn(r) {
		t.Error("opaque graphic not opaque")
	}
	if g.OpaqueIn(xywh(7, 5, 2, 2)) {
		t.Error("opaque beyond its own area")
	}
	g.SetBlend(BlendAdd)
	if g.OpaqueIn(r) {
		t.Error("additive graphic reported opaque")
	}
	g.SetBlend(BlendNormal).Fade(200)
	if g.OpaqueIn(r) {
		t.Error("faded graphic reported opaque")
	}
	g.Fade(255).SetVisible(false)
	if g.OpaqueIn(r) {
		t.Error("hidden graphic reported opaque")
	}
}

func TestGraphicSnapshot(t *testing.T) {
	g := NewGraphic(pattern(8, 6), 10, 20).Rotate(math.Pi / 2).SetLayer(3)
	g.Name = "hero"
	s := g.Snapshot()
	assertRect(t, "snapshot Rect()", s.Rect(), xywh(11, 19, 6, 8))
	if s.Layer() != 3 || s.Name != "hero" || s.Angle() != 0 {
		t.Errorf("snapshot = %v, angle %v", s, s.Angle())
	}
	assertSameSurface(t, s.Surface(), g.Surface())
	if s.Surface() == g.Surface() {
		t.Error("snapshot shares the final surface")
	}
}

func TestGraphicString(t *testing.T) {
	g := NewGraphic(pattern(2, 2), 1, 1)
	if s := g.String(); !strings.HasPrefix(s, "graphic#") {
		t.Errorf("String() = %q", s)
	}
	g.Name = "tree"
	if s := g.String(); s != "tree (1,1)-(3,3) layer=0" {
		t.Errorf("String() = %q", s)
	}
}

func TestGraphicIDsUnique(t *testing.T) {
	a := NewGraphic(pattern(1, 1), 0, 0)
	b := NewGraphic(pattern(1, 1), 0, 0)
	if a.ID == b.ID {
		t.Errorf("IDs %d and %d collide", a.ID, b.ID)
	}
}

func TestGraphicFromResourceReload(t *testing.T) {
	fsys := fstest.MapFS{"img/a.png": {Data: encodePNG(t, pattern(4, 4).Image())}}
	res := NewResourceCache(fsys)
	g, err := NewGraphicFromResource(res, "img/a.png", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	g.Crop(xywh(0, 0, 2, 2))
	assertRect(t, "Rect()", g.Rect(), xywh(1, 2, 2, 2))

	fsys["img/a.png"] = &fstest.MapFile{Data: encodePNG(t, solid(6, 6, White).Image())}
	if err := g.Reload(); err != nil {
		t.Fatal(err)
	}
	if g.OrigSurface().Size() != image.Pt(6, 6) {
		t.Errorf("reloaded size = %v, want (6,6)", g.OrigSurface().Size())
	}
	assertPixel(t, g.Surface(), 0, 0, White)
	assertRect(t, "Rect() after reload", g.Rect(), xywh(1, 2, 2, 2))

	delete(fsys, "img/a.png")
	if err := g.Reload(); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Reload() = %v, want ErrResourceNotFound", err)
	}
	if _, err := NewGraphicFromResource(res, "missing.png", 0, 0); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("NewGraphicFromResource(missing) = %v", err)
	}

	if err := NewGraphic(pattern(1, 1), 0, 0).Reload(); err != nil {
		t.Errorf("Reload without resource = %v, want nil", err)
	}
}

func TestGraphicDirtyAll(t *testing.T) {
	orig := pattern(4, 4)
	g := NewGraphic(orig, 0, 0).Flip(true, false)
	g.Render()
	g.dirty = DirtyNone()
	orig.Fill(White)
	g.Dirty()
	assertPixel(t, g.Surface(), 0, 0, White)
	if !g.dirty.IsAll() {
		t.Errorf("dirty = %v, want all", g.dirty)
	}
}
