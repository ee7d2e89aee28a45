package sapling

import (
	"image"
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestTweenPos(t *testing.T) {
	g := NewGraphic(pattern(2, 2), 0, 0)
	tg := TweenPos(g, 10, 20, 1, ease.Linear)
	if tg.Target() != g {
		t.Fatal("Target() is not the tweened graphic")
	}
	tg.Update(0.5)
	if g.Pos() != image.Pt(5, 10) {
		t.Errorf("Pos() halfway = %v, want (5,10)", g.Pos())
	}
	if tg.Done {
		t.Error("Done halfway")
	}
	tg.Update(0.5)
	if g.Pos() != image.Pt(10, 20) || !tg.Done {
		t.Errorf("Pos() at end = %v, done %v", g.Pos(), tg.Done)
	}
	tg.Update(1)
	if g.Pos() != image.Pt(10, 20) {
		t.Errorf("Pos() after done = %v", g.Pos())
	}
}

func TestTweenOpacityAngleScale(t *testing.T) {
	g := NewGraphic(pattern(4, 4), 0, 0)
	TweenOpacity(g, 0, 1, nil).Update(1)
	if g.Opacity() != 0 {
		t.Errorf("Opacity() = %d, want 0", g.Opacity())
	}

	TweenAngle(g, math.Pi/2, 2, ease.InOutQuad).Update(2)
	if math.Abs(g.Angle()-math.Pi/2) > 1e-6 {
		t.Errorf("Angle() = %v, want %v", g.Angle(), math.Pi/2)
	}

	TweenScale(g, 2, 3, 1, ease.OutCubic).Update(1)
	if g.Size() != image.Pt(8, 12) {
		t.Errorf("Size() = %v, want (8,12)", g.Size())
	}
}

func TestTweenColour(t *testing.T) {
	g := NewColour(red, xywh(0, 0, 2, 2))
	tg := TweenColour(g, blue, 1, ease.Linear)
	tg.Update(0.5)
	if c := g.Colour(); c.R == 0 || c.B == 0 || c.A != 255 {
		t.Errorf("Colour() halfway = %v", c)
	}
	tg.Update(0.5)
	if g.Colour() != blue {
		t.Errorf("Colour() = %v, want %v", g.Colour(), blue)
	}
	assertPixel(t, g.Surface(), 1, 1, blue)
}

func TestTweenStartStop(t *testing.T) {
	s := NewScheduler(10)
	g := NewGraphic(pattern(2, 2), 0, 0)
	tg := TweenPos(g, 100, 0, 1, ease.Linear).Start(s)
	for i := 0; i < 3; i++ {
		s.Update()
	}
	if x := g.X(); x < 25 || x > 35 {
		t.Errorf("X() after 3 frames = %d, want about 30", x)
	}
	tg.Stop()
	x := g.X()
	s.Update()
	if g.X() != x || s.Pending() != 0 {
		t.Errorf("tween moved after Stop: %d -> %d, pending %d", x, g.X(), s.Pending())
	}

	tg = TweenPos(g, 0, 0, 1, ease.Linear).Start(s)
	for i := 0; i < 12; i++ {
		s.Update()
	}
	if g.Pos() != (image.Point{}) || !tg.Done || s.Pending() != 0 {
		t.Errorf("after the tween: pos %v, done %v, pending %d", g.Pos(), tg.Done, s.Pending())
	}
}
