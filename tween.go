package sapling

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// InterpTween eases every component of from to the matching component of to
// over the given number of seconds, passing each new value to set. The final
// value is always set exactly. The returned ID cancels it.
func (s *Scheduler) InterpTween(from, to []float64, seconds float64, fn ease.TweenFunc, set func(v []float64)) int {
	if len(from) != len(to) {
		panic(fmt.Sprintf("sapling: tween from %d values to %d", len(from), len(to)))
	}
	if fn == nil {
		fn = ease.Linear
	}
	tweens := make([]*gween.Tween, len(from))
	for i := range from {
		tweens[i] = gween.New(float32(from[i]), float32(to[i]), float32(seconds), fn)
	}
	final := slices.Clone(to)
	return s.Interp(func(t float64) ([]float64, bool) {
		v := make([]float64, len(tweens))
		finished := true
		for i, tw := range tweens {
			x, done := tw.Set(float32(t))
			v[i] = float64(x)
			finished = finished && done
		}
		return v, !finished
	}, set, InterpOptions{End: func() []float64 { return final }})
}

// TweenGroup animates up to 4 values of a graphic together. Create one with
// TweenPos, TweenScale, TweenOpacity, TweenAngle or TweenColour, then either
// call Update each frame or hand it to a scheduler with Start.
type TweenGroup struct {
	tweens [4]*gween.Tween
	vals   [4]float64
	count  int
	apply  func(v []float64)
	target *Graphic
	sched  *Scheduler
	id     int
	Done   bool
}

func newTweenGroup(g *Graphic, from, to []float64, seconds float32, fn ease.TweenFunc, apply func(v []float64)) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	tg := &TweenGroup{count: len(from), apply: apply, target: g}
	for i := range from {
		tg.tweens[i] = gween.New(float32(from[i]), float32(to[i]), seconds, fn)
	}
	return tg
}

// Update advances all tweens by dt seconds and applies the values to the
// target graphic.
func (tg *TweenGroup) Update(dt float32) {
	if tg.Done {
		return
	}
	allDone := true
	for i := 0; i < tg.count; i++ {
		val, finished := tg.tweens[i].Update(dt)
		tg.vals[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	tg.Done = allDone
	tg.apply(tg.vals[:tg.count])
}

// Start drives the group from s, one frame at a time, until it is done or
// stopped.
func (tg *TweenGroup) Start(s *Scheduler) *TweenGroup {
	tg.Stop()
	tg.Done = false
	tg.sched = s
	tg.id = s.AddTimeout(func() bool {
		tg.Update(float32(s.Frame()))
		return !tg.Done
	}, Frames(1))
	return tg
}

// Stop halts the group where it is.
func (tg *TweenGroup) Stop() {
	if tg.sched != nil {
		tg.sched.RmTimeout(tg.id)
		tg.sched = nil
	}
	tg.Done = true
}

// Target returns the graphic being animated.
func (tg *TweenGroup) Target() *Graphic { return tg.target }

// TweenPos moves g to (x, y).
func TweenPos(g *Graphic, x, y int, seconds float32, fn ease.TweenFunc) *TweenGroup {
	from := []float64{float64(g.X()), float64(g.Y())}
	return newTweenGroup(g, from, []float64{float64(x), float64(y)}, seconds, fn, func(v []float64) {
		g.SetPos(roundInt(v[0]), roundInt(v[1]))
	})
}

// TweenScale rescales g to (sx, sy) about its top-left corner.
func TweenScale(g *Graphic, sx, sy float64, seconds float32, fn ease.TweenFunc) *TweenGroup {
	s := g.Scale()
	return newTweenGroup(g, []float64{s.X, s.Y}, []float64{sx, sy}, seconds, fn, func(v []float64) {
		g.SetScale(v[0], v[1])
	})
}

// TweenOpacity fades g to the given opacity.
func TweenOpacity(g *Graphic, to uint8, seconds float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(g, []float64{float64(g.Opacity())}, []float64{float64(to)}, seconds, fn, func(v []float64) {
		g.Fade(clampByte(v[0]))
	})
}

// TweenAngle rotates g about its centre to the given angle.
func TweenAngle(g *Graphic, to float64, seconds float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(g, []float64{g.Angle()}, []float64{to}, seconds, fn, func(v []float64) {
		g.Rotate(v[0])
	})
}

// TweenColour changes the fill colour of g.
func TweenColour(g *Graphic, to color.Color, seconds float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(g, colourVals(g.Colour()), colourVals(toNRGBA(to)), seconds, fn, func(v []float64) {
		g.Fill(valsColour(v))
	})
}

func colourVals(c color.NRGBA) []float64 {
	return []float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
}

func valsColour(v []float64) color.NRGBA {
	return color.NRGBA{clampByte(v[0]), clampByte(v[1]), clampByte(v[2]), clampByte(v[3])}
}

func clampByte(x float64) uint8 {
	return uint8(min(max(roundInt(x), 0), 255))
}
