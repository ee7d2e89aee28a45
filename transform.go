package sapling

import (
	"fmt"
	"image"
	"slices"
)

// stageKind identifies a builtin stage or a custom one.
type stageKind uint8

const (
	stageCrop stageKind = iota
	stageFlip
	stageFade
	stageResize
	stageRotate
	stageFill
	stageCustom
)

var stageNames = [...]string{
	stageCrop:   "crop",
	stageFlip:   "flip",
	stageFade:   "fade",
	stageResize: "resize",
	stageRotate: "rotate",
	stageFill:   "fill",
}

// builtinKind returns the kind for a builtin stage name.
func builtinKind(name string) (stageKind, bool) {
	for k, n := range stageNames {
		if n == name {
			return stageKind(k), true
		}
	}
	return stageCustom, false
}

// Builtin stage orders. Rotation always stays last among builtins.
var (
	graphicStages = []stageKind{stageCrop, stageFlip, stageFade, stageResize, stageRotate}
	colourStages  = []stageKind{stageFill, stageCrop, stageFlip, stageFade, stageResize, stageRotate}
)

// TransformFunc is a custom pipeline stage. src is the surface entering the
// stage and must not be modified; dst is the stage's previous result, or nil
// if it never ran. dirty describes what changed in src since the stage last
// ran, last holds the arguments of the previous run (nil if none) and args the
// current arguments.
//
// A stage returns its result and what changed in it:
//   - full: a new surface and DirtyAll
//   - partial: dst, modified in place, and the changed rectangles
//   - no-op: src and dirty unchanged
type TransformFunc func(src, dst *Surface, dirty Dirty, last, args any) (*Surface, Dirty)

// stage is one record in a graphic's pipeline.
type stage struct {
	name string
	kind stageKind
	fn   TransformFunc

	on     bool // has arguments; inactive builtins pass their input through
	queued bool // args changed since the last render
	args   any

	last     any // args the cached result was produced with
	src, dst *Surface

	dstSize     image.Point // builtins: expected output size for args
	apply, undo func(*Graphic)
}

func (st *stage) builtin() bool { return st.kind != stageCustom }

func newStages(kinds []stageKind) []*stage {
	stages := make([]*stage, len(kinds))
	for i, k := range kinds {
		stages[i] = &stage{name: stageNames[k], kind: k}
	}
	return stages
}

// TransformOption positions a stage in the pipeline.
type TransformOption func(*placement)

type placement struct {
	index         int
	hasIndex      bool
	before, after string
}

// AtIndex inserts the stage at index i of [Graphic.Transforms].
func AtIndex(i int) TransformOption {
	return func(p *placement) { p.index, p.hasIndex = i, true }
}

// Before inserts the stage before the named one. If that stage does not
// exist, the default position is used.
func Before(name string) TransformOption {
	return func(p *placement) { p.before = name }
}

// After inserts the stage after the named one. If that stage does not exist,
// the default position is used.
func After(name string) TransformOption {
	return func(p *placement) { p.after = name }
}

// Transform adds or updates a custom stage. If a stage with this name exists
// it is updated and, unless an option says otherwise, stays where it is; new
// stages are appended. Builtin names and nil functions panic.
func (g *Graphic) Transform(name string, fn TransformFunc, args any, opts ...TransformOption) *Graphic {
	if _, ok := builtinKind(name); ok {
		panic(fmt.Sprintf("sapling: %q is a builtin transform", name))
	}
	if fn == nil {
		panic("sapling: nil transform function")
	}
	st := g.stage(name)
	if st == nil {
		st = &stage{name: name, kind: stageCustom}
	}
	st.fn = fn
	g.queue(st, args, opts)
	return g
}

// transformBuiltin queues new arguments for a builtin stage.
func (g *Graphic) transformBuiltin(kind stageKind, args any, opts ...TransformOption) *Graphic {
	st := g.stage(stageNames[kind])
	if st == nil {
		// fill on a plain graphic goes first
		st = &stage{name: stageNames[kind], kind: kind}
		opts = append([]TransformOption{AtIndex(0)}, opts...)
	}
	g.queue(st, args, opts)
	return g
}

// queue moves st to its requested position and records new arguments. Side
// effects of every stage from the affected position onward are undone and
// reapplied so bookkeeping always reflects the queued state.
func (g *Graphic) queue(st *stage, args any, opts []TransformOption) {
	var p placement
	for _, o := range opts {
		o(&p)
	}
	idx := g.stageIndex(st.name)
	if idx >= 0 {
		g.undoFrom(idx)
		g.stages = slices.Delete(g.stages, idx, idx+1)
		g.applyFrom(idx)
		g.markFrom(idx)
	}

	i := len(g.stages)
	if idx >= 0 {
		i = idx
	}
	switch {
	case p.hasIndex:
		if p.index < 0 || p.index > len(g.stages) {
			panic(fmt.Sprintf("sapling: transform position %d out of range [0, %d]", p.index, len(g.stages)))
		}
		i = p.index
	case p.before != "":
		if j := g.stageIndex(p.before); j >= 0 {
			i = j
		}
	case p.after != "":
		if j := g.stageIndex(p.after); j >= 0 {
			i = j + 1
		}
	}

	g.undoFrom(i)
	g.stages = slices.Insert(g.stages, i, st)
	st.args, st.on, st.queued = args, true, true
	g.applyFrom(i)
	g.markFrom(i)
}

// Retransform forces the named stage to recompute its result on the next
// render, for example after its scale or rotate function changes.
func (g *Graphic) Retransform(name string) *Graphic {
	i := g.stageIndex(name)
	if i < 0 || !g.stages[i].on {
		return g
	}
	st := g.stages[i]
	st.queued = true
	st.last = nil
	g.markFrom(i)
	return g
}

// Untransform removes the named stage. Builtin stages stay in the pipeline as
// no-ops; custom stages are deleted. Unknown names are ignored.
func (g *Graphic) Untransform(name string) *Graphic {
	i := g.stageIndex(name)
	if i < 0 || !g.stages[i].on {
		return g
	}
	st := g.stages[i]
	g.undoFrom(i)
	st.on, st.queued, st.args = false, false, nil
	st.last, st.src, st.dst = nil, nil, nil
	st.apply, st.undo = nil, nil
	if !st.builtin() {
		g.stages = slices.Delete(g.stages, i, i+1)
	}
	g.applyFrom(i)
	g.markFrom(i)
	return g
}

// Transforms returns the stage names in pipeline order, including inactive
// builtins.
func (g *Graphic) Transforms() []string {
	names := make([]string, len(g.stages))
	for i, st := range g.stages {
		names[i] = st.name
	}
	return names
}

// LastTransformArgs returns the most recent arguments given to the named
// stage. Builtin stages return their typed args (CropArgs, FadeArgs and so
// on). The result is false if the stage is not active.
func (g *Graphic) LastTransformArgs(name string) (any, bool) {
	st := g.stage(name)
	if st == nil || !st.on {
		return nil, false
	}
	return st.args, true
}

// SurfaceBeforeTransform renders the graphic and returns the surface that
// enters the named stage. The result is false for unknown stages.
func (g *Graphic) SurfaceBeforeTransform(name string) (*Surface, bool) {
	i := g.stageIndex(name)
	if i < 0 {
		return nil, false
	}
	g.Render()
	for j := i - 1; j >= 0; j-- {
		if st := g.stages[j]; st.on && st.dst != nil {
			return st.dst, true
		}
	}
	return g.orig, true
}

// SizeBeforeTransform returns the size entering the named stage without
// rendering. The result is false for unknown stages.
func (g *Graphic) SizeBeforeTransform(name string) (image.Point, bool) {
	i := g.stageIndex(name)
	if i < 0 {
		return image.Point{}, false
	}
	return g.sizeBefore(i), true
}

func (g *Graphic) stageIndex(name string) int {
	for i, st := range g.stages {
		if st.name == name {
			return i
		}
	}
	return -1
}

func (g *Graphic) stage(name string) *stage {
	if i := g.stageIndex(name); i >= 0 {
		return g.stages[i]
	}
	return nil
}

// outSize returns the expected output size of an active stage given its
// input size. Rotation and custom stages only know theirs after running.
func (st *stage) outSize(in image.Point) image.Point {
	if st.builtin() && st.kind != stageRotate {
		return st.dstSize
	}
	if !st.queued && st.dst != nil {
		return st.dst.Size()
	}
	return in
}

// sizeBefore returns the expected size of the surface entering stage i.
func (g *Graphic) sizeBefore(i int) image.Point {
	size := g.orig.Size()
	for _, st := range g.stages[:i] {
		if st.on {
			size = st.outSize(size)
		}
	}
	return size
}

// undoFrom undoes modifiers of stages i onward, last first.
func (g *Graphic) undoFrom(i int) {
	for j := len(g.stages) - 1; j >= i; j-- {
		if st := g.stages[j]; st.on && st.undo != nil {
			st.undo(g)
		}
	}
}

// applyFrom regenerates and applies modifiers of stages i onward.
func (g *Graphic) applyFrom(i int) {
	size := g.sizeBefore(i)
	for _, st := range g.stages[i:] {
		if !st.on {
			continue
		}
		if st.builtin() {
			st.apply, st.undo, st.dstSize = genMods(st.kind, size, st.args)
			st.apply(g)
		}
		size = st.outSize(size)
	}
}

func (g *Graphic) markFrom(i int) {
	if !g.pending || i < g.renderFrom {
		g.renderFrom = i
	}
	g.pending = true
}

// Render recomputes the final surface from the original surface and the
// pipeline. Only stages at or after the first change are rerun. Calling it
// again without intervening changes does nothing.
func (g *Graphic) Render() {
	if !g.pending && g.origDirty.IsNone() {
		return
	}
	d := g.origDirty
	from := len(g.stages)
	if g.pending {
		from = g.renderFrom
	}
	if !d.IsNone() {
		from = 0
	}
	g.origDirty, g.pending = DirtyNone(), false

	sfc := g.orig
	var beforeRot *Surface
	var rot *stage
	for j, st := range g.stages {
		if st.kind == stageRotate {
			beforeRot, rot = sfc, st
		}
		if !st.on {
			continue
		}
		if j < from && st.dst != nil {
			sfc = st.dst
			continue
		}
		in := d
		if st.src != nil && st.src != sfc {
			in = DirtyAll()
		}
		var last any
		if st.dst != nil {
			last = st.last
		}
		out, nd := g.runStage(st, sfc, st.dst, in, last)
		ref := st.dst
		if ref == nil {
			ref = sfc
		}
		if out != ref {
			nd = DirtyAll()
		}
		if !nd.IsNone() || st.dst == nil {
			st.last = st.args
		}
		st.src, st.dst, st.queued = sfc, out, false
		sfc, d = out, nd
	}
	if beforeRot == nil {
		beforeRot = sfc
	}
	if sfc != g.surface {
		d = DirtyAll()
	}

	g.rotOffset = image.Point{}
	if rot != nil && rot.on && rot.dst != nil && rot.dst != rot.src {
		a := rot.last.(RotateArgs)
		g.rotOffset = rotationOffset(a.Angle, a.pivot(beforeRot.Size()), beforeRot.Size(), rot.dst.Size())
	}

	if !d.IsNone() {
		g.dirty = g.dirty.Combine(d)
		g.surface = sfc
		g.opaque = !sfc.HasAlpha()
		g.rect = image.Rectangle{Min: g.rect.Min, Max: g.rect.Min.Add(beforeRot.Size())}
	}
}

// rotationOffset returns where the top-left corner of a rotated surface must
// go, relative to the unrotated one, for the pivot to stay fixed on screen.
func rotationOffset(angle float64, about Vec2, before, after image.Point) image.Point {
	c := Vec2{float64(before.X) / 2, float64(before.Y) / 2}
	v := c.Sub(about).rotate(angle)
	aboutNew := Vec2{float64(after.X)/2 - v.X, float64(after.Y)/2 - v.Y}
	return about.Sub(aboutNew).Round()
}
