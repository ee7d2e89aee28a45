package sapling

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// ErrQuit is returned from [World.Update] to end [Run] without error.
var ErrQuit = errors.New("sapling: quit")

// World is a running game state: per-frame logic and the manager it draws.
type World interface {
	// Update advances game logic by one frame. It runs before the scheduler
	// steps and before drawing.
	Update() error
	// Manager returns the manager to draw. It may change between frames.
	Manager() *Manager
}

// RunConfig configures [Run].
type RunConfig struct {
	Title         string
	Width, Height int
	ShowFPS       bool

	// Events, if set, is updated at the start of every frame.
	Events *EventHandler
	// Watcher, if set, is polled at the start of every frame.
	Watcher *Watcher
	// Script, if set, feeds injected input to Events. Run ends when it is
	// done if ExitAfterScript is set.
	Script          *Script
	ExitAfterScript bool
}

// RunConfig returns the window settings from c.
func (c Config) RunConfig() RunConfig {
	return RunConfig{Title: c.Title, Width: c.Width, Height: c.Height, ShowFPS: c.ShowFPS}
}

// Run opens a window and runs world until it returns [ErrQuit] or another
// error, or the window is closed. Each tick handles input, updates the world
// and steps its manager's scheduler; each frame draws the manager and copies
// only the changed areas to the window.
func Run(world World, cfg RunConfig) error {
	g := &game{world: world, cfg: cfg}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if m := world.Manager(); m != nil {
		ebiten.SetTPS(int(math.Round(m.Scheduler().FPS())))
	}
	Logger().Info("running", "title", cfg.Title, "size", image.Pt(cfg.Width, cfg.Height))
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("sapling: run: %w", err)
	}
	return nil
}

// game adapts a World to ebiten.Game.
type game struct {
	world  World
	cfg    RunConfig
	canvas *ebiten.Image
	shown  *Manager
	buf    []byte
}

func (g *game) Update() error {
	if g.cfg.Script != nil && g.cfg.Events != nil {
		if err := g.cfg.Script.Step(g.cfg.Events, g.world.Manager()); err != nil {
			return err
		}
		if g.cfg.ExitAfterScript && g.cfg.Script.Done() {
			return ebiten.Termination
		}
	}
	if g.cfg.Events != nil {
		g.cfg.Events.Update()
	}
	if g.cfg.Watcher != nil {
		g.cfg.Watcher.Poll()
	}
	if err := g.world.Update(); err != nil {
		if errors.Is(err, ErrQuit) {
			return ebiten.Termination
		}
		return err
	}
	if m := g.world.Manager(); m != nil {
		m.Scheduler().Update()
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	m := g.world.Manager()
	if m == nil || m.Surface() == nil {
		return
	}
	d := m.Draw()
	src := m.Surface()
	if g.canvas == nil || g.shown != m || g.canvas.Bounds().Size() != src.Size() {
		if g.canvas != nil {
			g.canvas.Deallocate()
		}
		g.canvas = ebiten.NewImage(src.W(), src.H())
		g.shown = m
		d = DirtyAll()
	}
	rects := d.Rects()
	if d.IsAll() {
		rects = []image.Rectangle{src.Bounds()}
	}
	for _, r := range rects {
		if r = r.Intersect(src.Bounds()); r.Empty() {
			continue
		}
		g.buf = packPremultiplied(g.buf[:0], src.Image(), r)
		g.canvas.SubImage(r).(*ebiten.Image).WritePixels(g.buf)
	}
	screen.DrawImage(g.canvas, nil)
	if g.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if m := g.world.Manager(); m != nil && m.Surface() != nil {
		return m.Surface().W(), m.Surface().H()
	}
	return g.cfg.Width, g.cfg.Height
}

// packPremultiplied appends the pixels of r in img to buf as tightly packed
// premultiplied RGBA, the layout ebiten expects.
func packPremultiplied(buf []byte, img *image.NRGBA, r image.Rectangle) []byte {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		row := img.Pix[i : i+4*r.Dx()]
		for x := 0; x < len(row); x += 4 {
			a := uint32(row[x+3])
			if a == 255 {
				buf = append(buf, row[x:x+4]...)
				continue
			}
			buf = append(buf,
				uint8(uint32(row[x])*a/255),
				uint8(uint32(row[x+1])*a/255),
				uint8(uint32(row[x+2])*a/255),
				uint8(a))
		}
	}
	return buf
}
