package sapling

import (
	"image"
	"image/color"
)

// Tile ID flag bits, following the Tiled TMX convention.
const (
	TileFlipH    uint32 = 1 << 31 // horizontal flip
	TileFlipV    uint32 = 1 << 30 // vertical flip
	TileFlipD    uint32 = 1 << 29 // diagonal flip (transpose)
	tileFlagMask uint32 = TileFlipH | TileFlipV | TileFlipD
)

// TileEmpty is the tile ID that draws nothing.
const TileEmpty uint32 = 0

// Tilemap is a graphic drawn from a [Grid] of tile IDs. Each ID maps to a
// flat colour or a surface, scaled to its tile if needed. Changing a tile
// redraws only that tile and marks only its rectangle dirty.
type Tilemap struct {
	*Graphic
	grid    *Grid
	tiles   []uint32 // row-major
	colours map[uint32]color.NRGBA
	images  map[uint32]*Surface
	scaled  map[tileImageKey]*Surface
}

type tileImageKey struct {
	id, flags uint32
	size      image.Point
}

// NewTilemap creates an empty tilemap with its top-left corner at (x, y).
func NewTilemap(grid *Grid, x, y int) *Tilemap {
	tm := &Tilemap{
		Graphic: NewGraphic(NewSurface(grid.W(), grid.H()), x, y),
		grid:    grid,
		tiles:   make([]uint32, grid.NCols()*grid.NRows()),
		colours: make(map[uint32]color.NRGBA),
		images:  make(map[uint32]*Surface),
		scaled:  make(map[tileImageKey]*Surface),
	}
	return tm
}

// Grid returns the tile layout.
func (tm *Tilemap) Grid() *Grid { return tm.grid }

// SetTileColour maps id to a flat colour and redraws every tile using it.
func (tm *Tilemap) SetTileColour(id uint32, c color.Color) {
	id &^= tileFlagMask
	delete(tm.images, id)
	tm.colours[id] = toNRGBA(c)
	tm.redrawID(id)
}

// SetTileSurface maps id to a surface and redraws every tile using it.
func (tm *Tilemap) SetTileSurface(id uint32, s *Surface) {
	id &^= tileFlagMask
	delete(tm.colours, id)
	tm.images[id] = s
	for k := range tm.scaled {
		if k.id == id {
			delete(tm.scaled, k)
		}
	}
	tm.redrawID(id)
}

func (tm *Tilemap) index(col, row int) int {
	col = wrap(col, tm.grid.NCols(), "column")
	row = wrap(row, tm.grid.NRows(), "row")
	return row*tm.grid.NCols() + col
}

// Tile returns the tile ID at (col, row), flag bits included.
func (tm *Tilemap) Tile(col, row int) uint32 { return tm.tiles[tm.index(col, row)] }

// Set changes the tile at (col, row). gid may carry flip flag bits.
func (tm *Tilemap) Set(col, row int, gid uint32) {
	i := tm.index(col, row)
	if tm.tiles[i] == gid {
		return
	}
	tm.tiles[i] = gid
	tm.drawTile(col, row, gid)
}

// SetAll sets every tile to gid.
func (tm *Tilemap) SetAll(gid uint32) {
	for i := range tm.tiles {
		tm.tiles[i] = gid
	}
	tm.orig.Fill(Transparent)
	for _, t := range tm.grid.TileRects() {
		tm.paint(t.Rect, gid)
	}
	tm.Graphic.Dirty()
}

// TileAt returns the tile under p, in manager space. Transforms other than
// position are not taken into account.
func (tm *Tilemap) TileAt(p image.Point) (col, row int, ok bool) {
	return tm.grid.TileAt(p.Sub(tm.Pos()))
}

func (tm *Tilemap) redrawID(id uint32) {
	cols := tm.grid.NCols()
	for i, gid := range tm.tiles {
		if gid != TileEmpty && gid&^tileFlagMask == id {
			tm.drawTile(i%cols, i/cols, gid)
		}
	}
}

func (tm *Tilemap) drawTile(col, row int, gid uint32) {
	r := tm.grid.TileRect(col, row)
	tm.orig.Fill(Transparent, r)
	tm.paint(r, gid)
	tm.Graphic.Dirty(r)
}

// paint draws gid into r of the original surface, which must already be clear.
func (tm *Tilemap) paint(r image.Rectangle, gid uint32) {
	id := gid &^ tileFlagMask
	if gid == TileEmpty || r.Empty() {
		return
	}
	if c, ok := tm.colours[id]; ok {
		tm.orig.Fill(c, r)
		return
	}
	s, ok := tm.images[id]
	if !ok {
		return
	}
	s = tm.oriented(s, id, gid&tileFlagMask, r.Size())
	tm.orig.Blit(s, r.Min, s.Bounds(), BlendNone)
}

// oriented returns s flipped per flags and scaled to size, cached per flags
// and size.
func (tm *Tilemap) oriented(s *Surface, id, flags uint32, size image.Point) *Surface {
	key := tileImageKey{id, flags, size}
	if c, ok := tm.scaled[key]; ok {
		return c
	}
	out := s
	if flags&TileFlipD != 0 {
		// Transpose: a quarter turn then a vertical mirror.
		out = FlipSurface(rotateQuarter(out, 1), false, true)
	}
	if flags&(TileFlipH|TileFlipV) != 0 {
		out = FlipSurface(out, flags&TileFlipH != 0, flags&TileFlipV != 0)
	}
	if out.Size() != size {
		out = tm.scaleFn(out, size.X, size.Y)
	}
	tm.scaled[key] = out
	return out
}
