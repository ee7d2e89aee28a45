package sapling

import (
	"encoding/json"
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region describes a named sub-rectangle within an atlas page.
type Region struct {
	Page     int             // index into the atlas pages
	Rect     image.Rectangle // area on the page, as stored
	Original image.Point     // untrimmed size as authored
	Offset   image.Point     // trim offset within the untrimmed size
	Rotated  bool            // stored 90 degrees clockwise on the page
}

// Atlas holds one or more page surfaces and a map of named regions.
type Atlas struct {
	Pages   []*Surface
	regions map[string]Region
}

// Region returns the named region.
func (a *Atlas) Region(name string) (Region, bool) {
	r, ok := a.regions[name]
	return r, ok
}

// Len returns the number of regions.
func (a *Atlas) Len() int { return len(a.regions) }

// Surface returns a new surface holding the named region, unrotated and with
// its trimmed border restored as transparent pixels.
func (a *Atlas) Surface(name string) (*Surface, bool) {
	r, ok := a.regions[name]
	if !ok || r.Page < 0 || r.Page >= len(a.Pages) {
		return nil, false
	}
	page := a.Pages[r.Page]
	part := blankLike(page, r.Rect.Dx(), r.Rect.Dy())
	part.Blit(page, image.Point{}, r.Rect, BlendNone)
	if r.Rotated {
		part = rotateQuarter(part, 1)
	}
	if r.Offset == (image.Point{}) && (r.Original == part.Size() || r.Original == image.Point{}) {
		return part, true
	}
	out := NewSurface(r.Original.X, r.Original.Y)
	out.Blit(part, r.Offset, part.Bounds(), BlendNone)
	return out, true
}

// Graphic creates a graphic showing the named region at (x, y).
func (a *Atlas) Graphic(name string, x, y int) (*Graphic, error) {
	s, ok := a.Surface(name)
	if !ok {
		return nil, fmt.Errorf("%w: atlas region %q", ErrResourceNotFound, name)
	}
	g := NewGraphic(s, x, y)
	g.Name = name
	return g, nil
}

// LoadAtlas parses TexturePacker JSON data and associates the given page
// surfaces. Supports both the hash format (single "frames" object) and the
// array format ("textures" array with per-page frame lists).
func LoadAtlas(jsonData []byte, pages []*Surface) (*Atlas, error) {
	var doc atlasDoc
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("sapling: failed to parse atlas JSON: %w", err)
	}
	return doc.atlas(pages)
}

// LoadAtlasFile reads atlas metadata from fsys, JSON or YAML by extension, and
// loads each page image named in it through res. Page names are relative to
// the metadata file.
func LoadAtlasFile(fsys fs.FS, name string, res Resources) (*Atlas, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("sapling: read atlas %s: %w", name, err)
	}
	var doc atlasDoc
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("sapling: failed to parse atlas %s: %w", name, err)
	}
	var images []string
	if doc.Textures != nil {
		for _, t := range doc.Textures {
			images = append(images, t.Image)
		}
	} else {
		images = []string{doc.Meta.Image}
	}
	pages := make([]*Surface, len(images))
	for i, img := range images {
		if img == "" {
			return nil, fmt.Errorf("sapling: atlas %s: page %d has no image", name, i)
		}
		if pages[i], err = res.Image(path.Join(path.Dir(name), img)); err != nil {
			return nil, fmt.Errorf("sapling: atlas %s: %w", name, err)
		}
	}
	return doc.atlas(pages)
}

// --- metadata structure types ---

type atlasRect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

type atlasSize struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

type atlasFrame struct {
	Frame            atlasRect `json:"frame" yaml:"frame"`
	Rotated          bool      `json:"rotated" yaml:"rotated"`
	Trimmed          bool      `json:"trimmed" yaml:"trimmed"`
	SpriteSourceSize atlasRect `json:"spriteSourceSize" yaml:"spriteSourceSize"`
	SourceSize       atlasSize `json:"sourceSize" yaml:"sourceSize"`
}

type atlasPage struct {
	Image  string                `json:"image" yaml:"image"`
	Frames map[string]atlasFrame `json:"frames" yaml:"frames"`
}

type atlasDoc struct {
	Frames   map[string]atlasFrame `json:"frames" yaml:"frames"`
	Textures []atlasPage           `json:"textures" yaml:"textures"`
	Meta     struct {
		Image string `json:"image" yaml:"image"`
	} `json:"meta" yaml:"meta"`
}

func (d *atlasDoc) atlas(pages []*Surface) (*Atlas, error) {
	a := &Atlas{Pages: pages, regions: make(map[string]Region)}
	switch {
	case d.Textures != nil:
		for i, tex := range d.Textures {
			for name, f := range tex.Frames {
				a.regions[name] = frameToRegion(f, i)
			}
		}
	case d.Frames != nil:
		for name, f := range d.Frames {
			a.regions[name] = frameToRegion(f, 0)
		}
	default:
		return nil, fmt.Errorf("sapling: atlas has neither \"frames\" nor \"textures\" key")
	}
	return a, nil
}

func frameToRegion(f atlasFrame, page int) Region {
	return Region{
		Page:     page,
		Rect:     image.Rect(f.Frame.X, f.Frame.Y, f.Frame.X+f.Frame.W, f.Frame.Y+f.Frame.H),
		Original: image.Pt(f.SourceSize.W, f.SourceSize.H),
		Offset:   image.Pt(f.SpriteSourceSize.X, f.SpriteSourceSize.Y),
		Rotated:  f.Rotated,
	}
}
