package sapling

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Resources provides decoded images by name. Graphics keep the provider they
// were loaded from so they can be reloaded.
type Resources interface {
	// Image returns the named image, possibly from a cache.
	Image(name string) (*Surface, error)
	// Reload decodes the named image again, replacing any cached copy.
	Reload(name string) (*Surface, error)
}

type sizedKey struct {
	name string
	size image.Point
}

// ResourceCache loads images from a file system and caches them by name and
// by requested size. Names are slash-separated paths within the file system.
type ResourceCache struct {
	fsys   fs.FS
	scale  ScaleFunc
	byName map[string]*Surface
	bySize map[sizedKey]*Surface
	hits   int
	misses int
}

// NewResourceCache creates a cache over fsys.
func NewResourceCache(fsys fs.FS) *ResourceCache {
	return &ResourceCache{
		fsys:   fsys,
		scale:  ScaleSmooth,
		byName: make(map[string]*Surface),
		bySize: make(map[sizedKey]*Surface),
	}
}

// NewResourceDir creates a cache over a directory on disk.
func NewResourceDir(dir string) *ResourceCache {
	return NewResourceCache(os.DirFS(dir))
}

// SetScaleFunc sets the function used for sized images.
func (c *ResourceCache) SetScaleFunc(fn ScaleFunc) {
	if fn == nil {
		fn = ScaleSmooth
	}
	c.scale = fn
}

// Image returns the named image. The result is shared between callers and
// must not be modified; copy it first.
func (c *ResourceCache) Image(name string) (*Surface, error) {
	if s, ok := c.byName[name]; ok {
		c.hits++
		Logger().Debug("resource cache hit", "name", name)
		return s, nil
	}
	c.misses++
	return c.Reload(name)
}

// ImageSize returns the named image scaled to w by h. Scaled copies are
// cached separately from the original.
func (c *ResourceCache) ImageSize(name string, w, h int) (*Surface, error) {
	key := sizedKey{name, image.Pt(w, h)}
	if s, ok := c.bySize[key]; ok {
		c.hits++
		return s, nil
	}
	src, err := c.Image(name)
	if err != nil {
		return nil, err
	}
	s := src
	if src.Size() != key.size {
		s = c.scale(src, w, h)
	}
	c.bySize[key] = s
	return s, nil
}

// Reload decodes the named image from disk, replacing the cached copy and
// dropping scaled copies.
func (c *ResourceCache) Reload(name string) (*Surface, error) {
	s, err := c.load(name)
	if err != nil {
		return nil, err
	}
	c.Drop(name)
	c.byName[name] = s
	return s, nil
}

func (c *ResourceCache) load(name string) (*Surface, error) {
	name = path.Clean(name)
	f, err := c.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
		}
		return nil, fmt.Errorf("sapling: open %s: %w", name, err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sapling: decode %s: %w", name, err)
	}
	Logger().Debug("resource loaded", "name", name, "format", format, "size", img.Bounds().Size())
	return SurfaceFromImage(img), nil
}

// Drop removes the named image and its scaled copies from the cache.
func (c *ResourceCache) Drop(name string) {
	delete(c.byName, name)
	for k := range c.bySize {
		if k.name == name {
			delete(c.bySize, k)
		}
	}
}

// Cached reports whether the named image is cached.
func (c *ResourceCache) Cached(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Stats returns the number of cache hits and misses.
func (c *ResourceCache) Stats() (hits, misses int) { return c.hits, c.misses }
