package sapling

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResources(t *testing.T) (*ResourceCache, fstest.MapFS) {
	t.Helper()
	fsys := fstest.MapFS{
		"tiles/grass.png": {Data: encodePNG(t, pattern(4, 2).Image())},
		"broken.png":      {Data: []byte("not an image")},
	}
	return NewResourceCache(fsys), fsys
}

func TestResourceCacheImage(t *testing.T) {
	c, _ := testResources(t)
	s, err := c.Image("tiles/grass.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 2), s.Size())
	assert.False(t, s.HasAlpha())
	assertSameSurface(t, s, pattern(4, 2))

	again, err := c.Image("tiles/grass.png")
	require.NoError(t, err)
	assert.Same(t, s, again)
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.True(t, c.Cached("tiles/grass.png"))
}

func TestResourceCacheImageSize(t *testing.T) {
	c, _ := testResources(t)
	c.SetScaleFunc(ScaleNearest)
	big, err := c.ImageSize("tiles/grass.png", 8, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 4), big.Size())
	assert.Equal(t, pattern(4, 2).At(1, 1), big.At(3, 3))

	again, err := c.ImageSize("tiles/grass.png", 8, 4)
	require.NoError(t, err)
	assert.Same(t, big, again)

	orig, err := c.Image("tiles/grass.png")
	require.NoError(t, err)
	same, err := c.ImageSize("tiles/grass.png", 4, 2)
	require.NoError(t, err)
	assert.Same(t, orig, same, "unscaled size should share the original")
}

func TestResourceCacheReloadAndDrop(t *testing.T) {
	c, fsys := testResources(t)
	old, err := c.Image("tiles/grass.png")
	require.NoError(t, err)
	sized, err := c.ImageSize("tiles/grass.png", 2, 2)
	require.NoError(t, err)

	fsys["tiles/grass.png"] = &fstest.MapFile{Data: encodePNG(t, solid(3, 3, red).Image())}
	cached, err := c.Image("tiles/grass.png")
	require.NoError(t, err)
	assert.Same(t, old, cached, "Image should not notice file changes")

	s, err := c.Reload("tiles/grass.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 3), s.Size())
	resized, err := c.ImageSize("tiles/grass.png", 2, 2)
	require.NoError(t, err)
	assert.NotSame(t, sized, resized, "scaled copies survived a reload")

	c.Drop("tiles/grass.png")
	assert.False(t, c.Cached("tiles/grass.png"))
	_, misses := c.Stats()
	_, err = c.Image("tiles/grass.png")
	require.NoError(t, err)
	_, misses2 := c.Stats()
	assert.Equal(t, misses+1, misses2)
}

func TestResourceCacheErrors(t *testing.T) {
	c, _ := testResources(t)
	_, err := c.Image("nope.png")
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.False(t, c.Cached("nope.png"))

	_, err = c.Image("broken.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResourceNotFound)
	assert.Contains(t, err.Error(), "decode broken.png")

	_, err = c.ImageSize("nope.png", 1, 1)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = c.Reload("nope.png")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestResourceDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sprites"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sprites", "a.png"), encodePNG(t, solid(2, 3, green).Image()), 0o644))

	c := NewResourceDir(dir)
	s, err := c.Image("sprites/a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(2, 3), s.Size())
	assert.Equal(t, green, s.At(1, 2))

	s, err = c.Image("sprites/../sprites/a.png")
	require.NoError(t, err, "names are cleaned before opening")
	assert.Equal(t, image.Pt(2, 3), s.Size())
}
