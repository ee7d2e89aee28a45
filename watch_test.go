package sapling

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir, name string, s *Surface) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	tmp := p + ".tmp"
	require.NoError(t, os.WriteFile(tmp, encodePNG(t, s.Image()), 0o644))
	require.NoError(t, os.Rename(tmp, p))
}

func newTestWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWatcherPollReloads(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "sprites/a.png", solid(2, 2, red))
	res := NewResourceDir(dir)
	g, err := NewGraphicFromResource(res, "sprites/a.png", 0, 0)
	require.NoError(t, err)
	other, err := NewGraphicFromResource(res, "sprites/a.png", 5, 5)
	require.NoError(t, err)
	writeImage(t, dir, "sprites/a.png", solid(3, 3, blue))

	w := newTestWatcher(t, dir)
	require.NoError(t, w.Track(g))
	require.NoError(t, w.Track(g))
	require.NoError(t, w.Track(other))
	assert.Equal(t, 0, w.Poll())

	w.notify("sprites/a.png")
	w.notify("sprites/other.png")
	assert.Equal(t, 2, w.Poll())
	assert.Equal(t, image.Pt(3, 3), g.Size())
	assert.Equal(t, blue, g.Surface().At(2, 2))
	assert.Equal(t, image.Pt(8, 8), other.Rect().Max)
	assert.Equal(t, 0, w.Poll())

	w.Untrack(other)
	w.Untrack(other)
	w.notify("sprites/a.png")
	assert.Equal(t, 1, w.Poll())
	w.Untrack(g)
	w.notify("sprites/a.png")
	assert.Equal(t, 0, w.Poll())
}

func TestWatcherFailedReloadKeepsImage(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "b.png", solid(2, 2, green))
	g, err := NewGraphicFromResource(NewResourceDir(dir), "b.png", 0, 0)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("garbage"), 0o644))

	w := newTestWatcher(t, dir)
	require.NoError(t, w.Track(g))
	w.notify("b.png")
	assert.Equal(t, 0, w.Poll())
	assert.Equal(t, image.Pt(2, 2), g.Size())
	assert.Equal(t, green, g.Surface().At(0, 0))
}

func TestWatcherTrackNeedsResource(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	assert.Error(t, w.Track(NewGraphic(pattern(2, 2), 0, 0)))
}

func TestWatcherFileEvents(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "c.png", solid(2, 2, red))
	g, err := NewGraphicFromResource(NewResourceDir(dir), "c.png", 0, 0)
	require.NoError(t, err)
	w := newTestWatcher(t, dir)
	require.NoError(t, w.Track(g))

	writeImage(t, dir, "c.png", solid(4, 1, blue))
	require.Eventually(t, func() bool { return w.Poll() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, image.Pt(4, 1), g.Size())
}
