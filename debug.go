package sapling

import (
	"log/slog"
	"time"
)

// drawStats holds per-draw timing and redraw metrics.
// Only logged when the manager's debug mode is on.
type drawStats struct {
	renderTime  time.Duration
	occludeTime time.Duration
	blitTime    time.Duration
	graphics    int
	rects       int
	area        int
	blits       int
}

// debugLog logs draw statistics at debug level and keeps the last ones for
// [Manager.LastDrawStats].
func (m *Manager) debugLog(stats drawStats) {
	m.stats = stats
	if !m.debug {
		return
	}
	Logger().Debug("draw",
		slog.Int("graphics", stats.graphics),
		slog.Int("rects", stats.rects),
		slog.Int("area", stats.area),
		slog.Int("blits", stats.blits),
		slog.Duration("render", stats.renderTime),
		slog.Duration("occlude", stats.occludeTime),
		slog.Duration("blit", stats.blitTime),
	)
}

// DrawStats summarises the most recent draw.
type DrawStats struct {
	Graphics int // graphics considered
	Rects    int // disjoint rectangles redrawn
	Area     int // pixels redrawn
	Blits    int // blits issued, after occlusion

	Render  time.Duration // rendering graphics and collecting their changes
	Occlude time.Duration // splitting changed areas between graphics
	Blit    time.Duration // painting the destination
}

// LastDrawStats returns statistics for the most recent draw.
func (m *Manager) LastDrawStats() DrawStats {
	return DrawStats{
		Graphics: m.stats.graphics,
		Rects:    m.stats.rects,
		Area:     m.stats.area,
		Blits:    m.stats.blits,
		Render:   m.stats.renderTime,
		Occlude:  m.stats.occludeTime,
		Blit:     m.stats.blitTime,
	}
}
