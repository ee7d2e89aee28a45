// Package sapling is a software 2D compositing layer with incremental
// dirty-region redraw, for games that draw to a CPU-side framebuffer.
//
// # Quick start
//
// The simplest way to get started is [Run], which opens an [Ebitengine]
// window and game loop for a [World]:
//
//	sched := sapling.NewScheduler(60)
//	m := sapling.NewManagerSize(sched, 640, 480)
//	m.Add(sapling.NewColour(color.NRGBA{80, 180, 255, 255}, image.Rect(100, 100, 140, 140)))
//	sapling.Run(world, sapling.RunConfig{Title: "My Game", Width: 640, Height: 480})
//
// For full control, call [Manager.Draw] yourself and copy the returned
// [Dirty] areas of [Manager.Surface] to the screen.
//
// # Graphics and transforms
//
// A [Graphic] holds an original [Surface] and a pipeline of transforms that
// produce the surface actually drawn. The builtin transforms are fill, crop,
// flip, fade, resize and rotate, in that order:
//
//	g := sapling.NewGraphic(sfc, 10, 10).Crop(image.Rect(0, 0, 16, 16)).Rotate(math.Pi / 4)
//
// Custom transforms are added with [Graphic.Transform] and filters with
// [Graphic.SetFilter]. Transforms run lazily when the graphic is rendered,
// and only from the first stage whose input or arguments changed. Stages
// that can, update only the changed rectangles of their previous result.
//
// # Managers
//
// A [Manager] composites graphics onto a destination surface in layer order,
// higher layers on top. [Manager.Draw] redraws only the areas that changed
// since the last call and skips graphics hidden behind opaque ones above.
// A manager can be drawn inside another with [Manager.AsGraphic], and
// covered with a fading overlay with [Manager.FadeTo].
//
// # Timing
//
// A [Scheduler] runs timeouts in frames or seconds, interpolations driven by
// [Scheduler.Interp], and tweens built on gween. [Run] steps the scheduler
// once per tick, after input handling and world updates and before drawing.
//
// # Layout and tiles
//
// [Grid] and [InfiniteGrid] lay out tiles with gaps. A [Tilemap] draws a grid
// of tile IDs and redraws only tiles that change.
//
// # Resources and input
//
// [ResourceCache] loads and caches images from a file system, and a
// [Watcher] reloads graphics when their files change. An [EventHandler]
// turns key and mouse input into button events, and a [Script] replays
// injected input for automated testing.
//
// [Ebitengine]: https://ebitengine.org
package sapling
