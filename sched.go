package sapling

import (
	"maps"
	"slices"
)

// DefaultFPS is the frame rate used when none is given.
const DefaultFPS = 60

// Delay is a length of time measured either in seconds, which follows FPS
// changes, or in frames, which does not. Fractional parts carry over between
// repeats.
type Delay struct {
	n      float64
	frames bool
}

// Seconds returns a delay of s seconds.
func Seconds(s float64) Delay { return Delay{n: s} }

// Frames returns a delay of f frames.
func Frames(f float64) Delay { return Delay{n: f, frames: true} }

// TimeoutOption configures a timeout.
type TimeoutOption func(*timeout)

// Repeat sets the delay between calls after the first. By default the first
// delay is reused.
func Repeat(d Delay) TimeoutOption {
	return func(t *timeout) { t.repeat = d }
}

type timeout struct {
	remain Delay
	repeat Delay
	cb     func() bool
}

// Scheduler runs timeouts once per frame. Its time is counted in frames, so
// it is unaffected by how long a frame really takes.
type Scheduler struct {
	fps      float64
	frame    float64 // seconds per frame
	frames   int64
	timeouts map[int]*timeout
	nextID   int
}

// NewScheduler creates a scheduler running at fps frames per second. A
// non-positive fps uses DefaultFPS.
func NewScheduler(fps float64) *Scheduler {
	s := &Scheduler{timeouts: make(map[int]*timeout)}
	s.SetFPS(fps)
	return s
}

// FPS returns the frame rate.
func (s *Scheduler) FPS() float64 { return s.fps }

// SetFPS changes the frame rate. Delays given in seconds follow the change.
func (s *Scheduler) SetFPS(fps float64) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	s.fps = fps
	s.frame = 1 / fps
}

// Frame returns the length of a frame in seconds.
func (s *Scheduler) Frame() float64 { return s.frame }

// Frames returns how many frames have run.
func (s *Scheduler) Frames() int64 { return s.frames }

// Pending returns the number of scheduled timeouts.
func (s *Scheduler) Pending() int { return len(s.timeouts) }

// AddTimeout calls cb once d has passed. If cb returns true it is called
// again after the repeat delay. The returned ID is unique for the lifetime of
// the scheduler.
func (s *Scheduler) AddTimeout(cb func() bool, d Delay, opts ...TimeoutOption) int {
	t := &timeout{remain: d, repeat: d, cb: cb}
	for _, o := range opts {
		o(t)
	}
	s.nextID++
	s.timeouts[s.nextID] = t
	return s.nextID
}

// Has reports whether the timeout with this ID is still scheduled.
func (s *Scheduler) Has(id int) bool {
	_, ok := s.timeouts[id]
	return ok
}

// RmTimeout cancels timeouts. Unknown IDs are ignored.
func (s *Scheduler) RmTimeout(ids ...int) {
	for _, id := range ids {
		delete(s.timeouts, id)
	}
}

// Update advances one frame, calling every timeout that is due in the order
// they were added. Timeouts added during the update are first considered on
// the next frame.
func (s *Scheduler) Update() {
	s.frames++
	for _, id := range slices.Sorted(maps.Keys(s.timeouts)) {
		t, ok := s.timeouts[id]
		if !ok {
			// removed by an earlier callback
			continue
		}
		if t.remain.frames {
			t.remain.n--
		} else {
			t.remain.n -= s.frame
		}
		if t.remain.n > 0 {
			continue
		}
		if t.cb() {
			if t.remain.frames == t.repeat.frames {
				t.remain.n += t.repeat.n
			} else {
				t.remain = t.repeat
			}
		} else {
			delete(s.timeouts, id)
		}
	}
}

// InterpOptions bound an interpolation started by [Scheduler.Interp].
type InterpOptions struct {
	// TMax ends the interpolation once this many seconds have passed. Zero
	// means no limit.
	TMax float64
	// When Bounded is set, values are clamped to [Min, Max] per component and
	// the interpolation ends the first time any component is clamped.
	Bounded  bool
	Min, Max float64
	// End is called when the interpolation ends by itself, but not when it is
	// cancelled with RmTimeout. A non-nil result is passed to set.
	End func() []float64
}

// Interp varies a value over time. Every frame get is called with the elapsed
// time in seconds; it returns the value and whether to continue. set is only
// called when the value changes. The returned ID cancels the interpolation
// through [Scheduler.RmTimeout].
func (s *Scheduler) Interp(get func(t float64) ([]float64, bool), set func(v []float64), opts InterpOptions) int {
	var elapsed float64
	var last []float64
	return s.AddTimeout(func() bool {
		elapsed += s.frame
		v, ok := get(elapsed)
		done := !ok
		if ok && opts.TMax > 0 && elapsed > opts.TMax {
			done = true
		} else if ok {
			if opts.Bounded {
				v = slices.Clone(v)
				for i, x := range v {
					if x < opts.Min || x > opts.Max {
						v[i] = min(max(x, opts.Min), opts.Max)
						done = true
					}
				}
			}
			if !slices.Equal(v, last) {
				set(v)
				last = v
			}
		}
		if !done {
			return true
		}
		if opts.End != nil {
			if v := opts.End(); v != nil && !slices.Equal(v, last) {
				set(v)
			}
		}
		return false
	}, Frames(1))
}
