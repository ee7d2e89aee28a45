package sapling

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in an input script.
type scriptStep struct {
	Action  string `json:"action"`
	Label   string `json:"label,omitempty"`
	Binding string `json:"binding,omitempty"`
	Frames  int    `json:"frames,omitempty"`

	bd Binding
}

type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// Script plays back injected input and takes screenshots across frames, for
// automated visual testing and demos. Attach it to [Run] through
// [RunConfig.Script] or call [Script.Step] once per frame before
// [EventHandler.Update].
//
// Actions are "tap", "press" and "release" (with a binding as parsed by
// [ParseBinding]), "hold" (a binding held for frames frames), "wait" (frames
// frames) and "screenshot" (with a label).
type Script struct {
	// ScreenshotDir is where screenshot steps write their files.
	ScreenshotDir string

	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON input script.
func LoadScript(data []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sapling: parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("sapling: parse script: no steps")
	}
	for i := range f.Steps {
		st := &f.Steps[i]
		switch st.Action {
		case "tap", "press", "release", "hold":
			bd, err := ParseBinding(st.Binding)
			if err != nil {
				return nil, fmt.Errorf("sapling: parse script: step %d: %w", i, err)
			}
			st.bd = bd
		case "wait", "screenshot":
		default:
			return nil, fmt.Errorf("sapling: parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{ScreenshotDir: "screenshots", steps: f.Steps}, nil
}

// Done reports whether every step has run and all injected input has been
// consumed.
func (r *Script) Done() bool { return r.done }

// Step advances the script by one frame. m may be nil if the script takes no
// screenshots.
func (r *Script) Step(h *EventHandler, m *Manager) error {
	if r.done {
		return nil
	}
	// Let queued input drain before moving on.
	if h.Injected() > 0 {
		return nil
	}
	if r.waitCount > 0 {
		r.waitCount--
		return nil
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return nil
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "screenshot":
		if m == nil {
			return fmt.Errorf("sapling: script step %d: screenshot without a manager", r.cursor-1)
		}
		path, err := m.Screenshot(r.ScreenshotDir, st.Label)
		if err != nil {
			return err
		}
		Logger().Info("script screenshot", "label", st.Label, "path", path)
	case "tap":
		h.InjectTap(st.bd)
	case "press":
		h.InjectPress(st.bd)
	case "release":
		h.InjectRelease(st.bd)
	case "hold":
		h.InjectHold(st.bd, max(st.Frames, 2))
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && h.Injected() == 0 {
		r.done = true
	}
	return nil
}
