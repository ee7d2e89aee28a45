package sapling

// injectedEvent is a single synthetic button transition.
type injectedEvent struct {
	in      Input
	pressed bool
	mods    KeyModifiers
}

// InjectPress queues a press of the binding's input with its modifiers held.
// One queued event is consumed per [EventHandler.Update]; while any are
// queued the real input source is not read.
func (h *EventHandler) InjectPress(bd Binding) {
	h.inject = append(h.inject, injectedEvent{in: bd.Input, pressed: true, mods: bd.Mods})
}

// InjectRelease queues a release of the binding's input.
func (h *EventHandler) InjectRelease(bd Binding) {
	h.inject = append(h.inject, injectedEvent{in: bd.Input, mods: bd.Mods})
}

// InjectTap queues a press followed by a release. Consumes two frames.
func (h *EventHandler) InjectTap(bd Binding) {
	h.InjectPress(bd)
	h.InjectRelease(bd)
}

// InjectHold queues a press, frames-2 frames held and a release, consuming
// frames frames in total. Minimum frames is 2.
func (h *EventHandler) InjectHold(bd Binding, frames int) {
	h.InjectPress(bd)
	for i := 0; i < frames-2; i++ {
		// A repeated press of a held input changes nothing but the frame.
		h.inject = append(h.inject, injectedEvent{in: Input{Device: bd.Device, Code: -1}, pressed: true, mods: bd.Mods})
	}
	h.InjectRelease(bd)
}

// Injected returns the number of queued synthetic events.
func (h *EventHandler) Injected() int { return len(h.inject) }

// popInjected removes the next synthetic event and applies it to the
// injected held state.
func (h *EventHandler) popInjected() (injectedEvent, bool) {
	if len(h.inject) == 0 {
		return injectedEvent{}, false
	}
	evt := h.inject[0]
	copy(h.inject, h.inject[1:])
	h.inject = h.inject[:len(h.inject)-1]
	if evt.in.Code >= 0 {
		h.virtual[evt.in] = evt.pressed
	}
	return evt, true
}
