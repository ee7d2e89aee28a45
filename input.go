package sapling

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft   MouseButton = iota // primary (left) mouse button
	MouseButtonRight                     // secondary (right) mouse button
	MouseButtonMiddle                    // middle mouse button (scroll wheel click)
)

var mouseButtonNames = [...]string{"left", "right", "middle"}

// KeyModifiers is a bitmask of keyboard modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt key
	ModMeta                           // Meta/Super/Command key
)

var modifierNames = map[string]KeyModifiers{
	"shift": ModShift,
	"ctrl":  ModCtrl,
	"alt":   ModAlt,
	"meta":  ModMeta,
}

// Device is the kind of device an [Input] belongs to.
type Device uint8

const (
	DeviceKeyboard Device = iota
	DeviceMouse
)

// Input is a single physical button.
type Input struct {
	Device Device
	Code   int
}

// KeyInput returns the input for a keyboard key.
func KeyInput(k ebiten.Key) Input { return Input{DeviceKeyboard, int(k)} }

// MouseInput returns the input for a mouse button.
func MouseInput(b MouseButton) Input { return Input{DeviceMouse, int(b)} }

func (in Input) String() string {
	if in.Device == DeviceMouse {
		if in.Code < len(mouseButtonNames) {
			return "mouse:" + mouseButtonNames[in.Code]
		}
		return fmt.Sprintf("mouse:%d", in.Code)
	}
	return ebiten.Key(in.Code).String()
}

// Binding is an input together with the modifiers that must be held, and no
// others, for it to count.
type Binding struct {
	Input
	Mods KeyModifiers
}

// Key binds a keyboard key with optional modifiers.
func Key(k ebiten.Key, mods ...KeyModifiers) Binding {
	return Binding{KeyInput(k), joinMods(mods)}
}

// Mouse binds a mouse button with optional modifiers.
func Mouse(b MouseButton, mods ...KeyModifiers) Binding {
	return Binding{MouseInput(b), joinMods(mods)}
}

func joinMods(mods []KeyModifiers) KeyModifiers {
	var m KeyModifiers
	for _, x := range mods {
		m |= x
	}
	return m
}

// ParseBinding parses bindings like "space", "ctrl+shift+s" or
// "alt+mouse:right". Key names are those of [ebiten.Key].
func ParseBinding(spec string) (Binding, error) {
	parts := strings.Split(strings.TrimSpace(spec), "+")
	var b Binding
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Binding{}, fmt.Errorf("sapling: binding %q: unknown modifier %q", spec, p)
		}
		b.Mods |= m
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if name, ok := strings.CutPrefix(strings.ToLower(last), "mouse:"); ok {
		i := slices.Index(mouseButtonNames[:], name)
		if i < 0 {
			return Binding{}, fmt.Errorf("sapling: binding %q: unknown mouse button %q", spec, name)
		}
		b.Input = MouseInput(MouseButton(i))
		return b, nil
	}
	var k ebiten.Key
	if err := k.UnmarshalText([]byte(last)); err != nil {
		return Binding{}, fmt.Errorf("sapling: binding %q: %w", spec, err)
	}
	b.Input = KeyInput(k)
	return b, nil
}

// InputSource reports raw button state for the current frame.
type InputSource interface {
	// Pressed reports whether the input is currently held.
	Pressed(in Input) bool
	// JustPressed reports whether the input went down this frame.
	JustPressed(in Input) bool
	// JustReleased reports whether the input went up this frame.
	JustReleased(in Input) bool
	// Modifiers returns the modifier keys currently held.
	Modifiers() KeyModifiers
}

// EbitenInput reads input from ebiten. It is only meaningful while an ebiten
// game is running.
type EbitenInput struct{}

var ebitenMouse = [...]ebiten.MouseButton{
	MouseButtonLeft:   ebiten.MouseButtonLeft,
	MouseButtonRight:  ebiten.MouseButtonRight,
	MouseButtonMiddle: ebiten.MouseButtonMiddle,
}

func mouseButton(code int) (ebiten.MouseButton, bool) {
	if code < 0 || code >= len(ebitenMouse) {
		return 0, false
	}
	return ebitenMouse[code], true
}

// Pressed implements [InputSource].
func (EbitenInput) Pressed(in Input) bool {
	if in.Device == DeviceMouse {
		b, ok := mouseButton(in.Code)
		return ok && ebiten.IsMouseButtonPressed(b)
	}
	return ebiten.IsKeyPressed(ebiten.Key(in.Code))
}

// JustPressed implements [InputSource].
func (EbitenInput) JustPressed(in Input) bool {
	if in.Device == DeviceMouse {
		b, ok := mouseButton(in.Code)
		return ok && inpututil.IsMouseButtonJustPressed(b)
	}
	return inpututil.IsKeyJustPressed(ebiten.Key(in.Code))
}

// JustReleased implements [InputSource].
func (EbitenInput) JustReleased(in Input) bool {
	if in.Device == DeviceMouse {
		b, ok := mouseButton(in.Code)
		return ok && inpututil.IsMouseButtonJustReleased(b)
	}
	return inpututil.IsKeyJustReleased(ebiten.Key(in.Code))
}

// Modifiers implements [InputSource].
func (EbitenInput) Modifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// ButtonMode selects which button events a [Button] reports. Modes combine
// with bitwise OR.
type ButtonMode uint8

const (
	ModeDown   ButtonMode = 1 << iota // pressed this frame
	ModeUp                            // released this frame
	ModeHeld                          // held at the end of the frame
	ModeRepeat                        // key-repeat while held
)

// ButtonEvent is passed to button callbacks once per frame in which anything
// happened. Counts are for the last frame; fields for modes the button does
// not report are zero.
type ButtonEvent struct {
	Down, Up, Repeat int
	Held             bool
}

// Button is a named action fired by any of its bindings.
type Button struct {
	modes    ButtonMode
	bindings []Binding
	cbs      []func(ButtonEvent)

	// InitialDelay and RepeatDelay are in seconds and are required with
	// ModeRepeat.
	InitialDelay, RepeatDelay float64

	downs, ups   int
	held         bool
	repeating    bool
	repeatRemain float64
}

// NewButton creates a button reporting the given modes.
func NewButton(modes ButtonMode, bindings ...Binding) *Button {
	return &Button{modes: modes, bindings: bindings}
}

// Repeat sets the delays for ModeRepeat and returns b.
func (b *Button) Repeat(initial, repeat float64) *Button {
	b.InitialDelay, b.RepeatDelay = initial, repeat
	return b
}

// Bind adds bindings and returns b.
func (b *Button) Bind(bindings ...Binding) *Button {
	b.bindings = append(b.bindings, bindings...)
	return b
}

// Bindings returns the button's bindings.
func (b *Button) Bindings() []Binding { return slices.Clone(b.bindings) }

// On adds a callback and returns b.
func (b *Button) On(fn func(ButtonEvent)) *Button {
	b.cbs = append(b.cbs, fn)
	return b
}

// Held reports whether any binding was held at the end of the last update.
func (b *Button) Held() bool { return b.held }

// respond fires callbacks for one frame lasting frame seconds.
func (b *Button) respond(changed bool, frame float64) {
	held := b.held
	if !changed && !(held && b.modes&(ModeHeld|ModeRepeat) != 0) {
		return
	}
	var ev ButtonEvent
	if b.modes&ModeDown != 0 {
		ev.Down = b.downs
	}
	if b.modes&ModeUp != 0 {
		ev.Up = b.ups
	}
	b.downs, b.ups = 0, 0
	if b.modes&ModeHeld != 0 {
		ev.Held = held
	}
	if b.modes&ModeRepeat != 0 {
		switch {
		case b.repeating && held:
			t := b.repeatRemain - frame
			for t < 0 {
				ev.Repeat++
				t += b.RepeatDelay
			}
			b.repeatRemain = t
		case b.repeating:
			b.repeating = false
		case held:
			b.repeating = true
			b.repeatRemain = b.InitialDelay
		}
	}
	if ev == (ButtonEvent{}) {
		return
	}
	for _, fn := range b.cbs {
		fn(ev)
	}
}

// EventHandler turns raw input into button events. Call [EventHandler.Update]
// once per frame, before the scheduler steps.
type EventHandler struct {
	sched   *Scheduler
	src     InputSource
	buttons map[string]*Button
	order   []string

	inject  []injectedEvent
	virtual map[Input]bool // held state of injected inputs
}

// NewEventHandler creates a handler reading from src, or from ebiten if src
// is nil. The scheduler's frame length drives key repeat.
func NewEventHandler(sched *Scheduler, src InputSource) *EventHandler {
	if src == nil {
		src = EbitenInput{}
	}
	return &EventHandler{
		sched:   sched,
		src:     src,
		buttons: make(map[string]*Button),
		virtual: make(map[Input]bool),
	}
}

// Add registers a button under name, replacing any button of that name.
// A button with ModeRepeat but no positive repeat delay panics.
func (h *EventHandler) Add(name string, b *Button) *Button {
	if b.modes&ModeRepeat != 0 && (b.RepeatDelay <= 0 || b.InitialDelay < 0) {
		panic(fmt.Sprintf("sapling: button %q repeats without delays", name))
	}
	if _, ok := h.buttons[name]; !ok {
		h.order = append(h.order, name)
	}
	h.buttons[name] = b
	return b
}

// Rm unregisters buttons by name. Unknown names are ignored.
func (h *EventHandler) Rm(names ...string) {
	for _, name := range names {
		if _, ok := h.buttons[name]; !ok {
			continue
		}
		delete(h.buttons, name)
		h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
	}
}

// Button returns the named button.
func (h *EventHandler) Button(name string) (*Button, bool) {
	b, ok := h.buttons[name]
	return b, ok
}

// Names returns registered button names in registration order.
func (h *EventHandler) Names() []string { return slices.Clone(h.order) }

// LoadBindings adds bindings to registered buttons, as parsed by
// [ParseBinding]. Bindings for unknown buttons are an error.
func (h *EventHandler) LoadBindings(bindings map[string][]string) error {
	for name, specs := range bindings {
		b, ok := h.buttons[name]
		if !ok {
			return fmt.Errorf("sapling: bindings for unknown button %q", name)
		}
		for _, spec := range specs {
			bd, err := ParseBinding(spec)
			if err != nil {
				return err
			}
			b.Bind(bd)
		}
	}
	return nil
}

// Update reads input and fires button callbacks.
func (h *EventHandler) Update() {
	frame := 1 / float64(DefaultFPS)
	if h.sched != nil {
		frame = 1 / h.sched.FPS()
	}
	injected, ok := h.popInjected()
	for _, name := range h.order {
		b := h.buttons[name]
		changed := false
		held := false
		for _, bd := range b.bindings {
			var down, up, pressed bool
			var mods KeyModifiers
			if ok {
				mods = injected.mods
				pressed = h.virtual[bd.Input]
				if injected.in == bd.Input {
					down, up = injected.pressed, !injected.pressed
				}
			} else {
				mods = h.src.Modifiers()
				pressed = h.src.Pressed(bd.Input)
				down, up = h.src.JustPressed(bd.Input), h.src.JustReleased(bd.Input)
			}
			match := mods == bd.Mods
			if down && match {
				b.downs++
				changed = true
			}
			if up {
				b.ups++
				changed = true
			}
			if pressed && match {
				held = true
			}
		}
		b.held = held
		b.respond(changed, frame)
	}
}
