package engine

import (
	"fmt"

	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/output"
)

// OnInput registers fn to observe every processed event, including
// events arriving while dispatch is paused. Hooks run on the engine
// loop after the event's actions; register before Run.
func (e *Engine) OnInput(fn func(input.Event)) {
	e.inputHooks = append(e.inputHooks, fn)
}

// OnModeChange registers fn to observe mode transitions. Hooks run on
// the engine loop; register before Run.
func (e *Engine) OnModeChange(fn func(previous, current string)) {
	e.modeHooks = append(e.modeHooks, fn)
}

// Ops is the control surface for code that already runs on the engine
// loop, such as hooks and submitted work. Its methods apply
// immediately instead of round-tripping through the queue, so calling
// them from any other goroutine is a race.
type Ops struct {
	e *Engine
}

// Ops returns the loop-side control surface.
func (e *Engine) Ops() Ops { return Ops{e: e} }

// SwitchMode activates a mode by name.
func (o Ops) SwitchMode(name string) error {
	if o.e.profile.Modes[name] == nil {
		return fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	o.e.modes.Switch(name)
	o.e.sweepIfChanged()
	return nil
}

// PreviousMode toggles between the two most recent modes.
func (o Ops) PreviousMode() error {
	o.e.modes.Previous()
	o.e.sweepIfChanged()
	return nil
}

// UnwindMode pops the active mode off the stack.
func (o Ops) UnwindMode() error {
	o.e.modes.Unwind()
	o.e.sweepIfChanged()
	return nil
}

// CycleModes advances through the target list from the active mode.
func (o Ops) CycleModes(targets []string) error {
	for _, name := range targets {
		if o.e.profile.Modes[name] == nil {
			return fmt.Errorf("%w: %q", ErrUnknownMode, name)
		}
	}
	o.e.modes.Cycle(targets)
	o.e.sweepIfChanged()
	return nil
}

// ActiveMode returns the current mode.
func (o Ops) ActiveMode() string { return o.e.modes.Active() }

// ModeNames lists the modes the loaded profile defines.
func (o Ops) ModeNames() []string { return o.e.profile.ModeNames() }

// Pause suspends action dispatch.
func (o Ops) Pause() { o.e.setPaused(true) }

// Resume lifts a pause.
func (o Ops) Resume() { o.e.setPaused(false) }

// Paused reports whether dispatch is paused.
func (o Ops) Paused() bool { return o.e.paused.Load() }

// VJoy returns the virtual joystick sink actions emit through.
func (o Ops) VJoy() output.VJoy { return o.e.vjoy }

// Keyboard returns the keyboard sink.
func (o Ops) Keyboard() output.KeySender { return o.e.keyboard }

// Mouse returns the mouse sink.
func (o Ops) Mouse() output.MouseSender { return o.e.mouse }
