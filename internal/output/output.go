// Package output defines the sinks action leaves write to: virtual
// joysticks, the keyboard, the mouse, and logical devices whose events
// loop back into the engine as ordinary input.
//
// Sink implementations are host-specific. The package ships an in-memory
// virtual joystick, log-only keyboard and mouse senders, a recording fake
// for tests, and uinput-backed senders on Linux.
package output

import "github.com/joyrig/joyrig/internal/input"

// VJoy receives virtual joystick writes. Devices, axes, buttons and hats
// are numbered from 1.
type VJoy interface {
	SetAxis(device, axis int, value float64) error
	SetButton(device, button int, pressed bool) error
	SetHat(device, hat int, direction input.Direction) error
}

// KeySender receives keyboard writes. Key names follow the profile's key
// naming (lowercase, e.g. "space", "leftctrl").
type KeySender interface {
	KeyPress(key string) error
	KeyRelease(key string) error
}

// MouseSender receives mouse writes. Buttons are numbered from 1
// (1 left, 2 middle, 3 right, 4 forward, 5 back); motion is in pixels,
// wheel in detents with positive values scrolling up.
type MouseSender interface {
	MouseButtonPress(button int) error
	MouseButtonRelease(button int) error
	MouseMove(dx, dy int) error
	MouseWheel(delta int) error
}
