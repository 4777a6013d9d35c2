package output

import (
	"fmt"

	"github.com/joyrig/joyrig/internal/input"
)

// Recorder implements every sink interface and records each call as a
// formatted string. Setting Err makes every call fail after recording,
// which exercises the runtime-error path in evaluator tests.
type Recorder struct {
	Calls []string
	Err   error
}

// Reset clears the recorded calls.
func (r *Recorder) Reset() {
	r.Calls = nil
}

func (r *Recorder) record(format string, args ...any) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) SetAxis(device, axis int, value float64) error {
	r.record("vjoy %d axis %d = %.3f", device, axis, value)
	return r.Err
}

func (r *Recorder) SetButton(device, button int, pressed bool) error {
	verb := "release"
	if pressed {
		verb = "press"
	}
	r.record("vjoy %d button %d %s", device, button, verb)
	return r.Err
}

func (r *Recorder) SetHat(device, hat int, direction input.Direction) error {
	r.record("vjoy %d hat %d = %s", device, hat, direction)
	return r.Err
}

func (r *Recorder) KeyPress(key string) error {
	r.record("key press %s", key)
	return r.Err
}

func (r *Recorder) KeyRelease(key string) error {
	r.record("key release %s", key)
	return r.Err
}

func (r *Recorder) MouseButtonPress(button int) error {
	r.record("mouse button %d press", button)
	return r.Err
}

func (r *Recorder) MouseButtonRelease(button int) error {
	r.record("mouse button %d release", button)
	return r.Err
}

func (r *Recorder) MouseMove(dx, dy int) error {
	r.record("mouse move %d %d", dx, dy)
	return r.Err
}

func (r *Recorder) MouseWheel(delta int) error {
	r.record("mouse wheel %d", delta)
	return r.Err
}

var (
	_ VJoy        = (*Recorder)(nil)
	_ KeySender   = (*Recorder)(nil)
	_ MouseSender = (*Recorder)(nil)
)
