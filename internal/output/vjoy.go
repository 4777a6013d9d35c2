package output

import (
	"fmt"

	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/logging"
)

// VJoyConfig sizes the virtual joystick pool.
type VJoyConfig struct {
	Devices int
	Axes    int
	Buttons int
	Hats    int
}

// DefaultVJoyConfig returns the standard pool layout: two devices with
// eight axes, 128 buttons and four hats each.
func DefaultVJoyConfig() VJoyConfig {
	return VJoyConfig{
		Devices: 2,
		Axes:    8,
		Buttons: 128,
		Hats:    4,
	}
}

// VJoyState is an in-memory virtual joystick pool with bounds checking.
// It is the reference VJoy implementation; host backends wrap or replace
// it. Owned by the engine loop, so it carries no locking.
type VJoyState struct {
	cfg     VJoyConfig
	devices []*vjoyDevice
	log     *logging.Logger
}

type vjoyDevice struct {
	axes    []float64
	buttons []bool
	hats    []input.Direction
}

// VJoySnapshot is the observable state of a single virtual device.
type VJoySnapshot struct {
	Device  int       `json:"device"`
	Axes    []float64 `json:"axes"`
	Pressed []int     `json:"pressed"`
	Hats    []string  `json:"hats"`
}

// NewVJoyState creates the pool. Non-positive config fields fall back to
// the defaults.
func NewVJoyState(cfg VJoyConfig, log *logging.Logger) *VJoyState {
	if log == nil {
		log = logging.Null
	}
	def := DefaultVJoyConfig()
	if cfg.Devices <= 0 {
		cfg.Devices = def.Devices
	}
	if cfg.Axes <= 0 {
		cfg.Axes = def.Axes
	}
	if cfg.Buttons <= 0 {
		cfg.Buttons = def.Buttons
	}
	if cfg.Hats <= 0 {
		cfg.Hats = def.Hats
	}

	v := &VJoyState{
		cfg: cfg,
		log: log.WithComponent("vjoy"),
	}
	for i := 0; i < cfg.Devices; i++ {
		v.devices = append(v.devices, &vjoyDevice{
			axes:    make([]float64, cfg.Axes),
			buttons: make([]bool, cfg.Buttons),
			hats:    make([]input.Direction, cfg.Hats),
		})
	}
	return v
}

// SetAxis writes an axis value, clamped to [-1, 1].
func (v *VJoyState) SetAxis(device, axis int, value float64) error {
	d, err := v.device(device)
	if err != nil {
		return err
	}
	if axis < 1 || axis > len(d.axes) {
		return fmt.Errorf("vjoy device %d: axis %d out of range [1, %d]", device, axis, len(d.axes))
	}
	d.axes[axis-1] = input.ClampAxis(value)
	v.log.Debug("device %d axis %d = %.3f", device, axis, d.axes[axis-1])
	return nil
}

// SetButton writes a button state.
func (v *VJoyState) SetButton(device, button int, pressed bool) error {
	d, err := v.device(device)
	if err != nil {
		return err
	}
	if button < 1 || button > len(d.buttons) {
		return fmt.Errorf("vjoy device %d: button %d out of range [1, %d]", device, button, len(d.buttons))
	}
	d.buttons[button-1] = pressed
	v.log.Debug("device %d button %d pressed=%t", device, button, pressed)
	return nil
}

// SetHat writes a hat direction.
func (v *VJoyState) SetHat(device, hat int, direction input.Direction) error {
	d, err := v.device(device)
	if err != nil {
		return err
	}
	if hat < 1 || hat > len(d.hats) {
		return fmt.Errorf("vjoy device %d: hat %d out of range [1, %d]", device, hat, len(d.hats))
	}
	d.hats[hat-1] = direction
	v.log.Debug("device %d hat %d = %s", device, hat, direction)
	return nil
}

// Axis reads back an axis value.
func (v *VJoyState) Axis(device, axis int) (float64, error) {
	d, err := v.device(device)
	if err != nil {
		return 0, err
	}
	if axis < 1 || axis > len(d.axes) {
		return 0, fmt.Errorf("vjoy device %d: axis %d out of range [1, %d]", device, axis, len(d.axes))
	}
	return d.axes[axis-1], nil
}

// Button reads back a button state.
func (v *VJoyState) Button(device, button int) (bool, error) {
	d, err := v.device(device)
	if err != nil {
		return false, err
	}
	if button < 1 || button > len(d.buttons) {
		return false, fmt.Errorf("vjoy device %d: button %d out of range [1, %d]", device, button, len(d.buttons))
	}
	return d.buttons[button-1], nil
}

// Hat reads back a hat direction.
func (v *VJoyState) Hat(device, hat int) (input.Direction, error) {
	d, err := v.device(device)
	if err != nil {
		return input.Center, err
	}
	if hat < 1 || hat > len(d.hats) {
		return input.Center, fmt.Errorf("vjoy device %d: hat %d out of range [1, %d]", device, hat, len(d.hats))
	}
	return d.hats[hat-1], nil
}

// Snapshot returns the observable state of every device.
func (v *VJoyState) Snapshot() []VJoySnapshot {
	snaps := make([]VJoySnapshot, 0, len(v.devices))
	for i, d := range v.devices {
		s := VJoySnapshot{
			Device: i + 1,
			Axes:   append([]float64(nil), d.axes...),
		}
		for b, pressed := range d.buttons {
			if pressed {
				s.Pressed = append(s.Pressed, b+1)
			}
		}
		for _, h := range d.hats {
			s.Hats = append(s.Hats, h.String())
		}
		snaps = append(snaps, s)
	}
	return snaps
}

// Reset centers every axis and releases every button and hat.
func (v *VJoyState) Reset() {
	for _, d := range v.devices {
		for i := range d.axes {
			d.axes[i] = 0
		}
		for i := range d.buttons {
			d.buttons[i] = false
		}
		for i := range d.hats {
			d.hats[i] = input.Center
		}
	}
}

func (v *VJoyState) device(n int) (*vjoyDevice, error) {
	if n < 1 || n > len(v.devices) {
		return nil, fmt.Errorf("vjoy device %d out of range [1, %d]", n, len(v.devices))
	}
	return v.devices[n-1], nil
}

var _ VJoy = (*VJoyState)(nil)
