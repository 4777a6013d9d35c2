//go:build linux

package output

import (
	"fmt"
	"strings"

	"github.com/holoplot/go-evdev"

	"github.com/joyrig/joyrig/internal/logging"
)

// uinput-backed senders. Creating them needs write access to /dev/uinput,
// typically root or membership in the input group plus a udev rule.

// UInputKeyboard is a KeySender writing through a virtual uinput keyboard.
type UInputKeyboard struct {
	dev *evdev.InputDevice
	log *logging.Logger
}

// NewUInputKeyboard creates the virtual keyboard device.
func NewUInputKeyboard(log *logging.Logger) (*UInputKeyboard, error) {
	if log == nil {
		log = logging.Null
	}
	caps := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keyboardCodes(),
	}
	dev, err := evdev.CreateDevice("joyrig keyboard", joyrigInputID(0x0001), caps)
	if err != nil {
		return nil, fmt.Errorf("failed to create uinput keyboard: %w", err)
	}
	return &UInputKeyboard{dev: dev, log: log.WithComponent("uinput-keyboard")}, nil
}

func (k *UInputKeyboard) KeyPress(key string) error   { return k.send(key, 1) }
func (k *UInputKeyboard) KeyRelease(key string) error { return k.send(key, 0) }

func (k *UInputKeyboard) send(key string, value int32) error {
	code, err := KeyCode(key)
	if err != nil {
		return err
	}
	k.log.Debug("key %s value=%d", key, value)
	if err := k.write(evdev.EV_KEY, code, value); err != nil {
		return fmt.Errorf("failed to send key %s: %w", key, err)
	}
	return k.write(evdev.EV_SYN, evdev.SYN_REPORT, 0)
}

func (k *UInputKeyboard) write(t evdev.EvType, c evdev.EvCode, v int32) error {
	return k.dev.WriteOne(&evdev.InputEvent{Type: t, Code: c, Value: v})
}

// Close destroys the virtual device.
func (k *UInputKeyboard) Close() error { return k.dev.Close() }

// KeyCode resolves a profile key name ("space", "leftctrl", "KEY_A") to
// its evdev code.
func KeyCode(name string) (evdev.EvCode, error) {
	n := strings.ToUpper(name)
	if !strings.HasPrefix(n, "KEY_") {
		n = "KEY_" + n
	}
	code, ok := evdev.KEYFromString[n]
	if !ok {
		return 0, fmt.Errorf("unknown key %q", name)
	}
	return code, nil
}

// keyboardCodes covers the standard keyboard code range for the device
// capability list.
func keyboardCodes() []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, 255)
	for c := evdev.EvCode(1); c < 256; c++ {
		codes = append(codes, c)
	}
	return codes
}

func joyrigInputID(product uint16) evdev.InputID {
	return evdev.InputID{BusType: 0x03, Vendor: 0x1209, Product: product, Version: 1}
}

// UInputMouse is a MouseSender writing through a virtual uinput mouse.
type UInputMouse struct {
	dev *evdev.InputDevice
	log *logging.Logger
}

var mouseButtonCodes = map[int]evdev.EvCode{
	1: evdev.BTN_LEFT,
	2: evdev.BTN_MIDDLE,
	3: evdev.BTN_RIGHT,
	4: evdev.BTN_SIDE,
	5: evdev.BTN_EXTRA,
}

// NewUInputMouse creates the virtual mouse device.
func NewUInputMouse(log *logging.Logger) (*UInputMouse, error) {
	if log == nil {
		log = logging.Null
	}
	caps := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: {evdev.BTN_LEFT, evdev.BTN_MIDDLE, evdev.BTN_RIGHT, evdev.BTN_SIDE, evdev.BTN_EXTRA},
		evdev.EV_REL: {evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL},
	}
	dev, err := evdev.CreateDevice("joyrig mouse", joyrigInputID(0x0002), caps)
	if err != nil {
		return nil, fmt.Errorf("failed to create uinput mouse: %w", err)
	}
	return &UInputMouse{dev: dev, log: log.WithComponent("uinput-mouse")}, nil
}

func (m *UInputMouse) MouseButtonPress(button int) error   { return m.button(button, 1) }
func (m *UInputMouse) MouseButtonRelease(button int) error { return m.button(button, 0) }

func (m *UInputMouse) button(button int, value int32) error {
	code, ok := mouseButtonCodes[button]
	if !ok {
		return fmt.Errorf("unknown mouse button %d", button)
	}
	m.log.Debug("button %d value=%d", button, value)
	if err := m.write(evdev.EV_KEY, code, value); err != nil {
		return fmt.Errorf("failed to send mouse button %d: %w", button, err)
	}
	return m.sync()
}

func (m *UInputMouse) MouseMove(dx, dy int) error {
	if dx != 0 {
		if err := m.write(evdev.EV_REL, evdev.REL_X, int32(dx)); err != nil {
			return fmt.Errorf("failed to send mouse motion: %w", err)
		}
	}
	if dy != 0 {
		if err := m.write(evdev.EV_REL, evdev.REL_Y, int32(dy)); err != nil {
			return fmt.Errorf("failed to send mouse motion: %w", err)
		}
	}
	return m.sync()
}

func (m *UInputMouse) MouseWheel(delta int) error {
	if err := m.write(evdev.EV_REL, evdev.REL_WHEEL, int32(delta)); err != nil {
		return fmt.Errorf("failed to send mouse wheel: %w", err)
	}
	return m.sync()
}

func (m *UInputMouse) write(t evdev.EvType, c evdev.EvCode, v int32) error {
	return m.dev.WriteOne(&evdev.InputEvent{Type: t, Code: c, Value: v})
}

func (m *UInputMouse) sync() error {
	return m.write(evdev.EV_SYN, evdev.SYN_REPORT, 0)
}

// Close destroys the virtual device.
func (m *UInputMouse) Close() error { return m.dev.Close() }

var (
	_ KeySender   = (*UInputKeyboard)(nil)
	_ MouseSender = (*UInputMouse)(nil)
)
