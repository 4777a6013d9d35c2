package output

import (
	"fmt"
	"time"

	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/logging"
)

// LogicalSink receives the input events a logical device emits. The
// engine wires this to its own event queue so logical outputs become
// bindable inputs.
type LogicalSink func(ev input.Event)

// LogicalRegistry tracks logical devices by GUID, creating them on first
// use. Owned by the engine loop.
type LogicalRegistry struct {
	sink   LogicalSink
	log    *logging.Logger
	byGUID map[input.DeviceGUID]*LogicalDevice
	order  []input.DeviceGUID
}

// LogicalDevice is a synthetic device. Writing to it emits an ordinary
// input event; button and hat writes emit only on change so edges always
// mean transitions.
type LogicalDevice struct {
	guid    input.DeviceGUID
	name    string
	reg     *LogicalRegistry
	axes    map[int]float64
	buttons map[int]bool
	hats    map[int]input.Direction
}

// NewLogicalRegistry creates a registry delivering events to sink.
func NewLogicalRegistry(sink LogicalSink, log *logging.Logger) *LogicalRegistry {
	if log == nil {
		log = logging.Null
	}
	return &LogicalRegistry{
		sink:   sink,
		log:    log.WithComponent("logical"),
		byGUID: make(map[input.DeviceGUID]*LogicalDevice),
	}
}

// Device returns the device with the given GUID, creating it if needed.
func (r *LogicalRegistry) Device(guid input.DeviceGUID) *LogicalDevice {
	if d, ok := r.byGUID[guid]; ok {
		return d
	}
	d := &LogicalDevice{
		guid:    guid,
		name:    "logical-" + guid.String()[:8],
		reg:     r,
		axes:    make(map[int]float64),
		buttons: make(map[int]bool),
		hats:    make(map[int]input.Direction),
	}
	r.byGUID[guid] = d
	r.order = append(r.order, guid)
	r.log.Debug("created device %s (%s)", d.name, guid)
	return d
}

// Allocate creates a fresh device with a newly generated GUID.
func (r *LogicalRegistry) Allocate(name string) *LogicalDevice {
	d := r.Device(input.NewDeviceGUID())
	if name != "" {
		d.name = name
	}
	return d
}

// Devices returns all devices in creation order.
func (r *LogicalRegistry) Devices() []*LogicalDevice {
	out := make([]*LogicalDevice, 0, len(r.order))
	for _, guid := range r.order {
		out = append(out, r.byGUID[guid])
	}
	return out
}

// GUID returns the device identity.
func (d *LogicalDevice) GUID() input.DeviceGUID { return d.guid }

// Name returns the display name.
func (d *LogicalDevice) Name() string { return d.name }

// SetAxis emits an axis sample, clamped to [-1, 1].
func (d *LogicalDevice) SetAxis(index int, value float64) error {
	if index < 0 {
		return fmt.Errorf("logical device %s: axis %d out of range", d.name, index)
	}
	value = input.ClampAxis(value)
	d.axes[index] = value
	id := input.Identifier{Device: d.guid, Type: input.TypeAxis, Index: index}
	d.reg.emit(input.AxisEvent(id, value, time.Now()))
	return nil
}

// SetButton emits a button edge when the state changes.
func (d *LogicalDevice) SetButton(index int, pressed bool) error {
	if index < 0 {
		return fmt.Errorf("logical device %s: button %d out of range", d.name, index)
	}
	if prev, ok := d.buttons[index]; ok && prev == pressed {
		return nil
	}
	d.buttons[index] = pressed
	id := input.Identifier{Device: d.guid, Type: input.TypeButton, Index: index}
	d.reg.emit(input.ButtonEvent(id, pressed, time.Now()))
	return nil
}

// SetHat emits a hat sample when the direction changes.
func (d *LogicalDevice) SetHat(index int, direction input.Direction) error {
	if index < 0 {
		return fmt.Errorf("logical device %s: hat %d out of range", d.name, index)
	}
	if prev, ok := d.hats[index]; ok && prev == direction {
		return nil
	}
	d.hats[index] = direction
	id := input.Identifier{Device: d.guid, Type: input.TypeHat, Index: index}
	d.reg.emit(input.HatEvent(id, direction, time.Now()))
	return nil
}

func (r *LogicalRegistry) emit(ev input.Event) {
	if r.sink == nil {
		return
	}
	r.sink(ev)
}
