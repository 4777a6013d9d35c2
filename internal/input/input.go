// Package input defines the identifiers, values, and events that flow
// from physical and virtual devices into the engine.
package input

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceGUID uniquely identifies a physical or virtual input device.
type DeviceGUID = uuid.UUID

// ParseDeviceGUID parses a device GUID from its canonical string form.
func ParseDeviceGUID(s string) (DeviceGUID, error) {
	return uuid.Parse(s)
}

// NewDeviceGUID returns a fresh random device GUID.
func NewDeviceGUID() DeviceGUID {
	return uuid.New()
}

// Type classifies an input on a device.
type Type int

const (
	// TypeAxis is a continuous axis, normalized to [-1, 1].
	TypeAxis Type = iota + 1
	// TypeButton is a momentary pressed/released button.
	TypeButton
	// TypeHat is an eight-way hat switch with a center position.
	TypeHat
	// TypeKey is a keyboard key. Keys appear on the output side and
	// as loopback events from logical devices.
	TypeKey
)

// String returns the string representation of the input type.
func (t Type) String() string {
	switch t {
	case TypeAxis:
		return "axis"
	case TypeButton:
		return "button"
	case TypeHat:
		return "hat"
	case TypeKey:
		return "key"
	default:
		return "unknown"
	}
}

// ParseType parses an input type name.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "axis":
		return TypeAxis, nil
	case "button":
		return TypeButton, nil
	case "hat":
		return TypeHat, nil
	case "key":
		return TypeKey, nil
	default:
		return 0, fmt.Errorf("unknown input type %q", s)
	}
}

// Identifier names a single input on a single device. Identifiers are
// comparable and usable as map keys.
type Identifier struct {
	Device DeviceGUID
	Type   Type
	Index  int
}

// String returns a compact human-readable form of the identifier.
func (id Identifier) String() string {
	return fmt.Sprintf("%s/%s-%d", id.Device, id.Type, id.Index)
}

// Direction is a hat position: one of eight directions or center.
type Direction int

const (
	Center Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Center:
		return "center"
	case North:
		return "north"
	case NorthEast:
		return "north-east"
	case East:
		return "east"
	case SouthEast:
		return "south-east"
	case South:
		return "south"
	case SouthWest:
		return "south-west"
	case West:
		return "west"
	case NorthWest:
		return "north-west"
	default:
		return "unknown"
	}
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "center", "centre":
		return Center, nil
	case "north", "up":
		return North, nil
	case "north-east", "northeast":
		return NorthEast, nil
	case "east", "right":
		return East, nil
	case "south-east", "southeast":
		return SouthEast, nil
	case "south", "down":
		return South, nil
	case "south-west", "southwest":
		return SouthWest, nil
	case "west", "left":
		return West, nil
	case "north-west", "northwest":
		return NorthWest, nil
	default:
		return Center, fmt.Errorf("unknown hat direction %q", s)
	}
}

// Cardinal reports whether the direction is one of the four cardinal
// directions.
func (d Direction) Cardinal() bool {
	switch d {
	case North, East, South, West:
		return true
	default:
		return false
	}
}

// bit returns the set bit for a direction. Center has no bit.
func (d Direction) bit() DirectionSet {
	if d < North || d > NorthWest {
		return 0
	}
	return 1 << (d - North)
}

// DirectionSet is a set of hat directions. Center is never a member.
type DirectionSet uint8

// NewDirectionSet builds a set from the given directions.
func NewDirectionSet(dirs ...Direction) DirectionSet {
	var s DirectionSet
	for _, d := range dirs {
		s |= d.bit()
	}
	return s
}

// Contains reports whether the set contains the direction.
func (s DirectionSet) Contains(d Direction) bool {
	b := d.bit()
	return b != 0 && s&b != 0
}

// Directions returns the members of the set in clockwise order
// starting at North.
func (s DirectionSet) Directions() []Direction {
	var out []Direction
	for d := North; d <= NorthWest; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// String returns a comma-separated list of the member directions.
func (s DirectionSet) String() string {
	dirs := s.Directions()
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

// Value carries the sampled state of an input. Exactly one field is
// meaningful, selected by the input's type.
type Value struct {
	Axis    float64
	Pressed bool
	Hat     Direction
}

// AxisValue wraps an axis position, clamped to [-1, 1].
func AxisValue(v float64) Value {
	return Value{Axis: ClampAxis(v)}
}

// ButtonValue wraps a button state.
func ButtonValue(pressed bool) Value {
	return Value{Pressed: pressed}
}

// HatValue wraps a hat position.
func HatValue(d Direction) Value {
	return Value{Hat: d}
}

// ClampAxis clamps an axis position to the normalized [-1, 1] range.
func ClampAxis(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// Edge classifies the transition an event represents.
type Edge int

const (
	// EdgeNone marks a value change with no press or release, such as
	// axis motion or a hat moving between directions.
	EdgeNone Edge = iota
	// EdgePress marks a press transition.
	EdgePress
	// EdgeRelease marks a release transition.
	EdgeRelease
)

// String returns the edge name.
func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Event is a single input sample delivered to the engine.
type Event struct {
	ID    Identifier
	Value Value
	Edge  Edge
	Time  time.Time
}

// AxisEvent builds an axis motion event.
func AxisEvent(id Identifier, v float64, at time.Time) Event {
	return Event{ID: id, Value: AxisValue(v), Edge: EdgeNone, Time: at}
}

// ButtonEvent builds a button press or release event.
func ButtonEvent(id Identifier, pressed bool, at time.Time) Event {
	e := Event{ID: id, Value: ButtonValue(pressed), Time: at}
	if pressed {
		e.Edge = EdgePress
	} else {
		e.Edge = EdgeRelease
	}
	return e
}

// HatEvent builds a hat motion event.
func HatEvent(id Identifier, d Direction, at time.Time) Event {
	return Event{ID: id, Value: HatValue(d), Edge: EdgeNone, Time: at}
}

// String returns a compact form of the event for log lines.
func (e Event) String() string {
	switch e.ID.Type {
	case TypeAxis:
		return fmt.Sprintf("%s=%.3f", e.ID, e.Value.Axis)
	case TypeHat:
		return fmt.Sprintf("%s=%s", e.ID, e.Value.Hat)
	default:
		return fmt.Sprintf("%s=%s", e.ID, e.Edge)
	}
}
