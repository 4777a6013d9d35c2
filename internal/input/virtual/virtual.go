// Package virtual synthesizes press/release button streams from
// continuous axes and multi-position hats.
//
// A virtual button consumes raw samples for one input and emits at
// most one edge per sample. Axis buttons activate while the value
// sits inside a configured range, optionally filtered by the
// direction of travel on entry. Hat buttons activate while the hat
// points at a member of a configured direction set.
package virtual

import (
	"fmt"
	"strings"

	"github.com/joyrig/joyrig/internal/input"
)

// AxisDirection filters which entry trajectories count as a press.
type AxisDirection int

const (
	// Anywhere accepts entries from either side of the range.
	Anywhere AxisDirection = iota
	// Above accepts only entries travelling upward through the lower
	// limit.
	Above
	// Below accepts only entries travelling downward through the
	// upper limit.
	Below
)

// String returns the direction filter name.
func (d AxisDirection) String() string {
	switch d {
	case Anywhere:
		return "anywhere"
	case Above:
		return "above"
	case Below:
		return "below"
	default:
		return "unknown"
	}
}

// ParseAxisDirection parses a direction filter name.
func ParseAxisDirection(s string) (AxisDirection, error) {
	switch strings.ToLower(s) {
	case "anywhere", "":
		return Anywhere, nil
	case "above":
		return Above, nil
	case "below":
		return Below, nil
	default:
		return Anywhere, fmt.Errorf("unknown axis direction %q", s)
	}
}

// Button tracks one input's raw samples and synthesizes press and
// release edges. Implementations are not safe for concurrent use.
type Button interface {
	// Update consumes one raw sample and returns the edge it caused,
	// or EdgeNone.
	Update(v input.Value) input.Edge
	// Pressed reports the current synthesized state.
	Pressed() bool
}

// AxisButton activates while an axis value sits inside a range.
type AxisButton struct {
	lower     float64
	upper     float64
	direction AxisDirection

	pressed bool
	hasPrev bool
	prev    float64
}

// NewAxisButton creates an axis-range button.
func NewAxisButton(lower, upper float64, dir AxisDirection) *AxisButton {
	return &AxisButton{lower: lower, upper: upper, direction: dir}
}

// Update consumes one axis sample.
//
// A press fires on entering [lower, upper]; with a direction filter,
// only entries whose preceding sample lay beyond the crossed limit
// count. A release fires on leaving the range regardless of the
// filter.
func (b *AxisButton) Update(v input.Value) input.Edge {
	cur := v.Axis
	prev, hasPrev := b.prev, b.hasPrev
	b.prev, b.hasPrev = cur, true

	inside := cur >= b.lower && cur <= b.upper

	if b.pressed {
		if !inside {
			b.pressed = false
			return input.EdgeRelease
		}
		return input.EdgeNone
	}

	if !inside {
		return input.EdgeNone
	}

	switch b.direction {
	case Above:
		if !hasPrev || prev >= b.lower {
			return input.EdgeNone
		}
	case Below:
		if !hasPrev || prev <= b.upper {
			return input.EdgeNone
		}
	}

	b.pressed = true
	return input.EdgePress
}

// Pressed reports the current synthesized state.
func (b *AxisButton) Pressed() bool { return b.pressed }

// HatButton activates while a hat points at a member of a direction
// set.
type HatButton struct {
	directions input.DirectionSet
	pressed    bool
}

// NewHatButton creates a hat-membership button.
func NewHatButton(dirs input.DirectionSet) *HatButton {
	return &HatButton{directions: dirs}
}

// Update consumes one hat sample.
func (b *HatButton) Update(v input.Value) input.Edge {
	inside := b.directions.Contains(v.Hat)
	switch {
	case inside && !b.pressed:
		b.pressed = true
		return input.EdgePress
	case !inside && b.pressed:
		b.pressed = false
		return input.EdgeRelease
	default:
		return input.EdgeNone
	}
}

// Pressed reports the current synthesized state.
func (b *HatButton) Pressed() bool { return b.pressed }

// Kind selects the virtual button flavor a spec describes.
type Kind int

const (
	// KindAxis is an axis-range button.
	KindAxis Kind = iota + 1
	// KindHat is a hat-direction-set button.
	KindHat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAxis:
		return "axis-range"
	case KindHat:
		return "hat-directions"
	default:
		return "unknown"
	}
}

// Spec is the persisted description of a virtual button. A binding
// whose input behaves as a button carries one; the engine
// instantiates a fresh Button per binding from it.
type Spec struct {
	Kind       Kind
	Lower      float64
	Upper      float64
	Direction  AxisDirection
	Directions input.DirectionSet
}

// Validate checks the spec for internal consistency.
func (s *Spec) Validate() error {
	switch s.Kind {
	case KindAxis:
		if s.Lower > s.Upper {
			return fmt.Errorf("axis range [%v, %v] is inverted", s.Lower, s.Upper)
		}
		if s.Lower < -1 || s.Upper > 1 {
			return fmt.Errorf("axis range [%v, %v] exceeds [-1, 1]", s.Lower, s.Upper)
		}
	case KindHat:
		if s.Directions == 0 {
			return fmt.Errorf("hat button has an empty direction set")
		}
	default:
		return fmt.Errorf("unknown virtual button kind %d", s.Kind)
	}
	return nil
}

// New instantiates a fresh, unpressed button from the spec.
func (s *Spec) New() Button {
	switch s.Kind {
	case KindHat:
		return NewHatButton(s.Directions)
	default:
		return NewAxisButton(s.Lower, s.Upper, s.Direction)
	}
}
