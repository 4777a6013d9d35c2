package action

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/joyrig/joyrig/internal/input"
)

// Validate checks a node's payload for configuration errors. Child
// reference resolution is checked separately by Library.CheckTree.
func Validate(n Node) error {
	switch v := n.(type) {
	case *MapToVJoy:
		if v.Device < 1 {
			return fmt.Errorf("map-to-vjoy: device %d out of range", v.Device)
		}
		if v.Target != input.TypeAxis && v.Target != input.TypeButton && v.Target != input.TypeHat {
			return fmt.Errorf("map-to-vjoy: target %v not supported", v.Target)
		}
		if v.Index < 1 {
			return fmt.Errorf("map-to-vjoy: index %d out of range", v.Index)
		}
	case *MapToKeyboard:
		if v.Key == "" {
			return fmt.Errorf("map-to-keyboard: empty key")
		}
	case *MapToMouse:
		switch v.Target {
		case MouseButton:
			if v.Button < 1 {
				return fmt.Errorf("map-to-mouse: button %d out of range", v.Button)
			}
		case MouseMotionX, MouseMotionY, MouseWheel:
			if v.MinSpeed < 0 || v.MaxSpeed < v.MinSpeed {
				return fmt.Errorf("map-to-mouse: speed range [%v, %v] is invalid", v.MinSpeed, v.MaxSpeed)
			}
		default:
			return fmt.Errorf("map-to-mouse: unknown target %d", v.Target)
		}
	case *MapToLogicalDevice:
		if v.Device == uuid.Nil {
			return fmt.Errorf("map-to-logical-device: nil device")
		}
		if v.Target != input.TypeAxis && v.Target != input.TypeButton && v.Target != input.TypeHat {
			return fmt.Errorf("map-to-logical-device: target %v not supported", v.Target)
		}
	case *Macro:
		if len(v.Steps) == 0 {
			return fmt.Errorf("macro: no steps")
		}
		for i, step := range v.Steps {
			if err := validateMacroStep(step); err != nil {
				return fmt.Errorf("macro: step %d: %w", i, err)
			}
		}
		if v.Repeat == RepeatCount && v.RepeatCount < 1 {
			return fmt.Errorf("macro: repeat count %d out of range", v.RepeatCount)
		}
		if v.RepeatDelay < 0 {
			return fmt.Errorf("macro: negative repeat delay")
		}
	case *Pause:
		if v.Duration <= 0 {
			return fmt.Errorf("pause: non-positive duration")
		}
	case *Chain:
		if len(v.Groups) == 0 {
			return fmt.Errorf("chain: no groups")
		}
		if v.Timeout < 0 {
			return fmt.Errorf("chain: negative timeout")
		}
	case *Condition:
		return validateComparator(v.Comparator)
	case *Tempo:
		if v.Threshold <= 0 {
			return fmt.Errorf("tempo: non-positive threshold")
		}
		if v.ActivateOn != ActivateOnPress && v.ActivateOn != ActivateOnRelease {
			return fmt.Errorf("tempo: unknown activation %d", v.ActivateOn)
		}
	case *DoubleTap:
		if v.Threshold <= 0 {
			return fmt.Errorf("double-tap: non-positive threshold")
		}
		if v.Mode != TapExclusive && v.Mode != TapCombined {
			return fmt.Errorf("double-tap: unknown mode %d", v.Mode)
		}
	case *SmartToggle:
		if v.Delay <= 0 {
			return fmt.Errorf("smart-toggle: non-positive delay")
		}
	case *HatButtons:
		if v.ButtonCount != 4 && v.ButtonCount != 8 {
			return fmt.Errorf("hat-buttons: button count %d not 4 or 8", v.ButtonCount)
		}
		for d := range v.Children {
			if d < input.North || d > input.NorthWest {
				return fmt.Errorf("hat-buttons: direction %v cannot carry a list", d)
			}
			if v.ButtonCount == 4 && !d.Cardinal() {
				return fmt.Errorf("hat-buttons: diagonal %v with button count 4", d)
			}
		}
	case *PauseResume:
		if v.Operation != OpPause && v.Operation != OpResume && v.Operation != OpToggle {
			return fmt.Errorf("pause-resume: unknown operation %d", v.Operation)
		}
	case *ChangeMode:
		switch v.Change {
		case ModeSwitch, ModeTemporary:
			if len(v.Targets) != 1 {
				return fmt.Errorf("change-mode: %v needs exactly one target, got %d", v.Change, len(v.Targets))
			}
		case ModeCycle:
			if len(v.Targets) == 0 {
				return fmt.Errorf("change-mode: cycle needs at least one target")
			}
		case ModePrevious, ModeUnwind:
			if len(v.Targets) != 0 {
				return fmt.Errorf("change-mode: %v takes no targets", v.Change)
			}
		default:
			return fmt.Errorf("change-mode: unknown change %d", v.Change)
		}
		for _, name := range v.Targets {
			if name == "" {
				return fmt.Errorf("change-mode: empty target name")
			}
		}
	case *MergeAxis:
		switch v.Operation {
		case MergeAverage, MergeMinimum, MergeMaximum, MergeSum:
		default:
			return fmt.Errorf("merge-axis: unknown operation %d", v.Operation)
		}
		if v.Other.Type != input.TypeAxis {
			return fmt.Errorf("merge-axis: paired input %v is not an axis", v.Other)
		}
	case *ResponseCurve:
		if v.Curve != PiecewiseLinear && v.Curve != CubicSpline {
			return fmt.Errorf("response-curve: unknown curve kind %d", v.Curve)
		}
		if len(v.Points) == 1 {
			return fmt.Errorf("response-curve: a single control point cannot interpolate")
		}
		for _, p := range v.Points {
			if math.Abs(p.X) > 1 || math.Abs(p.Y) > 1 {
				return fmt.Errorf("response-curve: point (%v, %v) outside [-1, 1]", p.X, p.Y)
			}
		}
		d := v.Deadzone
		if d != (Deadzone{}) {
			if !(d.Low <= d.CenterLow && d.CenterLow <= d.CenterHigh && d.CenterHigh <= d.High) {
				return fmt.Errorf("response-curve: deadzone [%v, %v, %v, %v] is not ordered", d.Low, d.CenterLow, d.CenterHigh, d.High)
			}
		}
	case *DualAxisDeadzone:
		if v.InnerRadius < 0 || v.OuterRadius <= v.InnerRadius {
			return fmt.Errorf("dual-axis-deadzone: radii [%v, %v] are invalid", v.InnerRadius, v.OuterRadius)
		}
		if v.Other.Type != input.TypeAxis {
			return fmt.Errorf("dual-axis-deadzone: paired input %v is not an axis", v.Other)
		}
	case *SplitAxis:
		if v.Split < -1 || v.Split > 1 {
			return fmt.Errorf("split-axis: split point %v outside [-1, 1]", v.Split)
		}
	case *Description:
		// Always valid.
	case *Reference:
		if v.Target == 0 {
			return fmt.Errorf("reference: zero target")
		}
	default:
		return fmt.Errorf("unknown action variant %T", n)
	}
	return nil
}

func validateMacroStep(s MacroStep) error {
	switch s.Kind {
	case StepPause:
		if s.Wait <= 0 {
			return fmt.Errorf("non-positive pause")
		}
	case StepKey:
		if s.Key == "" {
			return fmt.Errorf("empty key")
		}
	case StepMouseButton:
		if s.Button < 1 {
			return fmt.Errorf("mouse button %d out of range", s.Button)
		}
	case StepMouseMotion:
		if s.DX == 0 && s.DY == 0 {
			return fmt.Errorf("zero motion")
		}
	case StepVJoy:
		if s.VJoy < 1 {
			return fmt.Errorf("vjoy device %d out of range", s.VJoy)
		}
		if s.Target != input.TypeAxis && s.Target != input.TypeButton && s.Target != input.TypeHat {
			return fmt.Errorf("vjoy target %v not supported", s.Target)
		}
	case StepLogical:
		if s.Device == uuid.Nil {
			return fmt.Errorf("nil logical device")
		}
	default:
		return fmt.Errorf("unknown step kind %d", s.Kind)
	}
	return nil
}

func validateComparator(c Comparator) error {
	switch c.Kind {
	case ComparePressed:
	case CompareRange:
		if c.Lower > c.Upper {
			return fmt.Errorf("condition: range [%v, %v] is inverted", c.Lower, c.Upper)
		}
	case CompareDirection:
		if c.Directions == 0 {
			return fmt.Errorf("condition: empty direction set")
		}
	default:
		return fmt.Errorf("condition: unknown comparator kind %d", c.Kind)
	}
	return nil
}
