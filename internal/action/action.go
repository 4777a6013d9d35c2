// Package action defines the closed set of action variants that make
// up action trees, and the Library arena that owns them.
//
// Containers reference children by id, never by pointer. The Library
// is the single owner of action content, so one action can be shared
// by several parents. The containment graph must stay acyclic; the
// Library checks that at load time and the evaluator assumes it.
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/joyrig/joyrig/internal/input"
)

// ID addresses an action in the Library. The zero value is reserved.
type ID uint64

// Kind identifies an action variant.
type Kind int

const (
	KindMapToVJoy Kind = iota + 1
	KindMapToKeyboard
	KindMapToMouse
	KindMapToLogicalDevice
	KindMacro
	KindPause
	KindChain
	KindCondition
	KindTempo
	KindDoubleTap
	KindSmartToggle
	KindHatButtons
	KindPauseResume
	KindChangeMode
	KindMergeAxis
	KindResponseCurve
	KindDualAxisDeadzone
	KindSplitAxis
	KindDescription
	KindReference
)

var kindNames = map[Kind]string{
	KindMapToVJoy:          "map-to-vjoy",
	KindMapToKeyboard:      "map-to-keyboard",
	KindMapToMouse:         "map-to-mouse",
	KindMapToLogicalDevice: "map-to-logical-device",
	KindMacro:              "macro",
	KindPause:              "pause",
	KindChain:              "chain",
	KindCondition:          "condition",
	KindTempo:              "tempo",
	KindDoubleTap:          "double-tap",
	KindSmartToggle:        "smart-toggle",
	KindHatButtons:         "hat-buttons",
	KindPauseResume:        "pause-resume",
	KindChangeMode:         "change-mode",
	KindMergeAxis:          "merge-axis",
	KindResponseCurve:      "response-curve",
	KindDualAxisDeadzone:   "dual-axis-deadzone",
	KindSplitAxis:          "split-axis",
	KindDescription:        "description",
	KindReference:          "reference",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses an action kind name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(s)
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}

// Node is one action variant. The variant set is closed; the
// evaluator switches exhaustively over the concrete pointer types.
type Node interface {
	isNode()
}

// MapToVJoy forwards the event value to a virtual joystick input.
type MapToVJoy struct {
	Device int
	Target input.Type
	Index  int
}

// MapToKeyboard presses and releases a keyboard key following the
// event's press and release edges.
type MapToKeyboard struct {
	Key string
}

// MouseTarget selects what a MapToMouse drives.
type MouseTarget int

const (
	MouseButton MouseTarget = iota + 1
	MouseMotionX
	MouseMotionY
	MouseWheel
)

// String returns the mouse target name.
func (t MouseTarget) String() string {
	switch t {
	case MouseButton:
		return "button"
	case MouseMotionX:
		return "motion-x"
	case MouseMotionY:
		return "motion-y"
	case MouseWheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// ParseMouseTarget parses a mouse target name.
func ParseMouseTarget(s string) (MouseTarget, error) {
	switch strings.ToLower(s) {
	case "button":
		return MouseButton, nil
	case "motion-x":
		return MouseMotionX, nil
	case "motion-y":
		return MouseMotionY, nil
	case "wheel":
		return MouseWheel, nil
	default:
		return 0, fmt.Errorf("unknown mouse target %q", s)
	}
}

// MapToMouse forwards the event to a mouse button, a motion axis, or
// the wheel. Motion targets translate axis deflection into cursor
// velocity between MinSpeed and MaxSpeed, in pixels per second.
type MapToMouse struct {
	Target   MouseTarget
	Button   int
	MinSpeed float64
	MaxSpeed float64
}

// MapToLogicalDevice writes the event value to a logical device
// input, which loops back into the event queue as a fresh event.
type MapToLogicalDevice struct {
	Device input.DeviceGUID
	Target input.Type
	Index  int
}

// MacroRepeat selects how macro playback repeats.
type MacroRepeat int

const (
	// RepeatNone plays the macro once.
	RepeatNone MacroRepeat = iota
	// RepeatCount plays the macro a fixed number of times.
	RepeatCount
	// RepeatHold replays while the triggering input stays pressed.
	RepeatHold
	// RepeatToggle replays until the input is pressed a second time.
	RepeatToggle
)

// String returns the repeat mode name.
func (r MacroRepeat) String() string {
	switch r {
	case RepeatNone:
		return "none"
	case RepeatCount:
		return "count"
	case RepeatHold:
		return "hold"
	case RepeatToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// ParseMacroRepeat parses a repeat mode name.
func ParseMacroRepeat(s string) (MacroRepeat, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return RepeatNone, nil
	case "count":
		return RepeatCount, nil
	case "hold":
		return RepeatHold, nil
	case "toggle":
		return RepeatToggle, nil
	default:
		return 0, fmt.Errorf("unknown macro repeat mode %q", s)
	}
}

// MacroStepKind identifies a macro step variant.
type MacroStepKind int

const (
	StepPause MacroStepKind = iota + 1
	StepKey
	StepMouseButton
	StepMouseMotion
	StepVJoy
	StepLogical
)

// String returns the step kind name.
func (k MacroStepKind) String() string {
	switch k {
	case StepPause:
		return "pause"
	case StepKey:
		return "key"
	case StepMouseButton:
		return "mouse-button"
	case StepMouseMotion:
		return "mouse-motion"
	case StepVJoy:
		return "vjoy"
	case StepLogical:
		return "logical"
	default:
		return "unknown"
	}
}

// ParseMacroStepKind parses a step kind name.
func ParseMacroStepKind(s string) (MacroStepKind, error) {
	switch strings.ToLower(s) {
	case "pause":
		return StepPause, nil
	case "key":
		return StepKey, nil
	case "mouse-button":
		return StepMouseButton, nil
	case "mouse-motion":
		return StepMouseMotion, nil
	case "vjoy":
		return StepVJoy, nil
	case "logical":
		return StepLogical, nil
	default:
		return 0, fmt.Errorf("unknown macro step kind %q", s)
	}
}

// MacroStep is one timed sub-event of a macro. The fields used depend
// on Kind.
type MacroStep struct {
	Kind MacroStepKind

	// Wait delays the following step. A StepPause is this delay and
	// nothing else.
	Wait time.Duration

	// Key and Press drive StepKey; Press also drives StepMouseButton.
	Key   string
	Press bool

	// Button is the mouse button for StepMouseButton.
	Button int

	// DX and DY are the relative motion for StepMouseMotion.
	DX, DY int

	// Device addresses the logical device for StepLogical.
	Device input.DeviceGUID
	// VJoy is the virtual joystick device number for StepVJoy.
	VJoy int
	// Target and Index select the output input for StepVJoy and
	// StepLogical, with Value the written sample.
	Target input.Type
	Index  int
	Value  input.Value
}

// Macro plays an ordered list of timed sub-events. Playback is
// asynchronous relative to tree evaluation; every emission is
// scheduled through the timer subsystem.
type Macro struct {
	Steps       []MacroStep
	Repeat      MacroRepeat
	RepeatDelay time.Duration
	RepeatCount int
	Exclusive   bool
}

// Pause delays the remaining actions of the surrounding child list by
// a fixed duration.
type Pause struct {
	Duration time.Duration
}

// Chain cycles through its child groups, activating the next group on
// each press edge. A non-zero timeout resets the cycle to the start
// after a period without activations.
type Chain struct {
	Groups  [][]ID
	Timeout time.Duration
}

// ComparatorKind selects what a Condition inspects.
type ComparatorKind int

const (
	// ComparePressed matches a button input's pressed state.
	ComparePressed ComparatorKind = iota + 1
	// CompareRange matches an axis input inside a range.
	CompareRange
	// CompareDirection matches a hat input against a direction set.
	CompareDirection
)

// String returns the comparator kind name.
func (k ComparatorKind) String() string {
	switch k {
	case ComparePressed:
		return "pressed"
	case CompareRange:
		return "range"
	case CompareDirection:
		return "direction"
	default:
		return "unknown"
	}
}

// ParseComparatorKind parses a comparator kind name.
func ParseComparatorKind(s string) (ComparatorKind, error) {
	switch strings.ToLower(s) {
	case "pressed":
		return ComparePressed, nil
	case "range":
		return CompareRange, nil
	case "direction":
		return CompareDirection, nil
	default:
		return 0, fmt.Errorf("unknown comparator kind %q", s)
	}
}

// Comparator is a side-effect-free predicate over an input's current
// value. The inspected input need not be the triggering one.
type Comparator struct {
	Input input.Identifier
	Kind  ComparatorKind

	Pressed    bool
	Lower      float64
	Upper      float64
	Directions input.DirectionSet
}

// Condition evaluates its comparator once per activation and executes
// exactly one of its two child lists.
type Condition struct {
	Comparator Comparator
	True       []ID
	False      []ID
}

// TempoActivation selects when a Tempo's short list runs.
type TempoActivation int

const (
	// ActivateOnPress runs the short list at press time, meaning the
	// long list fires eagerly when the threshold elapses while held.
	ActivateOnPress TempoActivation = iota
	// ActivateOnRelease defers the short/long decision to release.
	ActivateOnRelease
)

// String returns the activation name.
func (a TempoActivation) String() string {
	switch a {
	case ActivateOnPress:
		return "press"
	case ActivateOnRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ParseTempoActivation parses an activation name.
func ParseTempoActivation(s string) (TempoActivation, error) {
	switch strings.ToLower(s) {
	case "press", "":
		return ActivateOnPress, nil
	case "release":
		return ActivateOnRelease, nil
	default:
		return 0, fmt.Errorf("unknown tempo activation %q", s)
	}
}

// Tempo selects between its short and long child lists based on how
// long the input stays pressed.
type Tempo struct {
	Threshold  time.Duration
	ActivateOn TempoActivation
	Short      []ID
	Long       []ID
}

// DoubleTapMode selects how the single and double lists combine.
type DoubleTapMode int

const (
	// TapExclusive runs exactly one of the two lists.
	TapExclusive DoubleTapMode = iota
	// TapCombined runs the single list as part of a double tap too.
	TapCombined
)

// String returns the mode name.
func (m DoubleTapMode) String() string {
	switch m {
	case TapExclusive:
		return "exclusive"
	case TapCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// ParseDoubleTapMode parses a double tap mode name.
func ParseDoubleTapMode(s string) (DoubleTapMode, error) {
	switch strings.ToLower(s) {
	case "exclusive", "":
		return TapExclusive, nil
	case "combined":
		return TapCombined, nil
	default:
		return 0, fmt.Errorf("unknown double tap mode %q", s)
	}
}

// DoubleTap distinguishes single taps from double taps inside a
// configurable window.
type DoubleTap struct {
	Threshold time.Duration
	Mode      DoubleTapMode
	Single    []ID
	Double    []ID
}

// SmartToggle passes press/release through for holds longer than
// Delay and latches the pressed state for shorter taps.
type SmartToggle struct {
	Delay    time.Duration
	Children []ID
}

// HatButtons routes each hat direction to an independent child list.
// With a button count of four, only the cardinal directions carry
// lists and diagonals activate nothing.
type HatButtons struct {
	ButtonCount int
	Children    map[input.Direction][]ID
}

// PauseOperation selects what a PauseResume does to the shared
// execution-paused flag.
type PauseOperation int

const (
	OpPause PauseOperation = iota + 1
	OpResume
	OpToggle
)

// String returns the operation name.
func (o PauseOperation) String() string {
	switch o {
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// ParsePauseOperation parses a pause operation name.
func ParsePauseOperation(s string) (PauseOperation, error) {
	switch strings.ToLower(s) {
	case "pause":
		return OpPause, nil
	case "resume":
		return OpResume, nil
	case "toggle":
		return OpToggle, nil
	default:
		return 0, fmt.Errorf("unknown pause operation %q", s)
	}
}

// PauseResume mutates the engine-wide execution-paused flag. While
// paused, the evaluator short-circuits everything except further
// PauseResume nodes.
type PauseResume struct {
	Operation PauseOperation
}

// ModeChange selects a mode stack operation.
type ModeChange int

const (
	ModeSwitch ModeChange = iota + 1
	ModePrevious
	ModeUnwind
	ModeCycle
	ModeTemporary
)

// String returns the mode change name.
func (c ModeChange) String() string {
	switch c {
	case ModeSwitch:
		return "switch"
	case ModePrevious:
		return "previous"
	case ModeUnwind:
		return "unwind"
	case ModeCycle:
		return "cycle"
	case ModeTemporary:
		return "temporary"
	default:
		return "unknown"
	}
}

// ParseModeChange parses a mode change name.
func ParseModeChange(s string) (ModeChange, error) {
	switch strings.ToLower(s) {
	case "switch":
		return ModeSwitch, nil
	case "previous":
		return ModePrevious, nil
	case "unwind":
		return ModeUnwind, nil
	case "cycle":
		return ModeCycle, nil
	case "temporary":
		return ModeTemporary, nil
	default:
		return 0, fmt.Errorf("unknown mode change %q", s)
	}
}

// ChangeMode delegates a stack operation to the mode stack manager.
// Switch and Temporary take one target, Cycle one or more, Previous
// and Unwind none.
type ChangeMode struct {
	Change  ModeChange
	Targets []string
}

// MergeOperation combines two axis values into one.
type MergeOperation int

const (
	MergeAverage MergeOperation = iota + 1
	MergeMinimum
	MergeMaximum
	MergeSum
)

// String returns the merge operation name.
func (o MergeOperation) String() string {
	switch o {
	case MergeAverage:
		return "average"
	case MergeMinimum:
		return "minimum"
	case MergeMaximum:
		return "maximum"
	case MergeSum:
		return "sum"
	default:
		return "unknown"
	}
}

// ParseMergeOperation parses a merge operation name.
func ParseMergeOperation(s string) (MergeOperation, error) {
	switch strings.ToLower(s) {
	case "average", "":
		return MergeAverage, nil
	case "minimum", "min":
		return MergeMinimum, nil
	case "maximum", "max":
		return MergeMaximum, nil
	case "sum":
		return MergeSum, nil
	default:
		return 0, fmt.Errorf("unknown merge operation %q", s)
	}
}

// MergeAxis combines the triggering axis with another input's current
// value and forwards the merged value to its children.
type MergeAxis struct {
	Other     input.Identifier
	Operation MergeOperation
	Children  []ID
}

// CurveKind selects the interpolation of a response curve.
type CurveKind int

const (
	PiecewiseLinear CurveKind = iota + 1
	CubicSpline
)

// String returns the curve kind name.
func (k CurveKind) String() string {
	switch k {
	case PiecewiseLinear:
		return "piecewise-linear"
	case CubicSpline:
		return "cubic-spline"
	default:
		return "unknown"
	}
}

// ParseCurveKind parses a curve kind name.
func ParseCurveKind(s string) (CurveKind, error) {
	switch strings.ToLower(s) {
	case "piecewise-linear", "linear", "":
		return PiecewiseLinear, nil
	case "cubic-spline", "spline":
		return CubicSpline, nil
	default:
		return 0, fmt.Errorf("unknown curve kind %q", s)
	}
}

// CurvePoint is one response curve control point, both coordinates in
// [-1, 1].
type CurvePoint struct {
	X float64
	Y float64
}

// ResponseCurve reshapes an axis value through a deadzone and an
// interpolated control point curve before forwarding it.
type ResponseCurve struct {
	Curve    CurveKind
	Points   []CurvePoint
	Deadzone Deadzone
	Children []ID

	prepared bool
	sorted   []CurvePoint
	spline   *spline
}

// DualAxisDeadzone applies a radial deadzone over a two-axis pair:
// the triggering axis and a paired one. Deflections below the inner
// radius flatten to zero and the span up to the outer radius rescales
// to full deflection.
type DualAxisDeadzone struct {
	Other       input.Identifier
	InnerRadius float64
	OuterRadius float64
	Children    []ID
}

// SplitAxis routes an axis event to the low or high child list
// depending on which side of the split point the value lies.
type SplitAxis struct {
	Split float64
	Low   []ID
	High  []ID
}

// Description is a documentation-only leaf with no runtime effect.
type Description struct {
	Text string
}

// Reference redirects evaluation to another action in the library.
type Reference struct {
	Target ID
}

func (*MapToVJoy) isNode()          {}
func (*MapToKeyboard) isNode()      {}
func (*MapToMouse) isNode()         {}
func (*MapToLogicalDevice) isNode() {}
func (*Macro) isNode()              {}
func (*Pause) isNode()              {}
func (*Chain) isNode()              {}
func (*Condition) isNode()          {}
func (*Tempo) isNode()              {}
func (*DoubleTap) isNode()          {}
func (*SmartToggle) isNode()        {}
func (*HatButtons) isNode()         {}
func (*PauseResume) isNode()        {}
func (*ChangeMode) isNode()         {}
func (*MergeAxis) isNode()          {}
func (*ResponseCurve) isNode()      {}
func (*DualAxisDeadzone) isNode()   {}
func (*SplitAxis) isNode()          {}
func (*Description) isNode()        {}
func (*Reference) isNode()          {}

// KindOf returns the variant kind of a node, or zero for nil.
func KindOf(n Node) Kind {
	switch n.(type) {
	case *MapToVJoy:
		return KindMapToVJoy
	case *MapToKeyboard:
		return KindMapToKeyboard
	case *MapToMouse:
		return KindMapToMouse
	case *MapToLogicalDevice:
		return KindMapToLogicalDevice
	case *Macro:
		return KindMacro
	case *Pause:
		return KindPause
	case *Chain:
		return KindChain
	case *Condition:
		return KindCondition
	case *Tempo:
		return KindTempo
	case *DoubleTap:
		return KindDoubleTap
	case *SmartToggle:
		return KindSmartToggle
	case *HatButtons:
		return KindHatButtons
	case *PauseResume:
		return KindPauseResume
	case *ChangeMode:
		return KindChangeMode
	case *MergeAxis:
		return KindMergeAxis
	case *ResponseCurve:
		return KindResponseCurve
	case *DualAxisDeadzone:
		return KindDualAxisDeadzone
	case *SplitAxis:
		return KindSplitAxis
	case *Description:
		return KindDescription
	case *Reference:
		return KindReference
	default:
		return 0
	}
}

// Children returns every child id a node references, across all of
// its lists, in evaluation order. Leaves return nil.
func Children(n Node) []ID {
	switch v := n.(type) {
	case *Chain:
		var out []ID
		for _, g := range v.Groups {
			out = append(out, g...)
		}
		return out
	case *Condition:
		return concat(v.True, v.False)
	case *Tempo:
		return concat(v.Short, v.Long)
	case *DoubleTap:
		return concat(v.Single, v.Double)
	case *SmartToggle:
		return v.Children
	case *HatButtons:
		var out []ID
		for d := input.North; d <= input.NorthWest; d++ {
			out = append(out, v.Children[d]...)
		}
		return out
	case *MergeAxis:
		return v.Children
	case *ResponseCurve:
		return v.Children
	case *DualAxisDeadzone:
		return v.Children
	case *SplitAxis:
		return concat(v.Low, v.High)
	case *Reference:
		return []ID{v.Target}
	default:
		return nil
	}
}

func concat(lists ...[]ID) []ID {
	var out []ID
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
