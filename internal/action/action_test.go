package action

import (
	"testing"
	"time"

	"github.com/joyrig/joyrig/internal/input"
)

func TestKind_RoundTrip(t *testing.T) {
	for k := KindMapToVJoy; k <= KindReference; k++ {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Errorf("ParseKind(%q) unexpected error: %v", k.String(), err)
			continue
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, expected %v", k.String(), parsed, k)
		}
	}

	if _, err := ParseKind("teleport"); err == nil {
		t.Error("ParseKind of unknown name expected error, got none")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		node     Node
		expected Kind
	}{
		{&MapToVJoy{}, KindMapToVJoy},
		{&MapToKeyboard{}, KindMapToKeyboard},
		{&Macro{}, KindMacro},
		{&Tempo{}, KindTempo},
		{&ChangeMode{}, KindChangeMode},
		{&Reference{}, KindReference},
	}

	for _, tt := range tests {
		if got := KindOf(tt.node); got != tt.expected {
			t.Errorf("KindOf(%T) = %v, expected %v", tt.node, got, tt.expected)
		}
	}
}

func TestChildren(t *testing.T) {
	tests := []struct {
		name     string
		node     Node
		expected []ID
	}{
		{"leaf", &MapToKeyboard{Key: "a"}, nil},
		{"chain", &Chain{Groups: [][]ID{{1, 2}, {3}}}, []ID{1, 2, 3}},
		{"condition", &Condition{True: []ID{4}, False: []ID{5, 6}}, []ID{4, 5, 6}},
		{"tempo", &Tempo{Short: []ID{7}, Long: []ID{8}}, []ID{7, 8}},
		{"double tap", &DoubleTap{Single: []ID{1}, Double: []ID{2}}, []ID{1, 2}},
		{"smart toggle", &SmartToggle{Children: []ID{9}}, []ID{9}},
		{"split axis", &SplitAxis{Low: []ID{1}, High: []ID{2}}, []ID{1, 2}},
		{"reference", &Reference{Target: 42}, []ID{42}},
		{
			"hat buttons in clockwise order",
			&HatButtons{Children: map[input.Direction][]ID{
				input.West:  {3},
				input.North: {1},
				input.East:  {2},
			}},
			[]ID{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Children(tt.node)
			if len(got) != len(tt.expected) {
				t.Fatalf("Children() = %v, expected %v", got, tt.expected)
			}
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("Children()[%d] = %v, expected %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	axis := input.Identifier{Device: input.NewDeviceGUID(), Type: input.TypeAxis, Index: 0}
	button := input.Identifier{Device: input.NewDeviceGUID(), Type: input.TypeButton, Index: 1}

	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{"valid vjoy map", &MapToVJoy{Device: 1, Target: input.TypeButton, Index: 1}, false},
		{"vjoy device zero", &MapToVJoy{Device: 0, Target: input.TypeButton, Index: 1}, true},
		{"vjoy key target", &MapToVJoy{Device: 1, Target: input.TypeKey, Index: 1}, true},
		{"valid keyboard map", &MapToKeyboard{Key: "space"}, false},
		{"empty key", &MapToKeyboard{}, true},
		{"valid mouse button", &MapToMouse{Target: MouseButton, Button: 1}, false},
		{"mouse button zero", &MapToMouse{Target: MouseButton}, true},
		{"valid mouse motion", &MapToMouse{Target: MouseMotionX, MinSpeed: 10, MaxSpeed: 200}, false},
		{"inverted speed range", &MapToMouse{Target: MouseMotionY, MinSpeed: 100, MaxSpeed: 5}, true},
		{"valid macro", &Macro{Steps: []MacroStep{{Kind: StepKey, Key: "a", Press: true}}}, false},
		{"empty macro", &Macro{}, true},
		{"macro bad count", &Macro{Steps: []MacroStep{{Kind: StepKey, Key: "a"}}, Repeat: RepeatCount}, true},
		{"valid pause", &Pause{Duration: 50 * time.Millisecond}, false},
		{"zero pause", &Pause{}, true},
		{"valid chain", &Chain{Groups: [][]ID{{1}}}, false},
		{"empty chain", &Chain{}, true},
		{"valid tempo", &Tempo{Threshold: 300 * time.Millisecond}, false},
		{"zero tempo threshold", &Tempo{}, true},
		{"valid double tap", &DoubleTap{Threshold: 250 * time.Millisecond}, false},
		{"valid smart toggle", &SmartToggle{Delay: 300 * time.Millisecond}, false},
		{"valid hat buttons", &HatButtons{ButtonCount: 8}, false},
		{"hat buttons bad count", &HatButtons{ButtonCount: 6}, true},
		{
			"hat buttons diagonal with four",
			&HatButtons{ButtonCount: 4, Children: map[input.Direction][]ID{input.NorthEast: {1}}},
			true,
		},
		{"valid pause-resume", &PauseResume{Operation: OpToggle}, false},
		{"pause-resume no op", &PauseResume{}, true},
		{"valid switch", &ChangeMode{Change: ModeSwitch, Targets: []string{"combat"}}, false},
		{"switch two targets", &ChangeMode{Change: ModeSwitch, Targets: []string{"a", "b"}}, true},
		{"valid cycle", &ChangeMode{Change: ModeCycle, Targets: []string{"a", "b"}}, false},
		{"cycle no targets", &ChangeMode{Change: ModeCycle}, true},
		{"previous with target", &ChangeMode{Change: ModePrevious, Targets: []string{"a"}}, true},
		{"valid merge", &MergeAxis{Other: axis, Operation: MergeAverage}, false},
		{"merge non-axis pair", &MergeAxis{Other: button, Operation: MergeAverage}, true},
		{"valid curve", &ResponseCurve{Curve: PiecewiseLinear, Points: []CurvePoint{{-1, -1}, {1, 1}}}, false},
		{"curve single point", &ResponseCurve{Curve: PiecewiseLinear, Points: []CurvePoint{{0, 0}}}, true},
		{"curve point out of range", &ResponseCurve{Curve: CubicSpline, Points: []CurvePoint{{-2, 0}, {1, 1}}}, true},
		{"valid dual deadzone", &DualAxisDeadzone{Other: axis, InnerRadius: 0.1, OuterRadius: 0.9}, false},
		{"dual deadzone inverted", &DualAxisDeadzone{Other: axis, InnerRadius: 0.9, OuterRadius: 0.1}, true},
		{"valid split", &SplitAxis{Split: 0}, false},
		{"split out of range", &SplitAxis{Split: 1.5}, true},
		{"description", &Description{}, false},
		{"valid reference", &Reference{Target: 7}, false},
		{"zero reference", &Reference{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			if tt.wantErr && err == nil {
				t.Error("expected error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseModeChange(t *testing.T) {
	tests := []struct {
		input    string
		expected ModeChange
		wantErr  bool
	}{
		{"switch", ModeSwitch, false},
		{"Previous", ModePrevious, false},
		{"unwind", ModeUnwind, false},
		{"cycle", ModeCycle, false},
		{"temporary", ModeTemporary, false},
		{"sideways", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseModeChange(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseModeChange(%q) expected error, got none", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModeChange(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseModeChange(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}
