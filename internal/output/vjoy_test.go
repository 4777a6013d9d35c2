package output

import (
	"testing"

	"github.com/joyrig/joyrig/internal/input"
)

func TestVJoyState_SetAndReadBack(t *testing.T) {
	v := NewVJoyState(VJoyConfig{Devices: 1, Axes: 2, Buttons: 4, Hats: 1}, nil)

	if err := v.SetAxis(1, 1, 0.5); err != nil {
		t.Fatalf("SetAxis error = %v", err)
	}
	if err := v.SetButton(1, 3, true); err != nil {
		t.Fatalf("SetButton error = %v", err)
	}
	if err := v.SetHat(1, 1, input.North); err != nil {
		t.Fatalf("SetHat error = %v", err)
	}

	if got, _ := v.Axis(1, 1); got != 0.5 {
		t.Errorf("Axis(1, 1) = %v, expected 0.5", got)
	}
	if got, _ := v.Button(1, 3); !got {
		t.Error("Button(1, 3) should be pressed")
	}
	if got, _ := v.Hat(1, 1); got != input.North {
		t.Errorf("Hat(1, 1) = %v, expected north", got)
	}
}

func TestVJoyState_ClampsAxis(t *testing.T) {
	v := NewVJoyState(VJoyConfig{Devices: 1, Axes: 1, Buttons: 1, Hats: 1}, nil)

	if err := v.SetAxis(1, 1, 2.5); err != nil {
		t.Fatalf("SetAxis error = %v", err)
	}
	if got, _ := v.Axis(1, 1); got != 1.0 {
		t.Errorf("Axis(1, 1) = %v, expected clamp to 1.0", got)
	}

	if err := v.SetAxis(1, 1, -3); err != nil {
		t.Fatalf("SetAxis error = %v", err)
	}
	if got, _ := v.Axis(1, 1); got != -1.0 {
		t.Errorf("Axis(1, 1) = %v, expected clamp to -1.0", got)
	}
}

func TestVJoyState_BoundsChecking(t *testing.T) {
	v := NewVJoyState(VJoyConfig{Devices: 1, Axes: 2, Buttons: 2, Hats: 1}, nil)

	tests := []struct {
		name string
		err  error
	}{
		{"device zero", v.SetAxis(0, 1, 0)},
		{"device high", v.SetAxis(2, 1, 0)},
		{"axis zero", v.SetAxis(1, 0, 0)},
		{"axis high", v.SetAxis(1, 3, 0)},
		{"button high", v.SetButton(1, 3, true)},
		{"hat high", v.SetHat(1, 2, input.North)},
	}
	for _, tt := range tests {
		if tt.err == nil {
			t.Errorf("%s: expected out-of-range error", tt.name)
		}
	}
}

func TestVJoyState_DefaultConfig(t *testing.T) {
	v := NewVJoyState(VJoyConfig{}, nil)

	def := DefaultVJoyConfig()
	if err := v.SetAxis(def.Devices, def.Axes, 1); err != nil {
		t.Errorf("SetAxis at default bounds error = %v", err)
	}
	if err := v.SetButton(def.Devices, def.Buttons, true); err != nil {
		t.Errorf("SetButton at default bounds error = %v", err)
	}
	if err := v.SetAxis(def.Devices+1, 1, 0); err == nil {
		t.Error("SetAxis beyond default devices should fail")
	}
}

func TestVJoyState_Snapshot(t *testing.T) {
	v := NewVJoyState(VJoyConfig{Devices: 2, Axes: 2, Buttons: 4, Hats: 1}, nil)
	_ = v.SetAxis(1, 2, -0.25)
	_ = v.SetButton(1, 1, true)
	_ = v.SetButton(1, 4, true)
	_ = v.SetHat(2, 1, input.SouthWest)

	snaps := v.Snapshot()
	if len(snaps) != 2 {
		t.Fatalf("Snapshot count = %d, expected 2", len(snaps))
	}
	if snaps[0].Axes[1] != -0.25 {
		t.Errorf("device 1 axis 2 = %v, expected -0.25", snaps[0].Axes[1])
	}
	if len(snaps[0].Pressed) != 2 || snaps[0].Pressed[0] != 1 || snaps[0].Pressed[1] != 4 {
		t.Errorf("device 1 pressed = %v, expected [1 4]", snaps[0].Pressed)
	}
	if snaps[1].Hats[0] != "south-west" {
		t.Errorf("device 2 hat = %q, expected south-west", snaps[1].Hats[0])
	}
}

func TestVJoyState_Reset(t *testing.T) {
	v := NewVJoyState(VJoyConfig{Devices: 1, Axes: 1, Buttons: 1, Hats: 1}, nil)
	_ = v.SetAxis(1, 1, 1)
	_ = v.SetButton(1, 1, true)
	_ = v.SetHat(1, 1, input.East)

	v.Reset()

	if got, _ := v.Axis(1, 1); got != 0 {
		t.Errorf("axis after Reset = %v, expected 0", got)
	}
	if got, _ := v.Button(1, 1); got {
		t.Error("button after Reset should be released")
	}
	if got, _ := v.Hat(1, 1); got != input.Center {
		t.Errorf("hat after Reset = %v, expected center", got)
	}
}
