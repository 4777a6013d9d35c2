//go:build linux

package source

import (
	"testing"

	"github.com/holoplot/go-evdev"

	"github.com/joyrig/joyrig/internal/input"
)

func TestDeviceGUIDFor_Deterministic(t *testing.T) {
	id := evdev.InputID{BusType: 3, Vendor: 0x044f, Product: 0xb10a, Version: 0x0110}

	a := DeviceGUIDFor(id, "T.16000M")
	b := DeviceGUIDFor(id, "T.16000M")
	if a != b {
		t.Errorf("same identity should derive the same GUID, got %v and %v", a, b)
	}

	c := DeviceGUIDFor(id, "other name")
	if a == c {
		t.Error("different names should derive different GUIDs")
	}

	id.Product++
	d := DeviceGUIDFor(id, "T.16000M")
	if a == d {
		t.Error("different products should derive different GUIDs")
	}
}

func TestNormalizeAxis(t *testing.T) {
	tests := []struct {
		name     string
		raw      int32
		info     evdev.AbsInfo
		expected float64
	}{
		{"min", 0, evdev.AbsInfo{Minimum: 0, Maximum: 255}, -1},
		{"max", 255, evdev.AbsInfo{Minimum: 0, Maximum: 255}, 1},
		{"signed center", 0, evdev.AbsInfo{Minimum: -32768, Maximum: 32767}, 0},
		{"degenerate range", 7, evdev.AbsInfo{Minimum: 5, Maximum: 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeAxis(tt.raw, tt.info)
			if diff := got - tt.expected; diff > 1e-4 || diff < -1e-4 {
				t.Errorf("normalizeAxis(%d) = %v, expected %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestHatDirection(t *testing.T) {
	tests := []struct {
		x, y     int32
		expected input.Direction
	}{
		{0, 0, input.Center},
		{0, -1, input.North},
		{1, -1, input.NorthEast},
		{1, 0, input.East},
		{1, 1, input.SouthEast},
		{0, 1, input.South},
		{-1, 1, input.SouthWest},
		{-1, 0, input.West},
		{-1, -1, input.NorthWest},
	}

	for _, tt := range tests {
		if got := hatDirection(tt.x, tt.y); got != tt.expected {
			t.Errorf("hatDirection(%d, %d) = %v, expected %v", tt.x, tt.y, got, tt.expected)
		}
	}
}
