package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/profile"
)

func keyTap(key string) []action.MacroStep {
	return []action.MacroStep{
		{Kind: action.StepKey, Key: key, Press: true},
		{Kind: action.StepKey, Key: key},
	}
}

// macroFixture binds each macro to its own button, starting at
// button 0.
func macroFixture(t *testing.T, macros ...*action.Macro) *fixture {
	t.Helper()
	p := profile.New("macro")
	p.AddMode("global", "")
	p.Startup = "global"
	for i, m := range macros {
		id := action.ID(i + 1)
		put(t, p, id, m)
		p.AddBinding("global", btnID(i), nil, id)
	}
	return newFixture(t, build(t, p))
}

func TestMacro_PlaysSteps(t *testing.T) {
	f := macroFixture(t, &action.Macro{Steps: keyTap("a")})

	f.press(btnID(0))
	if len(f.rec.Calls) != 0 {
		t.Fatalf("steps ran before the timer pass: %q", f.rec.Calls)
	}
	f.advance(0)

	assertCalls(t, f.rec, "key press a", "key release a")

	f.advance(time.Second)
	assertCalls(t, f.rec, "key press a", "key release a")
}

func TestMacro_CountRepeatSpacing(t *testing.T) {
	f := macroFixture(t, &action.Macro{
		Steps:       keyTap("a"),
		Repeat:      action.RepeatCount,
		RepeatCount: 3,
		RepeatDelay: 200 * time.Millisecond,
	})

	f.press(btnID(0))
	f.advance(0)
	if got := len(f.rec.Calls); got != 2 {
		t.Fatalf("first pass emitted %d calls, expected 2", got)
	}

	// The next pass starts one repeat delay later, not sooner.
	f.advance(199 * time.Millisecond)
	if got := len(f.rec.Calls); got != 2 {
		t.Fatalf("pass started %d calls early: %q", got-2, f.rec.Calls)
	}
	f.advance(time.Millisecond)
	if got := len(f.rec.Calls); got != 4 {
		t.Fatalf("second pass emitted %d calls, expected 4 total", got)
	}
	f.advance(200 * time.Millisecond)
	if got := len(f.rec.Calls); got != 6 {
		t.Fatalf("third pass emitted %d calls, expected 6 total", got)
	}

	// Exactly three playbacks.
	f.advance(time.Second)
	assertCalls(t, f.rec,
		"key press a", "key release a",
		"key press a", "key release a",
		"key press a", "key release a",
	)
}

func TestMacro_ExclusiveDefersFIFO(t *testing.T) {
	f := macroFixture(t,
		&action.Macro{
			Steps: []action.MacroStep{
				{Kind: action.StepKey, Key: "a", Press: true, Wait: 300 * time.Millisecond},
				{Kind: action.StepKey, Key: "a"},
			},
			Exclusive: true,
		},
		&action.Macro{
			Steps:     []action.MacroStep{{Kind: action.StepKey, Key: "b", Press: true}},
			Exclusive: true,
		},
		&action.Macro{
			Steps: []action.MacroStep{{Kind: action.StepKey, Key: "c", Press: true}},
		},
	)

	f.press(btnID(0))
	f.advance(0)
	assertCalls(t, f.rec, "key press a")

	// The second exclusive macro waits for the first to finish.
	f.press(btnID(1))
	f.advance(0)
	assertCalls(t, f.rec, "key press a")

	// The lock is advisory: a non-exclusive macro plays through it.
	f.press(btnID(2))
	f.advance(0)
	assertCalls(t, f.rec, "key press a", "key press c")

	// Finishing releases the lock and launches the deferred run.
	f.advance(300 * time.Millisecond)
	assertCalls(t, f.rec,
		"key press a",
		"key press c",
		"key release a",
		"key press b",
	)
}

func TestMacro_HoldFinishesPassAfterRelease(t *testing.T) {
	f := macroFixture(t, &action.Macro{
		Steps:       keyTap("h"),
		Repeat:      action.RepeatHold,
		RepeatDelay: 100 * time.Millisecond,
	})

	f.press(btnID(0))
	f.advance(0)
	f.advance(100 * time.Millisecond)
	if got := len(f.rec.Calls); got != 4 {
		t.Fatalf("two passes emitted %d calls, expected 4", got)
	}

	f.release(btnID(0))
	f.advance(time.Second)
	assertCalls(t, f.rec,
		"key press h", "key release h",
		"key press h", "key release h",
	)

	// A fresh press starts a new run.
	f.press(btnID(0))
	f.advance(0)
	if got := len(f.rec.Calls); got != 6 {
		t.Errorf("restart emitted %d calls, expected 6 total", got)
	}
}

func TestMacro_ToggleStops(t *testing.T) {
	f := macroFixture(t, &action.Macro{
		Steps:       keyTap("t"),
		Repeat:      action.RepeatToggle,
		RepeatDelay: 50 * time.Millisecond,
	})

	f.press(btnID(0))
	f.release(btnID(0))
	f.advance(0)
	f.advance(50 * time.Millisecond)
	if got := len(f.rec.Calls); got != 4 {
		t.Fatalf("two passes emitted %d calls, expected 4", got)
	}

	// The second press stops at the pass boundary.
	f.press(btnID(0))
	f.release(btnID(0))
	f.advance(time.Second)
	if got := len(f.rec.Calls); got != 4 {
		t.Fatalf("stopped toggle kept playing: %d calls", got)
	}

	// A third press starts over.
	f.press(btnID(0))
	f.advance(0)
	if got := len(f.rec.Calls); got != 6 {
		t.Errorf("restarted toggle emitted %d calls, expected 6 total", got)
	}
}

func TestMacro_RepressRestarts(t *testing.T) {
	f := macroFixture(t, &action.Macro{
		Steps: []action.MacroStep{
			{Kind: action.StepKey, Key: "r", Press: true, Wait: 200 * time.Millisecond},
			{Kind: action.StepKey, Key: "r"},
		},
	})

	f.press(btnID(0))
	f.advance(0)
	assertCalls(t, f.rec, "key press r")

	// A new activation supersedes the pending remainder.
	f.press(btnID(0))
	f.advance(0)
	assertCalls(t, f.rec, "key press r", "key press r")

	f.advance(200 * time.Millisecond)
	assertCalls(t, f.rec, "key press r", "key press r", "key release r")
}

func TestMacro_AbortsOnDeviceFailure(t *testing.T) {
	f := macroFixture(t,
		&action.Macro{
			Steps: []action.MacroStep{
				{Kind: action.StepKey, Key: "a", Press: true, Wait: 100 * time.Millisecond},
				{Kind: action.StepKey, Key: "b", Press: true, Wait: 100 * time.Millisecond},
				{Kind: action.StepKey, Key: "c", Press: true},
			},
			Exclusive: true,
		},
		&action.Macro{
			Steps:     []action.MacroStep{{Kind: action.StepKey, Key: "z", Press: true}},
			Exclusive: true,
		},
	)

	f.press(btnID(0))
	f.advance(0)
	assertCalls(t, f.rec, "key press a")

	// The failing step aborts the rest of this run.
	f.rec.Err = errors.New("device gone")
	f.advance(100 * time.Millisecond)
	f.rec.Err = nil
	f.advance(time.Second)
	assertCalls(t, f.rec, "key press a", "key press b")

	// The abort released the exclusive lock.
	f.press(btnID(1))
	f.advance(0)
	assertCalls(t, f.rec, "key press a", "key press b", "key press z")
}

func TestMacro_StepVariants(t *testing.T) {
	f := macroFixture(t, &action.Macro{
		Steps: []action.MacroStep{
			{Kind: action.StepKey, Key: "g", Press: true},
			{Kind: action.StepPause, Wait: 50 * time.Millisecond},
			{Kind: action.StepMouseButton, Button: 1, Press: true},
			{Kind: action.StepMouseMotion, DX: 5, DY: -3},
			{Kind: action.StepVJoy, VJoy: 2, Target: input.TypeAxis, Index: 3, Value: input.AxisValue(0.7)},
		},
	})

	f.press(btnID(0))
	f.advance(0)
	assertCalls(t, f.rec, "key press g")

	f.advance(50 * time.Millisecond)
	assertCalls(t, f.rec,
		"key press g",
		"mouse button 1 press",
		"mouse move 5 -3",
		"vjoy 2 axis 3 = 0.700",
	)
}
