package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joyrig/joyrig/internal/engine"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/output"
	"github.com/joyrig/joyrig/internal/profile"
)

var testDev = uuid.MustParse("2f0a8c11-6d3b-4e5a-8c29-b7f41d9e0a63")

func btnID(n int) input.Identifier {
	return input.Identifier{Device: testDev, Type: input.TypeButton, Index: n}
}

func axisID(n int) input.Identifier {
	return input.Identifier{Device: testDev, Type: input.TypeAxis, Index: n}
}

func hatID(n int) input.Identifier {
	return input.Identifier{Device: testDev, Type: input.TypeHat, Index: n}
}

func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p := profile.New("plugtest")
	p.AddMode("default", "")
	p.AddMode("combat", "default")
	p.Startup = "default"
	issues, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if len(issues) > 0 {
		t.Fatalf("Finalize() issues = %v", issues)
	}
	return p
}

func newHost(t *testing.T) (*Host, *engine.Engine, *output.Recorder) {
	t.Helper()
	rec := &output.Recorder{}
	eng := engine.New(engine.Config{Profile: testProfile(t), VJoy: rec, Keyboard: rec, Mouse: rec})
	h := NewHost(eng, nil)
	return h, eng, rec
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// hostFixture runs a real engine loop for handler tests. Recorded
// calls are read only after stop, when the loop has exited.
type hostFixture struct {
	t    *testing.T
	eng  *engine.Engine
	rec  *output.Recorder
	host *Host
	stop func() []string
}

func newHostFixture(t *testing.T, scripts ...string) *hostFixture {
	t.Helper()
	h, eng, rec := newHost(t)

	dir := t.TempDir()
	for i, body := range scripts {
		writeScript(t, dir, fmt.Sprintf("s%02d.lua", i), body)
	}
	if err := h.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = eng.Run(ctx)
		close(done)
	}()

	f := &hostFixture{t: t, eng: eng, rec: rec, host: h}
	var once sync.Once
	f.stop = func() []string {
		once.Do(func() {
			// Flush everything submitted so far through the loop.
			_ = eng.Call(func() error { return nil })
			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("engine did not stop")
			}
			h.Close()
		})
		return f.rec.Calls
	}
	t.Cleanup(func() { f.stop() })
	return f
}

func (f *hostFixture) send(ev input.Event) {
	f.t.Helper()
	if err := f.eng.HandleEvent(ev); err != nil {
		f.t.Fatalf("HandleEvent() error = %v", err)
	}
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("recorded calls = %q, expected %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestHost_LoadDirOrderAndErrors(t *testing.T) {
	h, _, rec := newHost(t)
	defer h.Close()

	dir := t.TempDir()
	writeScript(t, dir, "b.lua", `joyrig.key_press("b")`)
	writeScript(t, dir, "a.lua", `joyrig.key_press("a")`)
	writeScript(t, dir, "broken.lua", `this is not lua(`)
	writeScript(t, dir, "notes.txt", `ignored`)

	if err := h.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	if got := h.Scripts(); len(got) != 2 || got[0] != "a.lua" || got[1] != "b.lua" {
		t.Errorf("Scripts() = %v, expected [a.lua b.lua]", got)
	}
	assertCalls(t, rec.Calls, "key press a", "key press b")
}

func TestHost_LoadDirMissing(t *testing.T) {
	h, _, _ := newHost(t)
	defer h.Close()

	if err := h.LoadDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("LoadDir() error = nil, expected error for missing directory")
	}
	if err := h.LoadDir(""); err != nil {
		t.Errorf("LoadDir(\"\") error = %v, expected nil", err)
	}
}

func TestHost_TopLevelStateAccess(t *testing.T) {
	h, eng, rec := newHost(t)
	defer h.Close()

	path := writeScript(t, t.TempDir(), "init.lua", `
if joyrig.active_mode() == "default" and not joyrig.paused() then
  joyrig.key_press("ready")
end
if #joyrig.modes() == 2 then
  joyrig.key_press("modes")
end
joyrig.pause()
`)
	if err := h.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	assertCalls(t, rec.Calls, "key press ready", "key press modes")
	if !eng.Paused() {
		t.Error("Paused() = false, expected true after joyrig.pause()")
	}
}

func TestHost_EmitFunctions(t *testing.T) {
	h, _, rec := newHost(t)
	defer h.Close()

	path := writeScript(t, t.TempDir(), "emit.lua", `
joyrig.vjoy_axis(1, 2, 0.5)
joyrig.vjoy_button(1, 3, true)
joyrig.vjoy_hat(1, 1, "north")
joyrig.mouse_press(1)
joyrig.mouse_release(1)
joyrig.mouse_move(3, -2)
joyrig.mouse_wheel(-1)
joyrig.key_press("space")
joyrig.key_release("space")
`)
	if err := h.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	assertCalls(t, rec.Calls,
		"vjoy 1 axis 2 = 0.500",
		"vjoy 1 button 3 press",
		"vjoy 1 hat 1 = north",
		"mouse button 1 press",
		"mouse button 1 release",
		"mouse move 3 -2",
		"mouse wheel -1",
		"key press space",
		"key release space",
	)
}

func TestHost_BadModeFailsLoad(t *testing.T) {
	h, eng, _ := newHost(t)
	defer h.Close()

	path := writeScript(t, t.TempDir(), "bad.lua", `joyrig.switch_mode("ghost")`)
	err := h.LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile() error = nil, expected unknown mode error")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("LoadFile() error = %v, expected it to name the mode", err)
	}
	if got := h.Scripts(); len(got) != 0 {
		t.Errorf("Scripts() = %v, expected none", got)
	}
	if got := eng.ActiveMode(); got != "default" {
		t.Errorf("ActiveMode() = %q, expected %q", got, "default")
	}
}

func TestHost_OnInputHandler(t *testing.T) {
	f := newHostFixture(t, `
joyrig.on_input(function(ev)
  if ev.type == "button" and ev.index == 2 then
    joyrig.vjoy_button(1, 9, ev.pressed)
  end
end)
`)

	f.send(input.ButtonEvent(btnID(2), true, time.Now()))
	f.send(input.ButtonEvent(btnID(7), true, time.Now()))
	f.send(input.ButtonEvent(btnID(2), false, time.Now()))

	assertCalls(t, f.stop(),
		"vjoy 1 button 9 press",
		"vjoy 1 button 9 release",
	)
}

func TestHost_AxisAndHatEventFields(t *testing.T) {
	f := newHostFixture(t, `
joyrig.on_input(function(ev)
  if ev.type == "axis" then
    joyrig.mouse_move(math.floor(ev.value * 10 + 0.5), 0)
  elseif ev.type == "hat" and ev.direction == "north" then
    joyrig.mouse_wheel(1)
  end
end)
`)

	f.send(input.AxisEvent(axisID(1), 0.5, time.Now()))
	f.send(input.HatEvent(hatID(1), input.North, time.Now()))
	f.send(input.HatEvent(hatID(1), input.Center, time.Now()))

	assertCalls(t, f.stop(), "mouse move 5 0", "mouse wheel 1")
}

func TestHost_OnModeHandler(t *testing.T) {
	f := newHostFixture(t, `
joyrig.on_mode(function(prev, cur)
  joyrig.key_press(prev .. ">" .. cur)
end)
`)

	if err := f.eng.SwitchMode("combat"); err != nil {
		t.Fatalf("SwitchMode() error = %v", err)
	}

	assertCalls(t, f.stop(), "key press default>combat")
}

func TestHost_ModeHandlerSwitchesWithoutRecursion(t *testing.T) {
	f := newHostFixture(t, `
joyrig.on_mode(function(prev, cur)
  if cur == "combat" then
    joyrig.switch_mode("default")
  end
end)
`)

	if err := f.eng.SwitchMode("combat"); err != nil {
		t.Fatalf("SwitchMode() error = %v", err)
	}
	f.stop()

	if got := f.eng.ActiveMode(); got != "default" {
		t.Errorf("ActiveMode() = %q, expected %q", got, "default")
	}
}

func TestHost_HandlerErrorKeepsOthers(t *testing.T) {
	f := newHostFixture(t,
		`joyrig.on_input(function(ev) error("boom") end)`,
		`joyrig.on_input(function(ev) joyrig.key_press("ok") end)`,
	)

	f.send(input.ButtonEvent(btnID(1), true, time.Now()))

	assertCalls(t, f.stop(), "key press ok")
}
