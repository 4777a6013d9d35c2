// Package plugin hosts user Lua scripts inside the engine process.
//
// All scripts share one Lua state. The state is created and scripts
// are loaded during assembly, before the engine loop starts; after
// that the state is touched only from engine hooks, which run on the
// loop goroutine. gopher-lua's LState is not goroutine safe, and this
// ownership handoff is what keeps every Lua operation serialized
// without a lock.
//
// Scripts are trusted local configuration, the same as the profile
// file. They get the full Lua standard library and no resource limits.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/joyrig/joyrig/internal/engine"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/logging"
)

// Host owns the shared Lua state and the handlers scripts register.
type Host struct {
	ops engine.Ops
	log *logging.Logger
	L   *lua.LState

	inputFns []*lua.LFunction
	modeFns  []*lua.LFunction
	scripts  []string

	// inMode suppresses mode hook dispatch triggered by a mode hook,
	// so a handler switching modes cannot recurse into itself.
	inMode bool
}

// NewHost creates the Lua state, installs the joyrig module, and wires
// the host into the engine's hooks. Call before eng.Run. A nil log
// discards output.
func NewHost(eng *engine.Engine, log *logging.Logger) *Host {
	if log == nil {
		log = logging.Null
	}
	h := &Host{
		ops: eng.Ops(),
		log: log.WithComponent("plugin"),
		L:   lua.NewState(),
	}
	h.L.SetGlobal("joyrig", h.L.SetFuncs(h.L.NewTable(), h.moduleFuncs()))

	eng.OnInput(h.dispatchInput)
	eng.OnModeChange(h.dispatchMode)
	return h
}

// LoadDir loads every *.lua file in dir in name order. A script that
// fails to load is logged and skipped; the rest still load. An empty
// dir is a no-op, a missing one an error.
func (h *Host) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("plugin dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.LoadFile(filepath.Join(dir, name)); err != nil {
			h.log.Error("load %s: %v", name, err)
		}
	}
	return nil
}

// LoadFile executes one script in the shared state.
func (h *Host) LoadFile(path string) error {
	if err := h.doFile(path); err != nil {
		return err
	}
	h.scripts = append(h.scripts, filepath.Base(path))
	h.log.Info("loaded %s", filepath.Base(path))
	return nil
}

// doFile runs the script with panic recovery. gopher-lua panics on
// some internal errors instead of returning them.
func (h *Host) doFile(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return h.L.DoFile(path)
}

// Scripts returns the names of the loaded scripts in load order.
func (h *Host) Scripts() []string {
	out := make([]string, len(h.scripts))
	copy(out, h.scripts)
	return out
}

// Close releases the Lua state. Call after the engine loop has
// stopped.
func (h *Host) Close() {
	h.L.Close()
}

// dispatchInput runs every registered input handler with the event.
// A failing handler is logged and the rest still run.
func (h *Host) dispatchInput(ev input.Event) {
	if len(h.inputFns) == 0 {
		return
	}
	t := h.eventTable(ev)
	for _, fn := range h.inputFns {
		h.call(fn, t)
	}
}

func (h *Host) dispatchMode(previous, current string) {
	if h.inMode || len(h.modeFns) == 0 {
		return
	}
	h.inMode = true
	defer func() { h.inMode = false }()

	for _, fn := range h.modeFns {
		h.call(fn, lua.LString(previous), lua.LString(current))
	}
}

func (h *Host) call(fn *lua.LFunction, args ...lua.LValue) {
	h.L.Push(fn)
	for _, arg := range args {
		h.L.Push(arg)
	}
	if err := h.pcall(len(args)); err != nil {
		h.log.Warn("handler: %v", err)
	}
}

func (h *Host) pcall(nargs int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return h.L.PCall(nargs, 0, nil)
}

// eventTable converts an event into the table handlers receive. The
// value field matches the input type: axis position, button pressed
// state, or hat direction name.
func (h *Host) eventTable(ev input.Event) *lua.LTable {
	t := h.L.NewTable()
	t.RawSetString("device", lua.LString(ev.ID.Device.String()))
	t.RawSetString("type", lua.LString(ev.ID.Type.String()))
	t.RawSetString("index", lua.LNumber(ev.ID.Index))
	t.RawSetString("edge", lua.LString(ev.Edge.String()))
	switch ev.ID.Type {
	case input.TypeAxis:
		t.RawSetString("value", lua.LNumber(ev.Value.Axis))
	case input.TypeHat:
		t.RawSetString("direction", lua.LString(ev.Value.Hat.String()))
	default:
		t.RawSetString("pressed", lua.LBool(ev.Value.Pressed))
	}
	return t
}
