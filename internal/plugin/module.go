package plugin

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/joyrig/joyrig/internal/input"
)

// moduleFuncs builds the joyrig module. Callbacks registered here run
// on the engine loop; functions that fail raise a Lua error, which a
// handler's caller logs and a loading script reports as a load error.
func (h *Host) moduleFuncs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"on_input": func(L *lua.LState) int {
			h.inputFns = append(h.inputFns, L.CheckFunction(1))
			return 0
		},
		"on_mode": func(L *lua.LState) int {
			h.modeFns = append(h.modeFns, L.CheckFunction(1))
			return 0
		},

		"switch_mode": func(L *lua.LState) int {
			if err := h.ops.SwitchMode(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"previous_mode": func(L *lua.LState) int {
			_ = h.ops.PreviousMode()
			return 0
		},
		"unwind_mode": func(L *lua.LState) int {
			_ = h.ops.UnwindMode()
			return 0
		},
		"cycle_modes": func(L *lua.LState) int {
			targets := make([]string, L.GetTop())
			for i := range targets {
				targets[i] = L.CheckString(i + 1)
			}
			if err := h.ops.CycleModes(targets); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"active_mode": func(L *lua.LState) int {
			L.Push(lua.LString(h.ops.ActiveMode()))
			return 1
		},
		"modes": func(L *lua.LState) int {
			t := L.NewTable()
			for i, name := range h.ops.ModeNames() {
				t.RawSetInt(i+1, lua.LString(name))
			}
			L.Push(t)
			return 1
		},

		"pause": func(L *lua.LState) int {
			h.ops.Pause()
			return 0
		},
		"resume": func(L *lua.LState) int {
			h.ops.Resume()
			return 0
		},
		"paused": func(L *lua.LState) int {
			L.Push(lua.LBool(h.ops.Paused()))
			return 1
		},

		"vjoy_axis": func(L *lua.LState) int {
			err := h.ops.VJoy().SetAxis(L.CheckInt(1), L.CheckInt(2), float64(L.CheckNumber(3)))
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"vjoy_button": func(L *lua.LState) int {
			err := h.ops.VJoy().SetButton(L.CheckInt(1), L.CheckInt(2), L.CheckBool(3))
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"vjoy_hat": func(L *lua.LState) int {
			dir, err := input.ParseDirection(L.CheckString(3))
			if err == nil {
				err = h.ops.VJoy().SetHat(L.CheckInt(1), L.CheckInt(2), dir)
			}
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},

		"key_press": func(L *lua.LState) int {
			if err := h.ops.Keyboard().KeyPress(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"key_release": func(L *lua.LState) int {
			if err := h.ops.Keyboard().KeyRelease(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"mouse_press": func(L *lua.LState) int {
			if err := h.ops.Mouse().MouseButtonPress(L.CheckInt(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"mouse_release": func(L *lua.LState) int {
			if err := h.ops.Mouse().MouseButtonRelease(L.CheckInt(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"mouse_move": func(L *lua.LState) int {
			if err := h.ops.Mouse().MouseMove(L.CheckInt(1), L.CheckInt(2)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"mouse_wheel": func(L *lua.LState) int {
			if err := h.ops.Mouse().MouseWheel(L.CheckInt(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},

		"log": func(L *lua.LState) int {
			h.log.Info("%s", L.CheckString(1))
			return 0
		},
	}
}
