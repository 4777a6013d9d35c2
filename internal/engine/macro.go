package engine

import (
	"time"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/sched"
)

// macroState is the per-instance record behind a Macro node. run is
// the live playback, nil while idle.
type macroState struct {
	run *macroRun
}

// macroRun is one playback in flight, from start request to the end
// of its last repeat. Deferred exclusive starts exist as runs parked
// in the gate queue with no timer armed yet.
type macroRun struct {
	key   stateKey
	node  *action.Macro
	timer sched.Handle
	step  int
	runs  int
	stop  bool
	dead  bool
}

// macroGate serializes exclusive macro playback. Macros not marked
// exclusive bypass it entirely. Deferred starts launch in arrival
// order when the holder finishes.
type macroGate struct {
	owner   *macroRun
	waiting []*macroRun
}

// execMacro starts, restarts, or stops playback depending on the
// repeat mode. Press starts playback; with hold the release schedules
// a stop at the end of the current pass, with toggle a second press
// does. A press during none or count playback restarts it.
func (e *Engine) execMacro(ec *evalCtx, id action.ID, v *action.Macro) {
	if len(v.Steps) == 0 {
		return
	}
	key := stateKey{ec.binding.ID, id}
	st := e.macroStateFor(key)

	switch ec.event.Edge {
	case input.EdgePress:
		switch v.Repeat {
		case action.RepeatToggle:
			if st.run != nil {
				st.run.stop = !st.run.stop
				return
			}
		case action.RepeatHold:
			if st.run != nil {
				st.run.stop = false
				return
			}
		default:
			if st.run != nil {
				e.abortRun(st.run)
			}
		}
		run := &macroRun{key: key, node: v}
		st.run = run
		e.startRun(run)
	case input.EdgeRelease:
		if v.Repeat == action.RepeatHold && st.run != nil {
			// Finish the pass in flight, then stop repeating. Cutting
			// it short could leave macro-pressed keys stuck down.
			st.run.stop = true
		}
	}
}

// startRun begins playback, or parks the run behind the exclusive
// gate when another exclusive macro holds it.
func (e *Engine) startRun(run *macroRun) {
	if run.node.Exclusive && !e.gateAcquire(run) {
		e.log.Debug("macro deferred behind exclusive playback")
		return
	}
	e.beginPlayback(run)
}

func (e *Engine) beginPlayback(run *macroRun) {
	run.step = 0
	e.scheduleStep(run, 0)
}

func (e *Engine) scheduleStep(run *macroRun, delay time.Duration) {
	run.timer = e.scheduleFor(run.key.binding, delay, func(time.Time) {
		run.timer = 0
		e.playStep(run)
	})
}

// playStep emits the current step and chains the next one after the
// step's wait. A failing output device aborts this instance's
// remaining steps without touching other macros.
func (e *Engine) playStep(run *macroRun) {
	if run.dead {
		return
	}
	if run.stop && run.step == 0 && run.runs > 0 {
		// A stop arrived between passes. Nothing is in flight, so end
		// here instead of starting the pass that was already armed.
		e.endRun(run)
		return
	}
	if run.step >= len(run.node.Steps) {
		e.finishPass(run)
		return
	}

	step := run.node.Steps[run.step]
	run.step++
	if err := e.emitStep(step); err != nil {
		e.log.Warn("macro step %d failed, aborting playback: %v", run.step, err)
		e.endRun(run)
		return
	}
	e.scheduleStep(run, step.Wait)
}

// finishPass ends one full playback and decides whether another
// follows.
func (e *Engine) finishPass(run *macroRun) {
	run.runs++
	v := run.node

	again := false
	switch v.Repeat {
	case action.RepeatCount:
		again = run.runs < v.RepeatCount && !run.stop
	case action.RepeatHold, action.RepeatToggle:
		again = !run.stop
	}
	if again {
		run.step = 0
		e.scheduleStep(run, v.RepeatDelay)
		return
	}
	e.endRun(run)
}

func (e *Engine) endRun(run *macroRun) {
	run.dead = true
	if st, ok := e.state[run.key].(*macroState); ok && st.run == run {
		st.run = nil
	}
	if run.node.Exclusive {
		e.gateRelease(run)
	}
}

// abortRun cancels a run's pending step and ends it. Used for
// superseding activations and binding teardown.
func (e *Engine) abortRun(run *macroRun) {
	if run.timer != 0 {
		e.cancelFor(run.key.binding, run.timer)
		run.timer = 0
	}
	e.endRun(run)
}

// gateAcquire takes the exclusive lock or queues the run behind it.
func (e *Engine) gateAcquire(run *macroRun) bool {
	if e.gate.owner == nil {
		e.gate.owner = run
		return true
	}
	e.gate.waiting = append(e.gate.waiting, run)
	return false
}

// gateRelease frees the exclusive lock and launches the next waiting
// run, skipping any that died while parked.
func (e *Engine) gateRelease(run *macroRun) {
	if e.gate.owner != run {
		return
	}
	e.gate.owner = nil
	for len(e.gate.waiting) > 0 {
		next := e.gate.waiting[0]
		e.gate.waiting = e.gate.waiting[1:]
		if next.dead {
			continue
		}
		e.gate.owner = next
		e.beginPlayback(next)
		return
	}
}

// emitStep performs one macro sub-event.
func (e *Engine) emitStep(step action.MacroStep) error {
	switch step.Kind {
	case action.StepPause:
		return nil
	case action.StepKey:
		if step.Press {
			return e.keyboard.KeyPress(step.Key)
		}
		return e.keyboard.KeyRelease(step.Key)
	case action.StepMouseButton:
		if step.Press {
			return e.mouse.MouseButtonPress(step.Button)
		}
		return e.mouse.MouseButtonRelease(step.Button)
	case action.StepMouseMotion:
		return e.mouse.MouseMove(step.DX, step.DY)
	case action.StepVJoy:
		switch step.Target {
		case input.TypeAxis:
			return e.vjoy.SetAxis(step.VJoy, step.Index, step.Value.Axis)
		case input.TypeButton:
			return e.vjoy.SetButton(step.VJoy, step.Index, step.Value.Pressed)
		case input.TypeHat:
			return e.vjoy.SetHat(step.VJoy, step.Index, step.Value.Hat)
		}
	case action.StepLogical:
		dev := e.logical.Device(step.Device)
		switch step.Target {
		case input.TypeAxis:
			return dev.SetAxis(step.Index, step.Value.Axis)
		case input.TypeButton:
			return dev.SetButton(step.Index, step.Value.Pressed)
		case input.TypeHat:
			return dev.SetHat(step.Index, step.Value.Hat)
		}
	}
	return nil
}
