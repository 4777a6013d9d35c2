package engine

import (
	"math"
	"time"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/profile"
)

// evalCtx carries one event through a tree walk. Contexts are
// immutable; transforms derive new ones.
type evalCtx struct {
	binding *profile.Binding
	event   input.Event
}

func (ec *evalCtx) withEvent(ev input.Event) *evalCtx {
	return &evalCtx{binding: ec.binding, event: ev}
}

func (ec *evalCtx) withAxis(v float64) *evalCtx {
	return ec.withEvent(input.Event{
		ID:    ec.event.ID,
		Value: input.AxisValue(v),
		Edge:  input.EdgeNone,
		Time:  ec.event.Time,
	})
}

func (ec *evalCtx) withButton(pressed bool) *evalCtx {
	ev := input.Event{
		ID:    ec.event.ID,
		Value: input.ButtonValue(pressed),
		Time:  ec.event.Time,
	}
	if pressed {
		ev.Edge = input.EdgePress
	} else {
		ev.Edge = input.EdgeRelease
	}
	return ec.withEvent(ev)
}

// runList executes an action list in order. A Pause node splits the
// list: the remaining siblings run after the pause duration, carrying
// the same event. The continuation goes through the scheduler, so it
// is a fresh work item and is cancelled with the binding's other
// timers.
func (e *Engine) runList(ec *evalCtx, ids []action.ID) {
	for i, id := range ids {
		n, ok := e.profile.Library.Get(id)
		if !ok {
			e.log.Warn("dangling action reference %d", id)
			continue
		}
		if p, isPause := n.(*action.Pause); isPause {
			if p.Duration <= 0 {
				continue
			}
			rest := ids[i+1:]
			if len(rest) == 0 {
				return
			}
			e.scheduleFor(ec.binding.ID, p.Duration, func(time.Time) {
				e.runList(ec, rest)
			})
			return
		}
		e.eval(ec, id, n)
	}
}

// runPaused is the reduced walk used while dispatch is paused: it
// descends through every container and executes only pause and
// resume nodes.
func (e *Engine) runPaused(ids []action.ID) {
	for _, id := range ids {
		n, ok := e.profile.Library.Get(id)
		if !ok {
			continue
		}
		if pr, ok := n.(*action.PauseResume); ok {
			e.execPauseResume(pr)
			continue
		}
		e.runPaused(action.Children(n))
	}
}

func (e *Engine) eval(ec *evalCtx, id action.ID, n action.Node) {
	switch v := n.(type) {
	case *action.MapToVJoy:
		e.execVJoy(ec, v)
	case *action.MapToKeyboard:
		e.execKeyboard(ec, v)
	case *action.MapToMouse:
		e.execMouse(ec, id, v)
	case *action.MapToLogicalDevice:
		e.execLogical(ec, v)
	case *action.Macro:
		e.execMacro(ec, id, v)
	case *action.Pause:
		// Interpreted by runList; alone it delays nothing.
	case *action.Chain:
		e.execChain(ec, id, v)
	case *action.Condition:
		e.execCondition(ec, v)
	case *action.Tempo:
		e.execTempo(ec, id, v)
	case *action.DoubleTap:
		e.execDoubleTap(ec, id, v)
	case *action.SmartToggle:
		e.execSmartToggle(ec, id, v)
	case *action.HatButtons:
		e.execHatButtons(ec, id, v)
	case *action.PauseResume:
		if ec.event.Edge == input.EdgePress {
			e.execPauseResume(v)
		}
	case *action.ChangeMode:
		e.execChangeMode(ec, v)
	case *action.MergeAxis:
		e.execMergeAxis(ec, v)
	case *action.ResponseCurve:
		e.execResponseCurve(ec, v)
	case *action.DualAxisDeadzone:
		e.execDualAxisDeadzone(ec, v)
	case *action.SplitAxis:
		e.execSplitAxis(ec, v)
	case *action.Description:
	case *action.Reference:
		if t, ok := e.profile.Library.Get(v.Target); ok {
			e.eval(ec, v.Target, t)
		} else {
			e.log.Warn("reference to missing action %d", v.Target)
		}
	}
}

// leafErr logs a failed output call. Output failures are per-event
// no-ops and never stop sibling evaluation.
func (e *Engine) leafErr(what string, err error) {
	if err != nil {
		e.log.Warn("%s output failed: %v", what, err)
	}
}

// axisOf derives an axis position from an event: axis motion passes
// through, button edges map to full deflection.
func axisOf(ev input.Event) float64 {
	switch ev.Edge {
	case input.EdgePress:
		return 1
	case input.EdgeRelease:
		return -1
	}
	return ev.Value.Axis
}

func (e *Engine) execVJoy(ec *evalCtx, v *action.MapToVJoy) {
	switch v.Target {
	case input.TypeAxis:
		e.leafErr("vjoy", e.vjoy.SetAxis(v.Device, v.Index, axisOf(ec.event)))
	case input.TypeButton:
		switch ec.event.Edge {
		case input.EdgePress:
			e.leafErr("vjoy", e.vjoy.SetButton(v.Device, v.Index, true))
		case input.EdgeRelease:
			e.leafErr("vjoy", e.vjoy.SetButton(v.Device, v.Index, false))
		}
	case input.TypeHat:
		e.leafErr("vjoy", e.vjoy.SetHat(v.Device, v.Index, ec.event.Value.Hat))
	}
}

func (e *Engine) execKeyboard(ec *evalCtx, v *action.MapToKeyboard) {
	switch ec.event.Edge {
	case input.EdgePress:
		e.leafErr("keyboard", e.keyboard.KeyPress(v.Key))
	case input.EdgeRelease:
		e.leafErr("keyboard", e.keyboard.KeyRelease(v.Key))
	}
}

func (e *Engine) execLogical(ec *evalCtx, v *action.MapToLogicalDevice) {
	dev := e.logical.Device(v.Device)
	switch v.Target {
	case input.TypeAxis:
		e.leafErr("logical", dev.SetAxis(v.Index, axisOf(ec.event)))
	case input.TypeButton:
		switch ec.event.Edge {
		case input.EdgePress:
			e.leafErr("logical", dev.SetButton(v.Index, true))
		case input.EdgeRelease:
			e.leafErr("logical", dev.SetButton(v.Index, false))
		}
	case input.TypeHat:
		e.leafErr("logical", dev.SetHat(v.Index, ec.event.Value.Hat))
	}
}

// execChain runs one child group per press and advances to the next.
// The release goes to the group the press activated, so press and
// release pairs stay matched. A timeout restarts the sequence from
// the first group.
func (e *Engine) execChain(ec *evalCtx, id action.ID, v *action.Chain) {
	if len(v.Groups) == 0 {
		return
	}
	bid := ec.binding.ID
	st := e.chainStateFor(stateKey{bid, id})

	switch ec.event.Edge {
	case input.EdgePress:
		idx := st.next % len(v.Groups)
		e.runList(ec, v.Groups[idx])
		st.last = idx
		st.next = (idx + 1) % len(v.Groups)
		st.active = true
		if v.Timeout > 0 {
			e.cancelFor(bid, st.timer)
			st.timer = e.scheduleFor(bid, v.Timeout, func(time.Time) {
				st.timer = 0
				st.next = 0
			})
		}
	case input.EdgeRelease:
		if !st.active {
			return
		}
		e.runList(ec, v.Groups[st.last%len(v.Groups)])
	}
}

func (e *Engine) execCondition(ec *evalCtx, v *action.Condition) {
	if e.compare(ec, &v.Comparator) {
		e.runList(ec, v.True)
	} else {
		e.runList(ec, v.False)
	}
}

// compare evaluates a comparator against an input's current value. A
// comparator without an input reads the triggering event, which for
// virtual buttons is the synthesized value rather than the raw axis.
// An input never seen reads as the zero value.
func (e *Engine) compare(ec *evalCtx, c *action.Comparator) bool {
	var val input.Value
	if c.Input.Type == 0 || c.Input == ec.event.ID {
		val = ec.event.Value
	} else {
		val = e.inputs[c.Input]
	}

	switch c.Kind {
	case action.ComparePressed:
		return val.Pressed == c.Pressed
	case action.CompareRange:
		return val.Axis >= c.Lower && val.Axis <= c.Upper
	case action.CompareDirection:
		return c.Directions.Contains(val.Hat)
	}
	return false
}

// execTempo distinguishes short and long presses. The press arms the
// threshold timer and executes nothing. A release before expiry runs
// the short list with the stored press and the release; expiry either
// runs the long list at once (activate on press) or marks it due so
// the release delivers both edges (activate on release). A press
// while a timer is armed restarts the window.
func (e *Engine) execTempo(ec *evalCtx, id action.ID, v *action.Tempo) {
	bid := ec.binding.ID
	st := e.tempoStateFor(stateKey{bid, id})

	switch ec.event.Edge {
	case input.EdgePress:
		e.cancelFor(bid, st.timer)
		st.pending = true
		st.longDone = false
		st.press = ec.event
		st.timer = e.scheduleFor(bid, v.Threshold, func(time.Time) {
			st.timer = 0
			st.pending = false
			st.longDone = true
			if v.ActivateOn == action.ActivateOnPress {
				e.runList(ec, v.Long)
			}
		})
	case input.EdgeRelease:
		switch {
		case st.pending:
			e.cancelFor(bid, st.timer)
			st.timer = 0
			st.pending = false
			e.runList(ec.withEvent(st.press), v.Short)
			e.runList(ec, v.Short)
		case st.longDone:
			st.longDone = false
			if v.ActivateOn == action.ActivateOnPress {
				e.runList(ec, v.Long)
			} else {
				e.runList(ec.withEvent(st.press), v.Long)
				e.runList(ec, v.Long)
			}
		}
	}
}

// execDoubleTap separates single and double taps inside a threshold
// window. A second press inside the window runs the double list, plus
// the single list in combined mode, and the trailing release follows
// to whatever ran. With one press only, expiry runs the single list:
// eagerly in exclusive mode, at release time in combined mode.
func (e *Engine) execDoubleTap(ec *evalCtx, id action.ID, v *action.DoubleTap) {
	bid := ec.binding.ID
	st := e.doubleTapStateFor(stateKey{bid, id})

	switch ec.event.Edge {
	case input.EdgePress:
		if st.waiting {
			e.cancelFor(bid, st.timer)
			st.timer = 0
			st.waiting = false
			st.route = st.route[:0]
			if v.Mode == action.TapCombined {
				e.runList(ec, v.Single)
				st.route = append(st.route, v.Single)
			}
			e.runList(ec, v.Double)
			st.route = append(st.route, v.Double)
			return
		}
		st.waiting = true
		st.released = false
		st.press = ec.event
		st.route = st.route[:0]
		st.timer = e.scheduleFor(bid, v.Threshold, func(time.Time) {
			st.timer = 0
			st.waiting = false
			if v.Mode == action.TapExclusive {
				e.runList(ec, v.Single)
				if st.released {
					e.runList(ec.withEvent(st.release), v.Single)
				} else {
					st.route = append(st.route, v.Single)
				}
				return
			}
			if st.released {
				e.runList(ec, v.Single)
				e.runList(ec.withEvent(st.release), v.Single)
			} else {
				st.deferred = true
			}
		})
	case input.EdgeRelease:
		switch {
		case st.waiting:
			st.released = true
			st.release = ec.event
		case st.deferred:
			st.deferred = false
			e.runList(ec.withEvent(st.press), v.Single)
			e.runList(ec, v.Single)
		case len(st.route) > 0:
			for _, list := range st.route {
				e.runList(ec, list)
			}
			st.route = st.route[:0]
		}
	}
}

// execSmartToggle passes long holds through and latches short taps.
// A latched press stays down, without re-pressing, until the next
// short tap releases it; holding past the delay while latched
// converts back to passthrough.
func (e *Engine) execSmartToggle(ec *evalCtx, id action.ID, v *action.SmartToggle) {
	bid := ec.binding.ID
	st := e.smartToggleStateFor(stateKey{bid, id})

	switch ec.event.Edge {
	case input.EdgePress:
		switch st.phase {
		case toggleIdle:
			e.runList(ec, v.Children)
			st.phase = toggleHolding
			st.timer = e.scheduleFor(bid, v.Delay, func(time.Time) {
				st.timer = 0
				st.phase = toggleHeld
			})
		case toggleLatched:
			st.phase = toggleLatchedHolding
			st.timer = e.scheduleFor(bid, v.Delay, func(time.Time) {
				st.timer = 0
				st.phase = toggleHeld
			})
		}
	case input.EdgeRelease:
		switch st.phase {
		case toggleHolding:
			e.cancelFor(bid, st.timer)
			st.timer = 0
			st.phase = toggleLatched
		case toggleHeld:
			e.runList(ec, v.Children)
			st.phase = toggleIdle
		case toggleLatchedHolding:
			e.cancelFor(bid, st.timer)
			st.timer = 0
			e.runList(ec, v.Children)
			st.phase = toggleIdle
		}
	}
}

// execHatButtons releases the previous direction's list and presses
// the current one's. Directions without a configured list, such as
// diagonals on a four way hat, activate nothing.
func (e *Engine) execHatButtons(ec *evalCtx, id action.ID, v *action.HatButtons) {
	st := e.hatStateFor(stateKey{ec.binding.ID, id})
	cur := ec.event.Value.Hat
	if cur == st.prev {
		return
	}

	if st.prev != input.Center {
		if list, ok := v.Children[st.prev]; ok {
			e.runList(ec.withButton(false), list)
		}
	}
	if cur != input.Center {
		if list, ok := v.Children[cur]; ok {
			e.runList(ec.withButton(true), list)
		}
	}
	st.prev = cur
}

func (e *Engine) execPauseResume(v *action.PauseResume) {
	switch v.Operation {
	case action.OpPause:
		e.setPaused(true)
	case action.OpResume:
		e.setPaused(false)
	case action.OpToggle:
		e.setPaused(!e.paused.Load())
	}
}

// execChangeMode delegates to the mode stack on press edges. Unknown
// targets are logged and skipped; the rest of the tree keeps running.
func (e *Engine) execChangeMode(ec *evalCtx, v *action.ChangeMode) {
	if ec.event.Edge != input.EdgePress {
		return
	}

	switch v.Change {
	case action.ModeSwitch:
		name, ok := e.modeTarget(v)
		if !ok {
			return
		}
		e.modes.Switch(name)
	case action.ModePrevious:
		e.modes.Previous()
	case action.ModeUnwind:
		e.modes.Unwind()
	case action.ModeCycle:
		targets := make([]string, 0, len(v.Targets))
		for _, name := range v.Targets {
			if e.profile.Modes[name] == nil {
				e.log.Warn("cycle skips unknown mode %q", name)
				continue
			}
			targets = append(targets, name)
		}
		if len(targets) == 0 {
			return
		}
		e.modes.Cycle(targets)
	case action.ModeTemporary:
		name, ok := e.modeTarget(v)
		if !ok {
			return
		}
		depth := e.modes.Temporary(name)
		e.pushTemporary(ec, name, depth)
	}
}

func (e *Engine) modeTarget(v *action.ChangeMode) (string, bool) {
	if len(v.Targets) == 0 {
		e.log.Warn("%s change without a target mode", v.Change)
		return "", false
	}
	name := v.Targets[0]
	if e.profile.Modes[name] == nil {
		e.log.Warn("%s change to unknown mode %q", v.Change, name)
		return "", false
	}
	return name, true
}

func (e *Engine) execMergeAxis(ec *evalCtx, v *action.MergeAxis) {
	a := ec.event.Value.Axis
	b := e.inputs[v.Other].Axis

	var merged float64
	switch v.Operation {
	case action.MergeMinimum:
		merged = math.Min(a, b)
	case action.MergeMaximum:
		merged = math.Max(a, b)
	case action.MergeSum:
		merged = input.ClampAxis(a + b)
	default:
		merged = (a + b) / 2
	}
	e.runList(ec.withAxis(merged), v.Children)
}

func (e *Engine) execResponseCurve(ec *evalCtx, v *action.ResponseCurve) {
	e.runList(ec.withAxis(v.Apply(ec.event.Value.Axis)), v.Children)
}

func (e *Engine) execDualAxisDeadzone(ec *evalCtx, v *action.DualAxisDeadzone) {
	x := ec.event.Value.Axis
	y := e.inputs[v.Other].Axis
	e.runList(ec.withAxis(v.Apply(x, y)), v.Children)
}

// execSplitAxis routes the event to the low or high list and rescales
// the value so each half spans the full axis range.
func (e *Engine) execSplitAxis(ec *evalCtx, v *action.SplitAxis) {
	a := ec.event.Value.Axis
	if a < v.Split {
		out := -1.0
		if span := v.Split + 1; span > 0 {
			out = input.ClampAxis(2*(a+1)/span - 1)
		}
		e.runList(ec.withAxis(out), v.Low)
	} else {
		out := 1.0
		if span := 1 - v.Split; span > 0 {
			out = input.ClampAxis(2*(a-v.Split)/span - 1)
		}
		e.runList(ec.withAxis(out), v.High)
	}
}
