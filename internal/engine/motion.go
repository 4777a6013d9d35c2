package engine

import (
	"math"
	"time"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/sched"
)

// motionTick is the cadence of synthetic pointer movement.
const motionTick = 20 * time.Millisecond

// motionState drives continuous mouse output for one MapToMouse
// instance. step is the signed per-tick amount; the fractional
// remainder accumulates so slow speeds still move.
type motionState struct {
	handle sched.Handle
	step   float64
	acc    float64
}

// execMouse translates an event into mouse output. Buttons follow
// edges directly; motion and wheel targets run on a repeating timer
// whose speed tracks the axis deflection.
func (e *Engine) execMouse(ec *evalCtx, id action.ID, v *action.MapToMouse) {
	switch v.Target {
	case action.MouseButton:
		switch ec.event.Edge {
		case input.EdgePress:
			e.leafErr("mouse", e.mouse.MouseButtonPress(v.Button))
		case input.EdgeRelease:
			e.leafErr("mouse", e.mouse.MouseButtonRelease(v.Button))
		}
	case action.MouseMotionX, action.MouseMotionY:
		e.setMotion(ec, id, v.Target, e.motionSpeed(ec.event, v))
	case action.MouseWheel:
		e.execWheel(ec, id, v)
	}
}

// motionSpeed derives the signed speed in units per second. A press
// runs at full speed, a release stops, and axis deflection
// interpolates between the minimum and maximum.
func (e *Engine) motionSpeed(ev input.Event, v *action.MapToMouse) float64 {
	switch ev.Edge {
	case input.EdgePress:
		return v.MaxSpeed
	case input.EdgeRelease:
		return 0
	}
	a := ev.Value.Axis
	if a == 0 {
		return 0
	}
	mag := v.MinSpeed + (v.MaxSpeed-v.MinSpeed)*math.Abs(a)
	return math.Copysign(mag, a)
}

// execWheel emits one notch per button press, or continuous notches
// for axis input at the interpolated rate.
func (e *Engine) execWheel(ec *evalCtx, id action.ID, v *action.MapToMouse) {
	switch ec.event.Edge {
	case input.EdgePress:
		notch := 1
		if v.MaxSpeed < 0 {
			notch = -1
		}
		e.leafErr("mouse", e.mouse.MouseWheel(notch))
	case input.EdgeRelease:
	default:
		e.setMotion(ec, id, action.MouseWheel, e.motionSpeed(ec.event, v))
	}
}

// setMotion starts, retunes, or stops the repeating timer for one
// motion instance.
func (e *Engine) setMotion(ec *evalCtx, id action.ID, target action.MouseTarget, speed float64) {
	bid := ec.binding.ID
	key := stateKey{bid, id}

	if speed == 0 {
		if st, ok := e.state[key].(*motionState); ok {
			e.cancelFor(bid, st.handle)
			delete(e.state, key)
		}
		return
	}

	st := e.motionStateFor(key)
	st.step = speed * motionTick.Seconds()
	if st.handle == 0 {
		st.handle = e.scheduleRepeatingFor(bid, motionTick, func(time.Time) {
			e.motionStep(st, target)
		})
	}
}

func (e *Engine) motionStep(st *motionState, target action.MouseTarget) {
	st.acc += st.step
	units := int(st.acc)
	if units == 0 {
		return
	}
	st.acc -= float64(units)

	var err error
	switch target {
	case action.MouseMotionX:
		err = e.mouse.MouseMove(units, 0)
	case action.MouseMotionY:
		err = e.mouse.MouseMove(0, units)
	case action.MouseWheel:
		err = e.mouse.MouseWheel(units)
	}
	e.leafErr("mouse", err)
}
