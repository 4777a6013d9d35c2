package engine

import (
	"time"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/input/virtual"
	"github.com/joyrig/joyrig/internal/profile"
	"github.com/joyrig/joyrig/internal/sched"
)

// stateKey addresses one action instance. Keying by binding and
// action keeps two bindings that share a library action from sharing
// timers or toggle flags.
type stateKey struct {
	binding profile.BindingID
	action  action.ID
}

// tempEntry records one temporary mode push awaiting the release of
// its triggering input. vb is set when the trigger was a virtual
// button, whose release must be tracked even after a mode change
// rebinds the raw input.
type tempEntry struct {
	name  string
	depth int
	vb    virtual.Button
}

type tempoState struct {
	timer    sched.Handle
	pending  bool
	longDone bool
	press    input.Event
}

type doubleTapState struct {
	timer    sched.Handle
	waiting  bool
	released bool
	deferred bool
	press    input.Event
	release  input.Event
	route    [][]action.ID
}

type smartTogglePhase int

const (
	toggleIdle smartTogglePhase = iota
	toggleHolding
	toggleHeld
	toggleLatched
	toggleLatchedHolding
)

type smartToggleState struct {
	phase smartTogglePhase
	timer sched.Handle
}

type chainState struct {
	timer  sched.Handle
	next   int
	last   int
	active bool
}

type hatState struct {
	prev input.Direction
}

func (e *Engine) tempoStateFor(key stateKey) *tempoState {
	if st, ok := e.state[key].(*tempoState); ok {
		return st
	}
	st := &tempoState{}
	e.state[key] = st
	return st
}

func (e *Engine) doubleTapStateFor(key stateKey) *doubleTapState {
	if st, ok := e.state[key].(*doubleTapState); ok {
		return st
	}
	st := &doubleTapState{}
	e.state[key] = st
	return st
}

func (e *Engine) smartToggleStateFor(key stateKey) *smartToggleState {
	if st, ok := e.state[key].(*smartToggleState); ok {
		return st
	}
	st := &smartToggleState{}
	e.state[key] = st
	return st
}

func (e *Engine) chainStateFor(key stateKey) *chainState {
	if st, ok := e.state[key].(*chainState); ok {
		return st
	}
	st := &chainState{}
	e.state[key] = st
	return st
}

func (e *Engine) hatStateFor(key stateKey) *hatState {
	if st, ok := e.state[key].(*hatState); ok {
		return st
	}
	st := &hatState{}
	e.state[key] = st
	return st
}

func (e *Engine) macroStateFor(key stateKey) *macroState {
	if st, ok := e.state[key].(*macroState); ok {
		return st
	}
	st := &macroState{}
	e.state[key] = st
	return st
}

func (e *Engine) motionStateFor(key stateKey) *motionState {
	if st, ok := e.state[key].(*motionState); ok {
		return st
	}
	st := &motionState{}
	e.state[key] = st
	return st
}

func (e *Engine) track(bid profile.BindingID, h sched.Handle) {
	m := e.handles[bid]
	if m == nil {
		m = make(map[sched.Handle]struct{})
		e.handles[bid] = m
	}
	m[h] = struct{}{}
}

func (e *Engine) untrack(bid profile.BindingID, h sched.Handle) {
	m := e.handles[bid]
	if m == nil {
		return
	}
	delete(m, h)
	if len(m) == 0 {
		delete(e.handles, bid)
	}
}

// scheduleFor arms a one-shot timer owned by a binding. The handle is
// tracked so teardown can cancel it; it untracks itself when it
// fires. The wrapper also sweeps after the callback, since timer-
// driven work can change modes just like input-driven work.
func (e *Engine) scheduleFor(bid profile.BindingID, delay time.Duration, fn sched.Callback) sched.Handle {
	var h sched.Handle
	h = e.timers.Schedule(delay, func(now time.Time) {
		e.untrack(bid, h)
		fn(now)
		e.sweepIfChanged()
	})
	e.track(bid, h)
	return h
}

// scheduleRepeatingFor arms a repeating timer owned by a binding. It
// stays tracked until cancelled.
func (e *Engine) scheduleRepeatingFor(bid profile.BindingID, period time.Duration, fn sched.Callback) sched.Handle {
	h := e.timers.ScheduleRepeating(period, fn)
	e.track(bid, h)
	return h
}

// cancelFor cancels one tracked timer. A zero handle is a no-op.
func (e *Engine) cancelFor(bid profile.BindingID, h sched.Handle) {
	if h == 0 {
		return
	}
	e.timers.Cancel(h)
	e.untrack(bid, h)
}

// cancelAllFor cancels every timer owned by one binding.
func (e *Engine) cancelAllFor(bid profile.BindingID) {
	for h := range e.handles[bid] {
		e.timers.Cancel(h)
	}
	delete(e.handles, bid)
}

// teardownBinding cancels a binding's timers, aborts its macros, and
// drops its action state. Virtual button instances and the last-value
// registry stay, since they track the physical input rather than the
// binding.
func (e *Engine) teardownBinding(bid profile.BindingID) {
	e.cancelAllFor(bid)
	for key, st := range e.state {
		if key.binding != bid {
			continue
		}
		if ms, ok := st.(*macroState); ok && ms.run != nil {
			e.abortRun(ms.run)
		}
		delete(e.state, key)
	}
	if b := e.byID[bid]; b != nil {
		e.log.Debug("state torn down for %s", b)
	}
}

// pushTemporary records a temporary mode activation against the
// triggering input so its release can settle the stack later.
func (e *Engine) pushTemporary(ec *evalCtx, name string, depth int) {
	id := ec.event.ID
	e.temporary[id] = append(e.temporary[id], tempEntry{
		name:  name,
		depth: depth,
		vb:    e.virtual[ec.binding.ID],
	})
}

// settleTemporary pops temporary modes whose triggering input just
// released. The release is judged against the trigger that pushed the
// mode: the raw edge for buttons and keys, the virtual button for
// synthesized triggers. Entries pop in reverse push order; a pop is
// skipped inside the stack when the user has since switched further.
func (e *Engine) settleTemporary(ev input.Event, updated virtual.Button, edge input.Edge) {
	entries := e.temporary[ev.ID]
	if len(entries) == 0 {
		return
	}

	released := false
	switch trigger := entries[0].vb; {
	case trigger == nil:
		released = ev.Edge == input.EdgeRelease
	case trigger == updated:
		released = edge == input.EdgeRelease
	default:
		// The binding that pushed the mode is no longer resolved, so
		// its virtual button missed this sample. Feed it directly.
		released = trigger.Update(ev.Value) == input.EdgeRelease
	}
	if !released {
		return
	}

	for i := len(entries) - 1; i >= 0; i-- {
		ent := entries[i]
		if !e.modes.ReleaseTemporary(ent.name, ent.depth) {
			e.log.Debug("temporary mode %q pop skipped", ent.name)
		}
	}
	delete(e.temporary, ev.ID)
}
