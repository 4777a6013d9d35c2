package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/input/virtual"
	"github.com/joyrig/joyrig/internal/logging"
	"github.com/joyrig/joyrig/internal/mode"
	"github.com/joyrig/joyrig/internal/output"
	"github.com/joyrig/joyrig/internal/profile"
	"github.com/joyrig/joyrig/internal/sched"
)

// DefaultQueueSize bounds the work queue when the config does not.
const DefaultQueueSize = 256

// Config collects engine construction parameters. Nil sinks fall back
// to in-memory or log-only implementations, a nil clock to the wall
// clock.
type Config struct {
	Profile     *profile.Profile
	Clock       sched.Clock
	VJoy        output.VJoy
	Keyboard    output.KeySender
	Mouse       output.MouseSender
	Log         *logging.Logger
	QueueSize   int
	CyclePolicy mode.CyclePolicy
}

// Engine is the action execution core.
type Engine struct {
	log    *logging.Logger
	clock  sched.Clock
	timers *sched.Scheduler

	queue    chan func()
	stopped  chan struct{}
	stopOnce sync.Once

	paused *atomic.Bool
	active *atomic.String
	events *atomic.Uint64

	vjoy     output.VJoy
	keyboard output.KeySender
	mouse    output.MouseSender
	logical  *output.LogicalRegistry

	// Everything below is owned by the loop goroutine. Off-loop
	// access goes through Submit or Call.
	profile     *profile.Profile
	modes       *mode.Stack
	byID        map[profile.BindingID]*profile.Binding
	inputs      map[input.Identifier]input.Value
	virtual     map[profile.BindingID]virtual.Button
	state       map[stateKey]any
	handles     map[profile.BindingID]map[sched.Handle]struct{}
	temporary   map[input.Identifier][]tempEntry
	gate        macroGate
	modeChanged bool
	inputHooks  []func(input.Event)
	modeHooks   []func(previous, current string)
}

// New assembles an engine around a finalized profile. Nothing is
// processed until Run is called.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logging.Null
	}
	clock := cfg.Clock
	if clock == nil {
		clock = sched.RealClock{}
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	p := cfg.Profile
	if p == nil {
		p = profile.New("empty")
		p.AddMode("default", "")
		p.Startup = "default"
		_, _ = p.Finalize()
	}

	e := &Engine{
		log:      log.WithComponent("engine"),
		clock:    clock,
		timers:   sched.NewScheduler(clock),
		queue:    make(chan func(), size),
		stopped:  make(chan struct{}),
		paused:   atomic.NewBool(false),
		active:   atomic.NewString(""),
		events:   atomic.NewUint64(0),
		vjoy:     cfg.VJoy,
		keyboard: cfg.Keyboard,
		mouse:    cfg.Mouse,
	}
	if e.vjoy == nil {
		e.vjoy = output.NewVJoyState(output.DefaultVJoyConfig(), log)
	}
	if e.keyboard == nil {
		e.keyboard = output.NewLogKeyboard(log)
	}
	if e.mouse == nil {
		e.mouse = output.NewLogMouse(log)
	}
	e.logical = output.NewLogicalRegistry(e.enqueueLogical, log.WithComponent("logical"))
	e.modes = mode.NewStack(p.Startup, cfg.CyclePolicy)
	e.modes.OnChange(e.onModeChange)
	e.installProfile(p)
	return e
}

// Run drives the engine loop until ctx is cancelled. Queued work and
// due timers are serviced on this goroutine only.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine running, profile %q, mode %q", e.profile.Name, e.modes.Active())
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		var due <-chan time.Time
		if next, ok := e.timers.NextDue(); ok {
			d := next.Sub(e.clock.Now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
			due = timer.C
		}

		select {
		case <-ctx.Done():
			e.stop()
			return nil
		case fn := <-e.queue:
			fn()
		case now := <-due:
			due = nil
			e.timers.Fire(now)
		}

		if due != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

func (e *Engine) stop() {
	e.stopOnce.Do(func() {
		close(e.stopped)
		e.timers.CancelAll()
		e.log.Info("engine stopped")
	})
}

// Submit enqueues work for the engine loop. Safe from any goroutine.
func (e *Engine) Submit(fn func()) error {
	select {
	case e.queue <- fn:
		return nil
	case <-e.stopped:
		return ErrStopped
	}
}

// Call runs fn on the engine loop and waits for its result.
func (e *Engine) Call(fn func() error) error {
	done := make(chan error, 1)
	if err := e.Submit(func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-e.stopped:
		return ErrStopped
	}
}

// HandleEvent marshals one input event onto the engine loop. Safe
// from any goroutine; sources use it as their sink.
func (e *Engine) HandleEvent(ev input.Event) error {
	return e.Submit(func() { e.processEvent(ev) })
}

// enqueueLogical feeds logical device output back in as input. It
// runs on the loop during evaluation, so the send must not block on
// the loop's own queue.
func (e *Engine) enqueueLogical(ev input.Event) {
	select {
	case e.queue <- func() { e.processEvent(ev) }:
	case <-e.stopped:
	default:
		e.log.Warn("queue full, dropping logical event %s", ev)
	}
}

// processEvent resolves the binding for one event, synthesizes the
// virtual button edge when configured, evaluates the bound trees, and
// settles temporary modes on release.
func (e *Engine) processEvent(ev input.Event) {
	e.events.Inc()
	e.inputs[ev.ID] = ev.Value

	var updated virtual.Button
	edge := ev.Edge
	b := e.profile.Resolve(ev.ID, e.modes.Active())
	if b != nil && b.Virtual != nil {
		updated = e.virtualFor(b)
		edge = updated.Update(ev.Value)
	}

	if b != nil {
		if b.Virtual != nil {
			if edge != input.EdgeNone {
				e.evaluateBinding(b, input.Event{
					ID:    ev.ID,
					Value: input.ButtonValue(edge == input.EdgePress),
					Edge:  edge,
					Time:  ev.Time,
				})
			}
		} else {
			e.evaluateBinding(b, ev)
		}
	}

	e.settleTemporary(ev, updated, edge)
	for _, fn := range e.inputHooks {
		fn(ev)
	}
	e.sweepIfChanged()
}

func (e *Engine) evaluateBinding(b *profile.Binding, ev input.Event) {
	ec := &evalCtx{binding: b, event: ev}
	if e.paused.Load() {
		// Reduced walk: only pause and resume nodes stay reachable.
		if ev.Edge == input.EdgePress {
			e.runPaused(b.Roots)
		}
		return
	}
	e.runList(ec, b.Roots)
}

// virtualFor returns the binding's virtual button, creating it on
// first use. Instances follow the physical input, so they survive
// mode changes and reset only on profile swap.
func (e *Engine) virtualFor(b *profile.Binding) virtual.Button {
	if vb, ok := e.virtual[b.ID]; ok {
		return vb
	}
	vb := b.Virtual.New()
	e.virtual[b.ID] = vb
	return vb
}

func (e *Engine) onModeChange(previous, current string) {
	e.active.Store(current)
	e.modeChanged = true
	e.log.Info("mode %q -> %q", previous, current)
	for _, fn := range e.modeHooks {
		fn(previous, current)
	}
}

// sweepIfChanged tears down runtime state of bindings that fell out
// of scope after a mode change. It runs at the end of each work item
// rather than inside the change, so actions evaluating after a
// ChangeMode sibling in the same tree cannot leave state behind.
func (e *Engine) sweepIfChanged() {
	if !e.modeChanged {
		return
	}
	e.modeChanged = false

	active := e.modes.Active()
	stale := make(map[profile.BindingID]bool)
	for bid := range e.handles {
		if e.outOfScope(bid, active) {
			stale[bid] = true
		}
	}
	for key := range e.state {
		if e.outOfScope(key.binding, active) {
			stale[key.binding] = true
		}
	}
	for bid := range stale {
		e.teardownBinding(bid)
	}
}

// outOfScope reports whether the binding no longer wins resolution
// for its input under the active mode.
func (e *Engine) outOfScope(bid profile.BindingID, active string) bool {
	b := e.byID[bid]
	if b == nil {
		return true
	}
	return e.profile.Resolve(b.Input, active) != b
}

// SwapProfile replaces the loaded profile without restarting the
// engine. All timers and action state are discarded; the active mode
// is kept when the new profile still defines it and falls back to the
// new startup mode otherwise.
func (e *Engine) SwapProfile(p *profile.Profile) error {
	if p == nil {
		return ErrNilProfile
	}
	return e.Call(func() error {
		e.installProfile(p)
		return nil
	})
}

func (e *Engine) installProfile(p *profile.Profile) {
	e.timers.CancelAll()
	e.state = make(map[stateKey]any)
	e.handles = make(map[profile.BindingID]map[sched.Handle]struct{})
	e.temporary = make(map[input.Identifier][]tempEntry)
	e.virtual = make(map[profile.BindingID]virtual.Button)
	e.gate = macroGate{}
	if e.inputs == nil {
		e.inputs = make(map[input.Identifier]input.Value)
	}

	e.profile = p
	e.byID = make(map[profile.BindingID]*profile.Binding, len(p.Bindings))
	for _, b := range p.Bindings {
		e.byID[b.ID] = b
	}

	start := p.Startup
	if active := e.modes.Active(); active != "" && p.Modes[active] != nil {
		start = active
	}
	e.modes.Reset(start)
	e.active.Store(e.modes.Active())
	e.modeChanged = false

	e.log.Info("profile %q installed: %d modes, %d bindings",
		p.Name, len(p.Modes), len(p.Bindings))
}

// SwitchMode activates a mode by name. Callable from any goroutine;
// action trees reach the same stack through ChangeMode nodes.
func (e *Engine) SwitchMode(name string) error {
	return e.Call(func() error { return e.Ops().SwitchMode(name) })
}

// PreviousMode toggles between the two most recent modes.
func (e *Engine) PreviousMode() error {
	return e.Call(func() error { return e.Ops().PreviousMode() })
}

// UnwindMode pops the active mode off the stack.
func (e *Engine) UnwindMode() error {
	return e.Call(func() error { return e.Ops().UnwindMode() })
}

// CycleModes advances through the target list from the active mode.
func (e *Engine) CycleModes(targets []string) error {
	return e.Call(func() error { return e.Ops().CycleModes(targets) })
}

// ActiveMode returns the current mode without touching the loop.
func (e *Engine) ActiveMode() string {
	return e.active.Load()
}

// Pause suspends action dispatch. In-flight macros and armed timers
// keep running; new input only reaches pause and resume nodes.
func (e *Engine) Pause() { e.setPaused(true) }

// Resume lifts a pause.
func (e *Engine) Resume() { e.setPaused(false) }

// TogglePause flips the paused state and returns the new value.
func (e *Engine) TogglePause() bool {
	on := !e.paused.Load()
	e.setPaused(on)
	return on
}

// Paused reports whether dispatch is paused.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

func (e *Engine) setPaused(on bool) {
	if e.paused.Swap(on) != on {
		if on {
			e.log.Info("processing paused")
		} else {
			e.log.Info("processing resumed")
		}
	}
}

// Logical exposes the logical device registry so plugins can allocate
// intermediate devices.
func (e *Engine) Logical() *output.LogicalRegistry {
	return e.logical
}

// Status is a point-in-time snapshot of engine state.
type Status struct {
	Profile        string                `json:"profile"`
	ActiveMode     string                `json:"active_mode"`
	ModeStack      []string              `json:"mode_stack"`
	Modes          []string              `json:"modes"`
	Paused         bool                  `json:"paused"`
	Events         uint64                `json:"events"`
	Bindings       int                   `json:"bindings"`
	Timers         int                   `json:"timers"`
	LogicalDevices []string              `json:"logical_devices,omitempty"`
	VJoy           []output.VJoySnapshot `json:"vjoy,omitempty"`
}

// Status snapshots the engine on its own loop.
func (e *Engine) Status() (Status, error) {
	var st Status
	err := e.Call(func() error {
		st = e.snapshot()
		return nil
	})
	return st, err
}

func (e *Engine) snapshot() Status {
	st := Status{
		Profile:    e.profile.Name,
		ActiveMode: e.modes.Active(),
		ModeStack:  e.modes.Entries(),
		Modes:      e.profile.ModeNames(),
		Paused:     e.paused.Load(),
		Events:     e.events.Load(),
		Bindings:   len(e.profile.Bindings),
		Timers:     e.timers.Len(),
	}
	for _, d := range e.logical.Devices() {
		st.LogicalDevices = append(st.LogicalDevices, d.Name())
	}
	if vs, ok := e.vjoy.(*output.VJoyState); ok {
		st.VJoy = vs.Snapshot()
	}
	return st
}
