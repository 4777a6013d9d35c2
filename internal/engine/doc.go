// Package engine executes action trees in response to input events.
//
// The engine owns every piece of mutable runtime state: the loaded
// profile, the mode stack, per-binding action state machines, the
// virtual button instances, and all timers. That state is confined to
// a single goroutine, the engine loop.
//
// # Concurrency
//
// Input capture, the HTTP server, and plugins run on their own
// goroutines and marshal work onto the loop through a serialized
// queue (Submit and Call). Timer callbacks fire on the loop as well.
// One queue item always runs to completion before the next is
// dequeued, so no tree evaluation ever executes inside another and no
// state needs locking. Continuations such as macro steps, pause
// delays, and tempo expiry re-enter through the scheduler, not
// through nested calls.
//
// # State lifetime
//
// Action runtime state is keyed by (binding, action) so two bindings
// sharing a library action never share timers. Leaving a mode tears
// down the state and cancels the timers of every binding that no
// longer wins resolution; swapping profiles discards all of it.
// Dangling timer callbacks are prevented by cancellation, never
// tolerated and checked for at fire time.
package engine
