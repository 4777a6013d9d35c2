// Package mode manages the runtime stack of active modes.
//
// The stack is owned by the engine loop and mutated only there, so it
// carries no locks. The top entry is the active mode; the stack is
// never empty while the engine runs.
package mode

import (
	"fmt"
	"strings"
)

// CyclePolicy resolves how Cycle behaves after the last target of its
// list.
type CyclePolicy int

const (
	// WrapToFirst returns to the first target after the last.
	WrapToFirst CyclePolicy = iota
	// StopAtEnd stays on the last target.
	StopAtEnd
)

// String returns the policy name.
func (p CyclePolicy) String() string {
	switch p {
	case WrapToFirst:
		return "wrap"
	case StopAtEnd:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseCyclePolicy parses a policy name.
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch strings.ToLower(s) {
	case "wrap", "":
		return WrapToFirst, nil
	case "stop":
		return StopAtEnd, nil
	default:
		return WrapToFirst, fmt.Errorf("unknown cycle policy %q", s)
	}
}

// ChangeFunc observes active-mode changes.
type ChangeFunc func(previous, current string)

// Stack is the runtime mode stack. Not safe for concurrent use.
type Stack struct {
	entries  []string
	policy   CyclePolicy
	onChange []ChangeFunc
}

// NewStack creates a stack seeded with the startup mode.
func NewStack(startup string, policy CyclePolicy) *Stack {
	return &Stack{
		entries: []string{startup},
		policy:  policy,
	}
}

// Active returns the current top of the stack.
func (s *Stack) Active() string {
	return s.entries[len(s.entries)-1]
}

// Depth returns the number of stacked entries.
func (s *Stack) Depth() int {
	return len(s.entries)
}

// Entries returns a copy of the stack, bottom first.
func (s *Stack) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Policy returns the configured cycle policy.
func (s *Stack) Policy() CyclePolicy {
	return s.policy
}

// OnChange registers an observer. Observers run synchronously after a
// mutation that changed the active mode.
func (s *Stack) OnChange(fn ChangeFunc) {
	s.onChange = append(s.onChange, fn)
}

// notify fires observers when the active mode actually changed.
func (s *Stack) notify(previous string) {
	current := s.Active()
	if current == previous {
		return
	}
	for _, fn := range s.onChange {
		fn(previous, current)
	}
}

// Switch pushes name as the new active mode.
func (s *Stack) Switch(name string) {
	previous := s.Active()
	s.entries = append(s.entries, name)
	s.notify(previous)
}

// Previous swaps the two topmost entries, so repeated calls toggle
// between the same two modes. No-op with fewer than two entries.
func (s *Stack) Previous() {
	n := len(s.entries)
	if n < 2 {
		return
	}
	previous := s.Active()
	s.entries[n-1], s.entries[n-2] = s.entries[n-2], s.entries[n-1]
	s.notify(previous)
}

// Unwind pops the active mode, activating the entry beneath it. A
// single-entry stack stays untouched.
func (s *Stack) Unwind() {
	if len(s.entries) < 2 {
		return
	}
	previous := s.Active()
	s.entries = s.entries[:len(s.entries)-1]
	s.notify(previous)
}

// Cycle advances through targets relative to the active mode: from a
// mode inside the list it moves to the next entry, from anywhere else
// it moves to the first. Duplicate list entries resolve to the first
// occurrence. The end of the list follows the configured policy.
func (s *Stack) Cycle(targets []string) {
	if len(targets) == 0 {
		return
	}

	next := targets[0]
	pos := -1
	for i, name := range targets {
		if name == s.Active() {
			pos = i
			break
		}
	}
	if pos >= 0 {
		if pos == len(targets)-1 {
			if s.policy == StopAtEnd {
				return
			}
			next = targets[0]
		} else {
			next = targets[pos+1]
		}
	}

	s.Switch(next)
}

// Temporary pushes name and returns the stack depth recorded before
// the push. ReleaseTemporary restores that depth later.
func (s *Stack) Temporary(name string) int {
	depth := len(s.entries)
	s.Switch(name)
	return depth
}

// ReleaseTemporary pops the stack back to depth, but only while name
// is still the active mode; if the user has since switched further
// the release is skipped. Reports whether the stack was restored.
func (s *Stack) ReleaseTemporary(name string, depth int) bool {
	if depth < 1 || depth >= len(s.entries) {
		return false
	}
	if s.Active() != name {
		return false
	}
	previous := s.Active()
	s.entries = s.entries[:depth]
	s.notify(previous)
	return true
}

// Reset replaces the whole stack with a single startup entry.
func (s *Stack) Reset(startup string) {
	previous := s.Active()
	s.entries = s.entries[:0]
	s.entries = append(s.entries, startup)
	s.notify(previous)
}
