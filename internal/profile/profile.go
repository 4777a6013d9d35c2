// Package profile holds the loaded configuration the engine runs: the
// mode forest, the action library, and the input bindings. The engine
// consumes a finalized profile read-only.
package profile

import (
	"fmt"
	"sort"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/input/virtual"
)

// Mode is one named layer of bindings with single-parent inheritance.
type Mode struct {
	Name   string
	Parent string
}

// BindingID identifies one loaded binding instance. Runtime state is
// keyed by binding, not by action, so two bindings sharing an action
// never share state.
type BindingID uint64

// Binding attaches an ordered list of root actions to one input in
// one mode.
type Binding struct {
	ID      BindingID
	Input   input.Identifier
	Mode    string
	Virtual *virtual.Spec
	Roots   []action.ID
}

// String returns a compact form for log lines.
func (b *Binding) String() string {
	return fmt.Sprintf("binding %d (%s in %q)", b.ID, b.Input, b.Mode)
}

type bindingKey struct {
	input input.Identifier
	mode  string
}

// Profile is a complete loaded configuration.
type Profile struct {
	Name     string
	Startup  string
	Modes    map[string]*Mode
	Library  *action.Library
	Bindings []*Binding

	byInput map[bindingKey]*Binding
}

// New creates an empty profile.
func New(name string) *Profile {
	return &Profile{
		Name:    name,
		Modes:   make(map[string]*Mode),
		Library: action.NewLibrary(),
	}
}

// AddMode defines a mode. The parent may be empty for a root mode.
func (p *Profile) AddMode(name, parent string) *Mode {
	m := &Mode{Name: name, Parent: parent}
	p.Modes[name] = m
	return m
}

// AddBinding appends a binding. Binding ids are assigned by Finalize.
func (p *Profile) AddBinding(mode string, id input.Identifier, spec *virtual.Spec, roots ...action.ID) *Binding {
	b := &Binding{
		Input:   id,
		Mode:    mode,
		Virtual: spec,
		Roots:   roots,
	}
	p.Bindings = append(p.Bindings, b)
	return b
}

// ModeNames returns all defined mode names, sorted.
func (p *Profile) ModeNames() []string {
	out := make([]string, 0, len(p.Modes))
	for name := range p.Modes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ancestry returns the mode chain starting at name and walking parent
// links up to a root. An unknown mode yields an empty chain.
func (p *Profile) Ancestry(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for cur := name; cur != "" && !seen[cur]; {
		seen[cur] = true
		m, ok := p.Modes[cur]
		if !ok {
			break
		}
		out = append(out, cur)
		cur = m.Parent
	}
	return out
}

// Inherits reports whether candidate is active itself or one of its
// ancestors. Bindings of such modes stay in scope while active is the
// current mode.
func (p *Profile) Inherits(active, candidate string) bool {
	for _, name := range p.Ancestry(active) {
		if name == candidate {
			return true
		}
	}
	return false
}

// Resolve walks the mode chain from mode upward and returns the first
// non-empty binding for the input, or nil when the input is unbound
// in that mode context. Resolution reads the chain on every lookup;
// nothing is cached across mode changes.
func (p *Profile) Resolve(id input.Identifier, mode string) *Binding {
	seen := make(map[string]bool)
	for cur := mode; cur != "" && !seen[cur]; {
		seen[cur] = true
		if b, ok := p.byInput[bindingKey{id, cur}]; ok {
			return b
		}
		m, ok := p.Modes[cur]
		if !ok {
			return nil
		}
		cur = m.Parent
	}
	return nil
}

// Finalize validates the profile, assigns binding ids, drops bindings
// that cannot activate, and builds the resolution index. Structural
// problems with the mode forest fail the whole profile; per-binding
// problems drop only the offending binding and are returned as
// issues.
func (p *Profile) Finalize() ([]string, error) {
	if len(p.Modes) == 0 {
		return nil, fmt.Errorf("profile %q defines no modes", p.Name)
	}

	for name, m := range p.Modes {
		if m.Parent == "" {
			continue
		}
		if _, ok := p.Modes[m.Parent]; !ok {
			return nil, fmt.Errorf("mode %q names unknown parent %q", name, m.Parent)
		}
	}
	if err := p.checkModeCycles(); err != nil {
		return nil, err
	}

	var issues []string
	if p.Startup == "" || p.Modes[p.Startup] == nil {
		if p.Startup != "" {
			issues = append(issues, fmt.Sprintf("startup mode %q is not defined, using %q", p.Startup, p.firstRootMode()))
		}
		p.Startup = p.firstRootMode()
	}

	p.byInput = make(map[bindingKey]*Binding)
	kept := p.Bindings[:0]
	var nextID BindingID
	for _, b := range p.Bindings {
		if reason := p.checkBinding(b); reason != "" {
			issues = append(issues, fmt.Sprintf("dropping binding for %s in %q: %s", b.Input, b.Mode, reason))
			continue
		}
		key := bindingKey{b.Input, b.Mode}
		if _, dup := p.byInput[key]; dup {
			issues = append(issues, fmt.Sprintf("dropping binding for %s in %q: duplicate binding", b.Input, b.Mode))
			continue
		}
		nextID++
		b.ID = nextID
		kept = append(kept, b)
		// Empty bindings stay loaded but never resolve, so they do
		// not shadow an ancestor's binding.
		if len(b.Roots) > 0 {
			p.byInput[key] = b
		}
	}
	p.Bindings = kept

	return issues, nil
}

// checkBinding returns a non-empty reason when the binding must be
// refused.
func (p *Profile) checkBinding(b *Binding) string {
	if _, ok := p.Modes[b.Mode]; !ok {
		return fmt.Sprintf("unknown mode %q", b.Mode)
	}

	if b.Virtual != nil {
		if err := b.Virtual.Validate(); err != nil {
			return err.Error()
		}
		switch b.Virtual.Kind {
		case virtual.KindAxis:
			if b.Input.Type != input.TypeAxis {
				return fmt.Sprintf("axis-range virtual button on %v input", b.Input.Type)
			}
		case virtual.KindHat:
			if b.Input.Type != input.TypeHat {
				return fmt.Sprintf("hat-directions virtual button on %v input", b.Input.Type)
			}
		}
	}

	for _, root := range b.Roots {
		if err := p.Library.CheckTree(root); err != nil {
			return err.Error()
		}
		if err := p.validateTree(root); err != nil {
			return err.Error()
		}
	}
	return ""
}

// validateTree checks every payload reachable from root. CheckTree
// has already established existence and acyclicity.
func (p *Profile) validateTree(root action.ID) error {
	seen := make(map[action.ID]bool)
	var walk func(id action.ID) error
	walk = func(id action.ID) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		n, _ := p.Library.Get(id)
		if err := action.Validate(n); err != nil {
			return fmt.Errorf("action %d: %w", id, err)
		}
		for _, child := range action.Children(n) {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

func (p *Profile) checkModeCycles() error {
	for name := range p.Modes {
		seen := make(map[string]bool)
		for cur := name; cur != ""; {
			if seen[cur] {
				return fmt.Errorf("mode %q is part of a parent cycle", name)
			}
			seen[cur] = true
			m, ok := p.Modes[cur]
			if !ok {
				break
			}
			cur = m.Parent
		}
	}
	return nil
}

// firstRootMode returns the alphabetically first parentless mode, or
// the first mode overall when every mode has a parent.
func (p *Profile) firstRootMode() string {
	var roots []string
	for name, m := range p.Modes {
		if m.Parent == "" {
			roots = append(roots, name)
		}
	}
	if len(roots) == 0 {
		return p.ModeNames()[0]
	}
	sort.Strings(roots)
	return roots[0]
}
