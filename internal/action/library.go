package action

import (
	"fmt"
	"sort"
)

// Library is the arena of actions addressed by id. It is written
// during profile load and read-only afterwards; the evaluator never
// mutates it.
type Library struct {
	nodes map[ID]Node
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{nodes: make(map[ID]Node)}
}

// Put stores a node under an id, replacing any earlier content.
func (l *Library) Put(id ID, n Node) error {
	if id == 0 {
		return fmt.Errorf("action id 0 is reserved")
	}
	if n == nil {
		return fmt.Errorf("action %d: nil node", id)
	}
	l.nodes[id] = n
	return nil
}

// Get returns the node stored under an id.
func (l *Library) Get(id ID) (Node, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

// Len returns the number of stored actions.
func (l *Library) Len() int {
	return len(l.nodes)
}

// IDs returns all stored ids in ascending order.
func (l *Library) IDs() []ID {
	out := make([]ID, 0, len(l.nodes))
	for id := range l.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckTree verifies that every action reachable from root exists and
// that the containment relation is acyclic along the walk. Sharing is
// fine; an action may be reached through several parents.
func (l *Library) CheckTree(root ID) error {
	const (
		onPath = 1
		done   = 2
	)
	state := make(map[ID]int)

	var walk func(id ID) error
	walk = func(id ID) error {
		switch state[id] {
		case onPath:
			return fmt.Errorf("action %d: cyclic containment", id)
		case done:
			return nil
		}
		n, ok := l.nodes[id]
		if !ok {
			return fmt.Errorf("action %d: dangling reference", id)
		}
		state[id] = onPath
		for _, child := range Children(n) {
			if err := walk(child); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	return walk(root)
}
