package action

import (
	"strings"
	"testing"
)

func TestLibrary_PutGet(t *testing.T) {
	lib := NewLibrary()

	if err := lib.Put(1, &MapToKeyboard{Key: "a"}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	n, ok := lib.Get(1)
	if !ok {
		t.Fatal("Get(1) should find the stored node")
	}
	if _, ok := n.(*MapToKeyboard); !ok {
		t.Errorf("Get(1) returned %T, expected *MapToKeyboard", n)
	}

	if _, ok := lib.Get(99); ok {
		t.Error("Get(99) should not find anything")
	}
}

func TestLibrary_PutRejectsZeroID(t *testing.T) {
	lib := NewLibrary()
	if err := lib.Put(0, &Description{}); err == nil {
		t.Error("Put(0, ...) expected error, got none")
	}
	if err := lib.Put(1, nil); err == nil {
		t.Error("Put(1, nil) expected error, got none")
	}
}

func TestLibrary_IDs(t *testing.T) {
	lib := NewLibrary()
	for _, id := range []ID{5, 2, 9} {
		if err := lib.Put(id, &Description{}); err != nil {
			t.Fatalf("Put(%d) unexpected error: %v", id, err)
		}
	}

	ids := lib.IDs()
	expected := []ID{2, 5, 9}
	if len(ids) != len(expected) {
		t.Fatalf("IDs() = %v, expected %v", ids, expected)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("IDs()[%d] = %v, expected %v", i, ids[i], expected[i])
		}
	}
}

func TestLibrary_CheckTree(t *testing.T) {
	lib := NewLibrary()
	must := func(id ID, n Node) {
		t.Helper()
		if err := lib.Put(id, n); err != nil {
			t.Fatalf("Put(%d) unexpected error: %v", id, err)
		}
	}

	must(1, &Tempo{Threshold: 1, Short: []ID{2}, Long: []ID{3}})
	must(2, &MapToKeyboard{Key: "a"})
	must(3, &Chain{Groups: [][]ID{{2}, {4}}})
	must(4, &MapToKeyboard{Key: "b"})

	if err := lib.CheckTree(1); err != nil {
		t.Errorf("CheckTree(1) unexpected error: %v", err)
	}
}

func TestLibrary_CheckTree_SharedChild(t *testing.T) {
	// A diamond is legal: the same leaf reached through two parents.
	lib := NewLibrary()
	_ = lib.Put(1, &Condition{True: []ID{2}, False: []ID{3}})
	_ = lib.Put(2, &Reference{Target: 4})
	_ = lib.Put(3, &Reference{Target: 4})
	_ = lib.Put(4, &MapToKeyboard{Key: "x"})

	if err := lib.CheckTree(1); err != nil {
		t.Errorf("CheckTree with shared child unexpected error: %v", err)
	}
}

func TestLibrary_CheckTree_Dangling(t *testing.T) {
	lib := NewLibrary()
	_ = lib.Put(1, &SmartToggle{Delay: 1, Children: []ID{2}})

	err := lib.CheckTree(1)
	if err == nil {
		t.Fatal("CheckTree with dangling child expected error, got none")
	}
	if !strings.Contains(err.Error(), "dangling") {
		t.Errorf("error = %q, expected mention of dangling reference", err)
	}
}

func TestLibrary_CheckTree_Cycle(t *testing.T) {
	lib := NewLibrary()
	_ = lib.Put(1, &Chain{Groups: [][]ID{{2}}})
	_ = lib.Put(2, &Reference{Target: 1})

	err := lib.CheckTree(1)
	if err == nil {
		t.Fatal("CheckTree with cycle expected error, got none")
	}
	if !strings.Contains(err.Error(), "cyclic") {
		t.Errorf("error = %q, expected mention of cyclic containment", err)
	}
}

func TestLibrary_CheckTree_SelfCycle(t *testing.T) {
	lib := NewLibrary()
	_ = lib.Put(1, &Reference{Target: 1})

	if err := lib.CheckTree(1); err == nil {
		t.Fatal("CheckTree on self-referencing action expected error, got none")
	}
}

func TestLibrary_CheckTree_MissingRoot(t *testing.T) {
	lib := NewLibrary()
	if err := lib.CheckTree(42); err == nil {
		t.Fatal("CheckTree on missing root expected error, got none")
	}
}
