package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher("/nonexistent/path/profile.yaml", 0, nil)
	if err == nil {
		t.Fatal("NewWatcher should fail for a nonexistent directory")
	}
}

func TestWatcher_ReportsWrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher error = %v", err)
	}
	defer w.Close()

	if w.Path() != path {
		t.Errorf("Path() = %q, expected %q", w.Path(), path)
	}

	if err := os.WriteFile(path, []byte("name: changed\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for change notification")
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	w, err := NewWatcher(path, 100*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher error = %v", err)
	}
	defer w.Close()

	// A burst of writes within the debounce window should land as a
	// single notification.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
			t.Fatalf("WriteFile error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}

	// The burst already settled, so no second notification should follow.
	select {
	case <-w.Events():
		t.Error("burst should coalesce into a single notification")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher error = %v", err)
	}
	defer w.Close()

	sibling := filepath.Join(tmpDir, "other.yaml")
	if err := os.WriteFile(sibling, []byte("name: other\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	select {
	case <-w.Events():
		t.Error("sibling file change should not be reported")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher error = %v", err)
	}
	defer w.Close()

	// Save via temp file + rename, the way most editors do.
	tmp := filepath.Join(tmpDir, "profile.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("name: replaced\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Rename error = %v", err)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for rename notification")
	}
}

func TestWatcher_Close(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profile.yaml")
	if err := os.WriteFile(path, []byte("name: test\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close error = %v", err)
	}

	// Events channel closes so consumers can range over it.
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("Events should be closed after Close")
		}
	case <-time.After(time.Second):
		t.Error("Events should be closed after Close")
	}

	// Close again should be safe.
	if err := w.Close(); err != nil {
		t.Errorf("Close again error = %v", err)
	}
}
