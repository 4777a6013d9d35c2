package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalProfile = `
name: first
startup_mode: default
modes:
  - name: default
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// runApp starts the app in the background and returns its result
// channel. Cleanup shuts the app down and waits for Run to return.
func runApp(t *testing.T, a *App) chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for !a.running.Load() {
		select {
		case err := <-errCh:
			t.Fatalf("Run() returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("app did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		a.Shutdown()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("app did not stop")
		}
	})
	return errCh
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.cfg.Engine.QueueSize != 256 {
		t.Errorf("QueueSize = %d, expected default 256", a.cfg.Engine.QueueSize)
	}
	if a.watcher != nil {
		t.Error("watcher != nil, expected none without a profile")
	}
	if a.srv != nil {
		t.Error("server != nil, expected disabled by default")
	}
	if got := a.eng.ActiveMode(); got != "default" {
		t.Errorf("ActiveMode() = %q, expected %q", got, "default")
	}
}

func TestNew_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joyrig.toml")
	writeFile(t, path, "[engine\n")

	_, err := New(Options{ConfigPath: path})
	if err == nil {
		t.Fatal("New() error = nil, expected config error")
	}
	var ierr *InitError
	if !errors.As(err, &ierr) || ierr.Component != "config" {
		t.Errorf("New() error = %v, expected config InitError", err)
	}
}

func TestNew_MissingProfileFatal(t *testing.T) {
	_, err := New(Options{Profile: filepath.Join(t.TempDir(), "absent.yaml")})
	if err == nil {
		t.Fatal("New() error = nil, expected profile error")
	}
	var ierr *InitError
	if !errors.As(err, &ierr) || ierr.Component != "profile" {
		t.Errorf("New() error = %v, expected profile InitError", err)
	}
}

func TestApp_RunShutdown(t *testing.T) {
	a, err := New(Options{LogLevel: "error"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runApp(t, a)

	if err := a.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, expected %v", err, ErrAlreadyRunning)
	}
}

func TestApp_ProfileReload(t *testing.T) {
	dir := t.TempDir()
	profPath := filepath.Join(dir, "profile.yaml")
	writeFile(t, profPath, minimalProfile)

	cfgPath := filepath.Join(dir, "joyrig.toml")
	writeFile(t, cfgPath, fmt.Sprintf(`
profile = %q

[log]
level = "error"

[watcher]
enabled = true
debounce = "50ms"
`, profPath))

	a, err := New(Options{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.watcher == nil {
		t.Fatal("watcher = nil, expected one for a configured profile")
	}
	runApp(t, a)

	st, err := a.eng.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Profile != "first" {
		t.Fatalf("Profile = %q, expected %q", st.Profile, "first")
	}

	writeFile(t, profPath, `
name: second
startup_mode: default
modes:
  - name: default
`)

	deadline := time.Now().Add(3 * time.Second)
	for {
		st, err := a.eng.Status()
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if st.Profile == "second" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Profile = %q, expected reload to %q", st.Profile, "second")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApp_ServerIntegration(t *testing.T) {
	dir := t.TempDir()
	profPath := filepath.Join(dir, "profile.yaml")
	writeFile(t, profPath, minimalProfile)

	cfgPath := filepath.Join(dir, "joyrig.toml")
	writeFile(t, cfgPath, fmt.Sprintf(`
profile = %q

[log]
level = "error"

[watcher]
enabled = false

[server]
enabled = true
listen = "127.0.0.1:0"
`, profPath))

	a, err := New(Options{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.srv == nil {
		t.Fatal("server = nil, expected one when enabled")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for a.srv.Addr() == "" {
		select {
		case err := <-errCh:
			var ierr *InitError
			if errors.As(err, &ierr) && ierr.Component == "server" {
				t.Skipf("cannot bind loopback listener: %v", err)
			}
			t.Fatalf("Run() returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() {
		a.Shutdown()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("app did not stop")
		}
	})

	resp, err := http.Get("http://" + a.srv.Addr() + "/status")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /status = %d, expected %d", resp.StatusCode, http.StatusOK)
	}

	var st struct {
		Profile    string `json:"profile"`
		ActiveMode string `json:"active_mode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if st.Profile != "first" || st.ActiveMode != "default" {
		t.Errorf("status = %+v, expected profile first, mode default", st)
	}
}
