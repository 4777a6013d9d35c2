// Package app assembles the joyrig runtime: configuration, logging,
// profile, engine, device sources, Lua plugins, the profile watcher,
// and the control server. It owns startup order and shutdown order;
// the pieces themselves stay independent.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/joyrig/joyrig/internal/config"
	"github.com/joyrig/joyrig/internal/engine"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/logging"
	"github.com/joyrig/joyrig/internal/output"
	"github.com/joyrig/joyrig/internal/plugin"
	"github.com/joyrig/joyrig/internal/profile"
	"github.com/joyrig/joyrig/internal/server"
	"github.com/joyrig/joyrig/internal/source"
)

// serverStopTimeout bounds how long shutdown waits for in-flight
// control requests.
const serverStopTimeout = 3 * time.Second

// Options are the command-line inputs. Anything not set here comes
// from the configuration file or its defaults.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty loads
	// pure defaults.
	ConfigPath string

	// Profile overrides the configured profile path.
	Profile string

	// LogLevel overrides the configured log level.
	LogLevel string
}

// App is the assembled runtime.
type App struct {
	cfg      config.Config
	log      *logging.Logger
	eng      *engine.Engine
	host     *plugin.Host
	srv      *server.Server
	watcher  *profile.Watcher
	sources  []source.Source
	outputs  []io.Closer
	profName string

	running      *atomic.Bool
	done         chan struct{}
	shutdownOnce sync.Once
}

// New loads configuration and builds every component. The engine does
// not process anything until Run.
func New(opts Options) (*App, error) {
	a := &App{
		running: atomic.NewBool(false),
		done:    make(chan struct{}),
	}
	if err := a.bootstrap(opts); err != nil {
		return nil, err
	}
	return a, nil
}

// bootstrap initializes components in dependency order.
func (a *App) bootstrap(opts Options) error {
	// 1. Configuration, with command-line overrides on top.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if opts.Profile != "" {
		cfg.Profile = opts.Profile
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	a.cfg = cfg

	// 2. Logging.
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	a.log = logging.New(logCfg)

	// 3. Startup profile. A missing path starts the engine empty; a
	// broken file is fatal so a typo cannot silently strip every
	// binding.
	var prof *profile.Profile
	a.profName = "empty"
	if cfg.Profile != "" {
		p, issues, err := profile.Load(cfg.Profile)
		if err != nil {
			return &InitError{Component: "profile", Err: err}
		}
		for _, issue := range issues {
			a.log.Warn("profile: %s", issue)
		}
		prof = p
		a.profName = p.Name
	}

	// 4. Engine with its virtual joystick pool and host output
	// senders. Absent senders leave the engine's log fallbacks in
	// place.
	vjoy := output.NewVJoyState(output.VJoyConfig{
		Devices: cfg.VJoy.Devices,
		Axes:    cfg.VJoy.Axes,
		Buttons: cfg.VJoy.Buttons,
		Hats:    cfg.VJoy.Hats,
	}, a.log)
	kb, ms, closers := openOutputs(cfg.Output, a.log)
	a.outputs = closers
	a.eng = engine.New(engine.Config{
		Profile:     prof,
		VJoy:        vjoy,
		Keyboard:    kb,
		Mouse:       ms,
		Log:         a.log,
		QueueSize:   cfg.Engine.QueueSize,
		CyclePolicy: cfg.CyclePolicy(),
	})

	// 5. Lua plugins. A bad script or missing directory is logged,
	// not fatal.
	a.host = plugin.NewHost(a.eng, a.log)
	if err := a.host.LoadDir(cfg.Plugins.Dir); err != nil {
		a.log.Warn("plugins: %v", err)
	}

	// 6. Physical devices.
	a.sources = openSources(cfg.Devices, a.log)

	// 7. Profile watcher for live reloads.
	if cfg.Watcher.Enabled && cfg.Profile != "" {
		w, err := profile.NewWatcher(cfg.Profile, cfg.Watcher.Debounce.Value(), a.log)
		if err != nil {
			a.log.Warn("profile watcher: %v", err)
		} else {
			a.watcher = w
		}
	}

	// 8. Control server, started in Run.
	if cfg.Server.Enabled {
		a.srv = server.New(a.eng, a.log)
	}

	return nil
}

// Run starts every component and blocks until Shutdown is called.
func (a *App) Run() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.eng.Run(ctx)
	}()

	for _, src := range a.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := src.Run(ctx, func(ev input.Event) { _ = a.eng.HandleEvent(ev) })
			if err != nil {
				a.log.Error("source %s: %v", src.Name(), err)
			}
		}()
	}

	if a.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.watchProfile(ctx)
		}()
	}

	if a.srv != nil {
		if err := a.srv.Start(a.cfg.Server.Listen); err != nil {
			a.Shutdown()
			cancel()
			wg.Wait()
			a.host.Close()
			a.closeOutputs()
			return &InitError{Component: "server", Err: err}
		}
	}

	a.log.Info("running with %d devices, profile %q, mode %q",
		len(a.sources), a.profName, a.eng.ActiveMode())

	<-a.done

	if a.srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), serverStopTimeout)
		_ = a.srv.Shutdown(sctx)
		scancel()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	cancel()
	wg.Wait()
	a.host.Close()
	a.closeOutputs()
	return nil
}

func (a *App) closeOutputs() {
	for _, c := range a.outputs {
		_ = c.Close()
	}
}

// Shutdown requests an orderly stop. Safe to call from any goroutine
// and more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() { close(a.done) })
}

// watchProfile reloads the profile whenever the watcher reports a
// change. A reload that fails keeps the running profile.
func (a *App) watchProfile(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-a.watcher.Events():
			if !ok {
				return
			}
			a.reloadProfile()
		}
	}
}

func (a *App) reloadProfile() {
	p, issues, err := profile.Load(a.cfg.Profile)
	if err != nil {
		a.log.Error("profile reload: %v", err)
		return
	}
	for _, issue := range issues {
		a.log.Warn("profile: %s", issue)
	}
	if err := a.eng.SwapProfile(p); err != nil {
		a.log.Error("profile swap: %v", err)
		return
	}
	a.log.Info("profile %q reloaded", p.Name)
}
