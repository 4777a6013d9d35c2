// Package config loads and validates joyrig's runtime configuration.
//
// Configuration is a single TOML file merged over built-in defaults and
// then over JOYRIG_* environment variables. A missing file is not an
// error; the defaults simply apply. The resulting Config is a plain
// value handed to the packages it describes, none of which read files
// or the environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/joyrig/joyrig/internal/logging"
	"github.com/joyrig/joyrig/internal/mode"
)

// Config is the full runtime configuration.
type Config struct {
	// Profile is the path of the profile to load at startup. Empty
	// starts the engine with an empty profile awaiting a swap.
	Profile string `toml:"profile"`

	Engine  Engine  `toml:"engine"`
	Log     Log     `toml:"log"`
	Watcher Watcher `toml:"watcher"`
	Server  Server  `toml:"server"`
	Plugins Plugins `toml:"plugins"`
	VJoy    VJoy    `toml:"vjoy"`
	Output  Output  `toml:"output"`
	Devices Devices `toml:"devices"`
}

// Engine tunes the event loop.
type Engine struct {
	// QueueSize is the capacity of the serialized work queue. Events
	// arriving while the queue is full are dropped.
	QueueSize int `toml:"queue_size"`

	// CyclePolicy resolves mode cycling past the last target, either
	// "wrap" or "stop".
	CyclePolicy string `toml:"cycle_policy"`
}

// Log selects logging output.
type Log struct {
	// Level is the minimum severity to emit, one of debug, info,
	// warn or error.
	Level string `toml:"level"`
}

// Watcher tunes live profile reloading.
type Watcher struct {
	// Enabled turns the profile file watcher on.
	Enabled bool `toml:"enabled"`

	// Debounce is the quiet period a changed file must hold before a
	// reload, e.g. "250ms". Zero selects the built-in default.
	Debounce duration `toml:"debounce"`
}

// Server configures the HTTP control server.
type Server struct {
	// Enabled starts the control server.
	Enabled bool `toml:"enabled"`

	// Listen is the address to bind, host:port.
	Listen string `toml:"listen"`
}

// Plugins configures the Lua plugin host.
type Plugins struct {
	// Dir is the directory scanned for *.lua scripts. Empty disables
	// plugins.
	Dir string `toml:"dir"`
}

// VJoy sizes the virtual joystick pool.
type VJoy struct {
	Devices int `toml:"devices"`
	Axes    int `toml:"axes"`
	Buttons int `toml:"buttons"`
	Hats    int `toml:"hats"`
}

// Output selects how keyboard and mouse actions reach the host.
type Output struct {
	// UInput sends keyboard and mouse output through kernel uinput
	// devices instead of the log. Linux only; needs /dev/uinput access.
	UInput bool `toml:"uinput"`
}

// Devices selects physical input devices.
type Devices struct {
	// Grab takes exclusive control of opened devices so the desktop
	// no longer sees their events.
	Grab bool `toml:"grab"`

	// Ignore lists device name substrings to skip when scanning.
	Ignore []string `toml:"ignore"`
}

// duration wraps time.Duration with TOML string encoding ("250ms").
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Value returns the wrapped duration.
func (d duration) Value() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			QueueSize:   256,
			CyclePolicy: "wrap",
		},
		Log: Log{
			Level: "info",
		},
		Watcher: Watcher{
			Enabled:  true,
			Debounce: duration(250 * time.Millisecond),
		},
		Server: Server{
			Enabled: false,
			Listen:  "127.0.0.1:8087",
		},
		VJoy: VJoy{
			Devices: 2,
			Axes:    8,
			Buttons: 128,
			Hats:    4,
		},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. A missing file is not an error. An empty path
// skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, &ParseError{Path: path, Message: err.Error(), Err: err}
			}
		}
	}

	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envVars maps JOYRIG_* variables to config fields. Values are parsed
// with the same rules as the file.
var envVars = map[string]func(*Config, string) error{
	"JOYRIG_PROFILE": func(c *Config, v string) error {
		c.Profile = v
		return nil
	},
	"JOYRIG_LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"JOYRIG_QUEUE_SIZE": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Engine.QueueSize = n
		return nil
	},
	"JOYRIG_CYCLE_POLICY": func(c *Config, v string) error {
		c.Engine.CyclePolicy = v
		return nil
	},
	"JOYRIG_WATCH": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Watcher.Enabled = b
		return nil
	},
	"JOYRIG_SERVER": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Server.Enabled = b
		return nil
	},
	"JOYRIG_LISTEN": func(c *Config, v string) error {
		c.Server.Listen = v
		return nil
	},
	"JOYRIG_PLUGIN_DIR": func(c *Config, v string) error {
		c.Plugins.Dir = v
		return nil
	},
	"JOYRIG_GRAB": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Devices.Grab = b
		return nil
	},
	"JOYRIG_UINPUT": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Output.UInput = b
		return nil
	},
}

// applyEnv overlays recognized environment variables onto cfg. Unset
// and empty variables are skipped; malformed values are ignored so a
// stray export cannot prevent startup.
func applyEnv(cfg *Config, getenv func(string) string) {
	for name, set := range envVars {
		v := getenv(name)
		if v == "" {
			continue
		}
		_ = set(cfg, v)
	}
}

// Validate checks field values and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Engine.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: engine.queue_size must be positive, got %d", ErrInvalidValue, c.Engine.QueueSize))
	}
	if _, err := mode.ParseCyclePolicy(c.Engine.CyclePolicy); err != nil {
		errs = append(errs, fmt.Errorf("%w: engine.cycle_policy: %v", ErrInvalidValue, err))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level))
	}
	if c.Watcher.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: watcher.debounce must not be negative", ErrInvalidValue))
	}
	if c.Server.Enabled && c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("%w: server.listen required when server is enabled", ErrMissingValue))
	}
	if c.VJoy.Devices < 0 || c.VJoy.Axes < 0 || c.VJoy.Buttons < 0 || c.VJoy.Hats < 0 {
		errs = append(errs, fmt.Errorf("%w: vjoy sizes must not be negative", ErrInvalidValue))
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured level parsed for the logging package.
func (c Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// CyclePolicy returns the configured policy parsed for the mode stack.
// Validate has already rejected unknown names.
func (c Config) CyclePolicy() mode.CyclePolicy {
	p, _ := mode.ParseCyclePolicy(c.Engine.CyclePolicy)
	return p
}
