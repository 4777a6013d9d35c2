//go:build linux

package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/holoplot/go-evdev"

	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/logging"
)

// deviceNamespace seeds deterministic device GUIDs so the same hardware
// resolves to the same identity across runs and hosts.
var deviceNamespace = uuid.MustParse("c2aeb3de-0f61-4f40-a3f7-f359356ea1a2")

// DeviceGUIDFor derives the stable GUID for a device identity.
func DeviceGUIDFor(id evdev.InputID, name string) input.DeviceGUID {
	data := fmt.Sprintf("%04x:%04x:%04x:%04x:%s", id.BusType, id.Vendor, id.Product, id.Version, name)
	return uuid.NewSHA1(deviceNamespace, []byte(data))
}

// DeviceInfo describes an enumerated event device.
type DeviceInfo struct {
	Path    string
	Name    string
	GUID    input.DeviceGUID
	Axes    int
	Buttons int
	Keys    int
	Hats    int
}

// ListDevices enumerates the event devices usable as sources. Devices
// with neither absolute axes nor key capabilities are skipped, as are
// devices the process cannot open.
func ListDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}

	var infos []DeviceInfo
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		info, ok := describe(dev, p.Path)
		_ = dev.Close()
		if ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func describe(dev *evdev.InputDevice, path string) (DeviceInfo, bool) {
	name, err := dev.Name()
	if err != nil || name == "" {
		name = path
	}
	id, _ := dev.InputID()

	l := newLayout(dev)
	if len(l.axes) == 0 && len(l.buttons) == 0 && len(l.keys) == 0 && l.hats == 0 {
		return DeviceInfo{}, false
	}

	return DeviceInfo{
		Path:    path,
		Name:    name,
		GUID:    DeviceGUIDFor(id, name),
		Axes:    len(l.axes),
		Buttons: len(l.buttons),
		Keys:    len(l.keys),
		Hats:    l.hats,
	}, true
}

// layout maps evdev codes onto the input model's indexes. Axis and button
// indexes follow ascending code order so numbering is stable across runs;
// key indexes are the evdev codes themselves.
type layout struct {
	axes    map[evdev.EvCode]int
	absInfo map[evdev.EvCode]evdev.AbsInfo
	buttons map[evdev.EvCode]int
	keys    map[evdev.EvCode]bool
	hats    int
}

func newLayout(dev *evdev.InputDevice) *layout {
	l := &layout{
		axes:    make(map[evdev.EvCode]int),
		buttons: make(map[evdev.EvCode]int),
		keys:    make(map[evdev.EvCode]bool),
	}

	if abs, err := dev.AbsInfos(); err == nil {
		l.absInfo = abs
		for _, code := range sortedAbsCodes(abs) {
			if code >= evdev.ABS_HAT0X && code <= evdev.ABS_HAT3Y {
				hat := int(code-evdev.ABS_HAT0X)/2 + 1
				if hat > l.hats {
					l.hats = hat
				}
				continue
			}
			l.axes[code] = len(l.axes)
		}
	}

	for _, code := range sortedCodes(dev.CapableEvents(evdev.EV_KEY)) {
		if code >= evdev.BTN_MISC {
			l.buttons[code] = len(l.buttons)
		} else {
			l.keys[code] = true
		}
	}
	return l
}

func sortedAbsCodes(abs map[evdev.EvCode]evdev.AbsInfo) []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, len(abs))
	for code := range abs {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func sortedCodes(codes []evdev.EvCode) []evdev.EvCode {
	out := append([]evdev.EvCode(nil), codes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EvdevSource reads one /dev/input/event* device.
type EvdevSource struct {
	path string
	name string
	guid input.DeviceGUID
	dev  *evdev.InputDevice
	grab bool
	log  *logging.Logger

	layout *layout
	hatX   map[int]int32
	hatY   map[int]int32
}

// OpenDevice opens an event device as a source. With grab the device is
// claimed exclusively so other readers stop seeing the raw events.
func OpenDevice(path string, grab bool, log *logging.Logger) (*EvdevSource, error) {
	if log == nil {
		log = logging.Null
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	name, err := dev.Name()
	if err != nil || name == "" {
		name = path
	}
	id, _ := dev.InputID()

	return &EvdevSource{
		path:   path,
		name:   name,
		guid:   DeviceGUIDFor(id, name),
		dev:    dev,
		grab:   grab,
		log:    log.WithComponent("evdev").WithField("device", name),
		layout: newLayout(dev),
		hatX:   make(map[int]int32),
		hatY:   make(map[int]int32),
	}, nil
}

// Name identifies the source in logs.
func (s *EvdevSource) Name() string { return s.name }

// Path returns the device node path.
func (s *EvdevSource) Path() string { return s.path }

// GUID is the stable device identity.
func (s *EvdevSource) GUID() input.DeviceGUID { return s.guid }

// Close releases the device. Run returns once the device is closed.
func (s *EvdevSource) Close() error { return s.dev.Close() }

// Run reads the device until the context ends or the device fails.
func (s *EvdevSource) Run(ctx context.Context, sink Sink) error {
	if s.grab {
		if err := s.dev.Grab(); err != nil {
			s.log.Warn("failed to grab device: %v", err)
		}
	}

	// Closing the device is what unblocks ReadOne on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.dev.Close()
		case <-done:
		}
	}()

	s.log.Info("reading %s", s.path)
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("device %s read failed: %w", s.name, err)
		}
		s.handle(ev, sink)
	}
}

func (s *EvdevSource) handle(ev *evdev.InputEvent, sink Sink) {
	t := eventTime(ev)
	switch ev.Type {
	case evdev.EV_KEY:
		if ev.Value == 2 {
			return // autorepeat
		}
		pressed := ev.Value != 0
		if idx, ok := s.layout.buttons[ev.Code]; ok {
			id := input.Identifier{Device: s.guid, Type: input.TypeButton, Index: idx}
			sink(input.ButtonEvent(id, pressed, t))
		} else if s.layout.keys[ev.Code] {
			id := input.Identifier{Device: s.guid, Type: input.TypeKey, Index: int(ev.Code)}
			sink(input.ButtonEvent(id, pressed, t))
		}

	case evdev.EV_ABS:
		if ev.Code >= evdev.ABS_HAT0X && ev.Code <= evdev.ABS_HAT3Y {
			s.handleHat(ev, t, sink)
			return
		}
		idx, ok := s.layout.axes[ev.Code]
		if !ok {
			return
		}
		id := input.Identifier{Device: s.guid, Type: input.TypeAxis, Index: idx}
		sink(input.AxisEvent(id, normalizeAxis(ev.Value, s.layout.absInfo[ev.Code]), t))
	}
}

func (s *EvdevSource) handleHat(ev *evdev.InputEvent, t time.Time, sink Sink) {
	hat := int(ev.Code-evdev.ABS_HAT0X) / 2
	if (ev.Code-evdev.ABS_HAT0X)%2 == 1 {
		s.hatY[hat] = ev.Value
	} else {
		s.hatX[hat] = ev.Value
	}
	id := input.Identifier{Device: s.guid, Type: input.TypeHat, Index: hat}
	sink(input.HatEvent(id, hatDirection(s.hatX[hat], s.hatY[hat]), t))
}

// hatDirection combines raw hat axes into a compass direction. Negative y
// is up in evdev's coordinate system.
func hatDirection(x, y int32) input.Direction {
	switch {
	case x == 0 && y < 0:
		return input.North
	case x > 0 && y < 0:
		return input.NorthEast
	case x > 0 && y == 0:
		return input.East
	case x > 0 && y > 0:
		return input.SouthEast
	case x == 0 && y > 0:
		return input.South
	case x < 0 && y > 0:
		return input.SouthWest
	case x < 0 && y == 0:
		return input.West
	case x < 0 && y < 0:
		return input.NorthWest
	default:
		return input.Center
	}
}

// normalizeAxis maps a raw absolute value onto [-1, 1] using the device's
// reported range.
func normalizeAxis(raw int32, info evdev.AbsInfo) float64 {
	span := float64(info.Maximum) - float64(info.Minimum)
	if span <= 0 {
		return input.ClampAxis(float64(raw))
	}
	return input.ClampAxis(2*(float64(raw)-float64(info.Minimum))/span - 1)
}

func eventTime(ev *evdev.InputEvent) time.Time {
	if ev.Time.Sec == 0 && ev.Time.Usec == 0 {
		return time.Now()
	}
	return time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*1000)
}

var _ Source = (*EvdevSource)(nil)
