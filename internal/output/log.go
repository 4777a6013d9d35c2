package output

import "github.com/joyrig/joyrig/internal/logging"

// LogKeyboard is a KeySender that only logs. It stands in when no real
// keyboard backend is available.
type LogKeyboard struct {
	log *logging.Logger
}

// NewLogKeyboard creates a log-only keyboard sender.
func NewLogKeyboard(log *logging.Logger) *LogKeyboard {
	if log == nil {
		log = logging.Null
	}
	return &LogKeyboard{log: log.WithComponent("keyboard")}
}

func (k *LogKeyboard) KeyPress(key string) error {
	k.log.Info("press %s", key)
	return nil
}

func (k *LogKeyboard) KeyRelease(key string) error {
	k.log.Info("release %s", key)
	return nil
}

// LogMouse is a MouseSender that only logs.
type LogMouse struct {
	log *logging.Logger
}

// NewLogMouse creates a log-only mouse sender.
func NewLogMouse(log *logging.Logger) *LogMouse {
	if log == nil {
		log = logging.Null
	}
	return &LogMouse{log: log.WithComponent("mouse")}
}

func (m *LogMouse) MouseButtonPress(button int) error {
	m.log.Info("button %d press", button)
	return nil
}

func (m *LogMouse) MouseButtonRelease(button int) error {
	m.log.Info("button %d release", button)
	return nil
}

func (m *LogMouse) MouseMove(dx, dy int) error {
	m.log.Debug("move %d %d", dx, dy)
	return nil
}

func (m *LogMouse) MouseWheel(delta int) error {
	m.log.Debug("wheel %d", delta)
	return nil
}

var (
	_ KeySender   = (*LogKeyboard)(nil)
	_ MouseSender = (*LogMouse)(nil)
)
