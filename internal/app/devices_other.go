//go:build !linux

package app

import (
	"io"

	"github.com/joyrig/joyrig/internal/config"
	"github.com/joyrig/joyrig/internal/logging"
	"github.com/joyrig/joyrig/internal/output"
	"github.com/joyrig/joyrig/internal/source"
)

// openSources is a stub on platforms without evdev. The engine still
// runs; input can arrive through the control server and plugins.
func openSources(_ config.Devices, log *logging.Logger) []source.Source {
	log.Warn("physical device capture requires linux")
	return nil
}

// openOutputs is a stub on platforms without uinput.
func openOutputs(cfg config.Output, log *logging.Logger) (output.KeySender, output.MouseSender, []io.Closer) {
	if cfg.UInput {
		log.Warn("uinput output requires linux")
	}
	return nil, nil, nil
}
