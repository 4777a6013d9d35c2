//go:build linux

package app

import (
	"io"
	"strings"

	"github.com/joyrig/joyrig/internal/config"
	"github.com/joyrig/joyrig/internal/logging"
	"github.com/joyrig/joyrig/internal/output"
	"github.com/joyrig/joyrig/internal/source"
)

// openSources opens every usable event device that is not on the
// ignore list. A device that fails to open is skipped; running with
// no devices at all is fine, input can still arrive through the
// control server and plugins.
func openSources(cfg config.Devices, log *logging.Logger) []source.Source {
	infos, err := source.ListDevices()
	if err != nil {
		log.Warn("device scan: %v", err)
		return nil
	}

	var out []source.Source
	for _, info := range infos {
		if ignored(info.Name, cfg.Ignore) {
			log.Debug("ignoring %s (%s)", info.Name, info.Path)
			continue
		}
		src, err := source.OpenDevice(info.Path, cfg.Grab, log)
		if err != nil {
			log.Warn("open %s: %v", info.Path, err)
			continue
		}
		log.Info("device %s (%s) as %s", info.Name, info.Path, info.GUID)
		out = append(out, src)
	}
	return out
}

func ignored(name string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// openOutputs creates uinput keyboard and mouse senders when enabled.
// Either device failing to create falls back to log output for that
// sender only.
func openOutputs(cfg config.Output, log *logging.Logger) (output.KeySender, output.MouseSender, []io.Closer) {
	if !cfg.UInput {
		return nil, nil, nil
	}

	var (
		kb      output.KeySender
		ms      output.MouseSender
		closers []io.Closer
	)
	if k, err := output.NewUInputKeyboard(log); err != nil {
		log.Warn("uinput keyboard unavailable, logging keys instead: %v", err)
	} else {
		kb = k
		closers = append(closers, k)
	}
	if m, err := output.NewUInputMouse(log); err != nil {
		log.Warn("uinput mouse unavailable, logging mouse instead: %v", err)
	} else {
		ms = m
		closers = append(closers, m)
	}
	return kb, ms, closers
}
