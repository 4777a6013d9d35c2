// Package source adapts physical devices into the engine's input model.
// Adapters deliver raw samples; everything downstream of the sink (virtual
// buttons, bindings, actions) is the engine's concern.
package source

import (
	"context"

	"github.com/joyrig/joyrig/internal/input"
)

// Sink receives raw device samples.
type Sink func(ev input.Event)

// Source is a device adapter. Run blocks, delivering samples to sink
// until the context is cancelled or the device fails.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// GUID is the device identity samples are stamped with.
	GUID() input.DeviceGUID
	// Run delivers samples to sink. A nil return means the context was
	// cancelled; any other return is a device failure.
	Run(ctx context.Context, sink Sink) error
}
