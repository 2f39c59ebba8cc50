package sink

import (
	"context"

	"github.com/hazyhaar/previewd/preview/event"
)

// ConsoleFunc is called for each console event (in-process, zero
// serialization).
type ConsoleFunc func(ctx context.Context, ev event.Console) error

// NetworkFunc is called for each network event.
type NetworkFunc func(ctx context.Context, ev event.Network) error

// Callback delivers telemetry via Go function calls. This is how the host
// event consumer receives the bridge when engine and consumer live in the
// same binary.
type Callback struct {
	onConsole ConsoleFunc
	onNetwork NetworkFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onConsole ConsoleFunc, onNetwork NetworkFunc) *Callback {
	return &Callback{onConsole: onConsole, onNetwork: onNetwork}
}

func (c *Callback) SendConsole(ctx context.Context, ev event.Console) error {
	if c.onConsole != nil {
		return c.onConsole(ctx, ev)
	}
	return nil
}

func (c *Callback) SendNetwork(ctx context.Context, ev event.Network) error {
	if c.onNetwork != nil {
		return c.onNetwork(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
