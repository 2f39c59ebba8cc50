// Package sink defines output backends for bridge telemetry.
package sink

import (
	"context"

	"github.com/hazyhaar/previewd/preview/event"
)

// Sink is the output interface. Implementations deliver console and
// network events to different backends (in-process consumer, stdout,
// webhook).
type Sink interface {
	SendConsole(ctx context.Context, ev event.Console) error
	SendNetwork(ctx context.Context, ev event.Network) error
	Close() error
}
