package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/previewd/preview/event"
)

// Router fans out telemetry to all configured sinks. One sink error does
// not block the others — errors are logged and the first encountered is
// returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) SendConsole(ctx context.Context, ev event.Console) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendConsole(ctx, ev); err != nil {
			r.logger.Warn("sink: send console failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendNetwork(ctx context.Context, ev event.Network) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendNetwork(ctx, ev); err != nil {
			r.logger.Warn("sink: send network failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
