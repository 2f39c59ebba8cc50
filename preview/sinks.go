package preview

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/previewd/preview/internal/sink"
)

// Sink re-exports the telemetry backend interface so callers embedding
// the engine can attach their own without importing internal packages.
type Sink = sink.Sink

// NewStdoutSink returns a sink writing one JSON line per event to w.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink returns a sink POSTing each event to url with retries.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// ConsoleFunc and NetworkFunc are in-process telemetry handlers.
type (
	ConsoleFunc = sink.ConsoleFunc
	NetworkFunc = sink.NetworkFunc
)

// NewCallbackSink returns a sink invoking the given functions in-process.
// Either function may be nil.
func NewCallbackSink(onConsole ConsoleFunc, onNetwork NetworkFunc) Sink {
	return sink.NewCallback(onConsole, onNetwork)
}
