package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/previewd/preview/event"
)

// BridgeBinding is the name of the CDP Runtime binding the shim posts
// bridge messages through. It must exist before any project code runs, so
// the binding is installed on the blank page prior to navigation.
const BridgeBinding = "__previewBridge"

// Deliver receives every decoded bridge message from one frame.
// Fire-and-forget: the frame never waits on the return.
type Deliver func(ctx context.Context, env *event.Envelope)

// Frame is one mounted sandbox: a dedicated page executing exactly one
// sandbox document under one generation. Remounting is total — a new
// generation means a brand-new Frame; Close discards all execution state,
// timers and in-flight work of the old one.
type Frame struct {
	Generation uint64

	page   *rod.Page
	cancel context.CancelFunc
	logger *slog.Logger
}

// Mount opens a fresh page on b, installs the bridge binding, subscribes
// the listener, and navigates to docURL (which serves the generation's
// document). The page is closed again on any setup failure.
func Mount(ctx context.Context, b *rod.Browser, gen uint64, docURL string, deliver Deliver, logger *slog.Logger) (*Frame, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if b == nil {
		return nil, fmt.Errorf("sandbox: no active browser")
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("sandbox: create page: %w", err)
	}

	// Binding before navigation: the shim's first post must already have
	// a live channel.
	if err := (proto.RuntimeAddBinding{Name: BridgeBinding}).Call(page); err != nil {
		page.Close()
		return nil, fmt.Errorf("sandbox: add bridge binding: %w", err)
	}

	frameCtx, cancel := context.WithCancel(ctx)
	f := &Frame{Generation: gen, page: page, cancel: cancel, logger: logger}
	go f.listen(frameCtx, deliver)

	navCtx, navCancel := context.WithTimeout(frameCtx, 30*time.Second)
	defer navCancel()

	if err := page.Context(navCtx).Navigate(docURL); err != nil {
		f.Close()
		return nil, fmt.Errorf("sandbox: navigate %s: %w", docURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.Warn("sandbox: wait load timeout", "generation", gen, "error", err)
	}

	logger.Info("sandbox: frame mounted", "generation", gen, "url", docURL)
	return f, nil
}

// listen receives bridge binding calls and forwards decoded messages.
// Malformed payloads are logged and dropped — nothing from the sandbox may
// propagate as an error into the host.
func (f *Frame) listen(ctx context.Context, deliver Deliver) {
	f.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BridgeBinding {
			return
		}
		env, err := event.Decode([]byte(e.Payload))
		if err != nil {
			f.logger.Warn("sandbox: drop malformed bridge message",
				"generation", f.Generation, "error", err)
			return
		}
		deliver(ctx, env)
	})()
}

// Close tears down the frame: stops the listener and closes the page,
// releasing the superseded document and its blob modules.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	f.cancel()
	if f.page != nil {
		if err := f.page.Close(); err != nil {
			f.logger.Debug("sandbox: page close", "generation", f.Generation, "error", err)
		}
	}
	f.logger.Debug("sandbox: frame closed", "generation", f.Generation)
}
