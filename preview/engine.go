// Package preview assembles the live preview engine: a build pipeline
// turning a multi-file project snapshot into a self-contained sandbox
// document, a headless Chrome host executing it in a disposable frame,
// and a bridge consumer collecting the telemetry the frame pushes back.
//
// The engine is the invalidation controller. Every project change tears
// the pipeline down and rebuilds it under a fresh generation; there is no
// incremental path, which keeps rebuild correctness trivial at the cost
// of redundant transpilation.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/previewd/preview/event"
	"github.com/hazyhaar/previewd/preview/internal/build"
	"github.com/hazyhaar/previewd/preview/internal/sandbox"
	"github.com/hazyhaar/previewd/preview/internal/sink"
	"github.com/hazyhaar/previewd/preview/internal/store"
	"github.com/hazyhaar/previewd/preview/internal/vfs"
)

// ProjectMap re-exports the project snapshot type: logical path → source.
type ProjectMap = vfs.ProjectMap

// Engine owns one preview pipeline. All mutations are serialized: a
// rebuild runs to completion before the next one starts, so a frame is
// never mounted for a generation that is already superseded.
type Engine struct {
	cfg      *Config
	logger   *slog.Logger
	consumer *Consumer
	router   *sink.Router
	mgr      *sandbox.Manager
	st       *store.Store

	generation atomic.Uint64
	sm         stateMachine

	mu       sync.Mutex
	baseCtx  context.Context
	project  ProjectMap
	frame    *sandbox.Frame
	document string
	docGen   uint64
	last     build.Result
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger       *slog.Logger
	st           *store.Store
	extraSinks   []Sink
	consumerOpts []ConsumerOption
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// WithStore attaches the SQLite project store. Refresh reloads from it.
func WithStore(s *store.Store) EngineOption {
	return func(o *engineOptions) { o.st = s }
}

// WithSinks attaches additional telemetry sinks next to the consumer.
func WithSinks(sinks ...Sink) EngineOption {
	return func(o *engineOptions) { o.extraSinks = append(o.extraSinks, sinks...) }
}

// WithConsumerOptions forwards options to the engine's consumer.
func WithConsumerOptions(opts ...ConsumerOption) EngineOption {
	return func(o *engineOptions) { o.consumerOpts = append(o.consumerOpts, opts...) }
}

// NewEngine creates an Engine. Call Start before the first Update.
func NewEngine(cfg *Config, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = Default()
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: o.logger, st: o.st}

	copts := o.consumerOpts
	copts = append(copts, WithConsumerLogger(o.logger))
	if cfg.Fixer.URL != "" {
		copts = append(copts, WithFixer(NewHTTPFixer(cfg.Fixer), e.entrySource))
	}
	e.consumer = NewConsumer(copts...)

	sinks := append([]Sink{e.consumer}, o.extraSinks...)
	e.router = sink.NewRouter(o.logger, sinks...)

	if !cfg.Browser.Disabled {
		e.mgr = sandbox.NewManager(sandbox.Config{
			RemoteURL:       cfg.Browser.Remote,
			MemoryLimit:     cfg.Browser.MemoryLimit,
			RecycleInterval: cfg.Browser.RecycleInterval,
			Logger:          o.logger,
		})
	}
	return e
}

// Consumer returns the engine's host event consumer.
func (e *Engine) Consumer() *Consumer { return e.consumer }

// State returns the controller state.
func (e *Engine) State() State { return e.sm.current() }

// Generation returns the current build generation.
func (e *Engine) Generation() uint64 { return e.generation.Load() }

// Start launches the sandbox host (unless the browser is disabled) and
// registers the recycle remount hook. ctx bounds the lifetime of the
// browser monitor and every frame listener.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	if e.mgr == nil {
		e.logger.Info("engine: browser disabled, serving documents only")
		return nil
	}

	// The callback hands over the fresh browser handle directly.
	e.mgr.SetRecycleCallback(&sandbox.RecycleCallback{
		BeforeRecycle: e.dropFrame,
		AfterRecycle:  e.remount,
	})

	if err := e.mgr.Start(ctx); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Update replaces the whole project snapshot and rebuilds. Wholesale:
// the previous snapshot and its sandbox are discarded entirely.
func (e *Engine) Update(_ context.Context, project ProjectMap) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.project = project
	return e.rebuildLocked()
}

// Refresh reloads the project from the store and rebuilds. This is the
// watcher's rebuild action.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.st == nil {
		return fmt.Errorf("engine: no store attached")
	}
	project, err := e.st.Load(ctx)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return e.Update(ctx, project)
}

// Reload rebuilds the current snapshot under a new generation. A manual
// reload is a full teardown: new document, new frame, reset histories.
func (e *Engine) Reload(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.project == nil {
		return fmt.Errorf("engine: nothing to reload")
	}
	return e.rebuildLocked()
}

// Document returns the current sandbox document and its generation.
// Empty until the first Update.
func (e *Engine) Document() (string, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document, e.docGen
}

// Status is a point-in-time snapshot for the control surface.
type Status struct {
	State        string        `json:"state"`
	Generation   uint64        `json:"generation"`
	Files        int           `json:"files"`
	Modules      int           `json:"modules"`
	EntryMounted bool          `json:"entry_mounted"`
	FrameActive  bool          `json:"frame_active"`
	Consumer     ConsumerStats `json:"consumer"`
}

// Status reports the engine's current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:        e.sm.current().String(),
		Generation:   e.docGen,
		Files:        len(e.project),
		Modules:      len(e.last.Modules),
		EntryMounted: e.last.EntryMounted,
		FrameActive:  e.frame != nil,
		Consumer:     e.consumer.Stats(),
	}
}

// Close tears down the current frame and the browser.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.frame.Close()
	e.frame = nil
	e.mu.Unlock()

	if e.mgr != nil {
		return e.mgr.Close()
	}
	return nil
}

// rebuildLocked is the single rebuild path. Caller holds e.mu.
//
// Ordering matters: the consumer is reset to the new generation before
// the old frame closes, so any straggler events the dying frame still
// delivers carry a stale generation and are dropped, never misattributed
// to the new build.
func (e *Engine) rebuildLocked() error {
	if err := e.sm.to(StateBuilding); err != nil {
		return err
	}
	gen := e.generation.Add(1)

	res := build.Build(e.project, build.Options{
		Entry:      e.cfg.Entry,
		Stylesheet: e.cfg.Stylesheet,
		Imports:    e.cfg.Imports,
		Generation: gen,
		Logger:     e.logger,
	})
	e.document = res.Document
	e.docGen = gen
	e.last = res

	e.consumer.Reset(gen)
	for _, d := range res.Diagnostics {
		e.consumer.AppendDiagnostic(d.Kind, d.Message)
	}

	// Explicit release of the superseded sandbox before the new one mounts.
	e.frame.Close()
	e.frame = nil

	if e.mgr != nil {
		frame, err := sandbox.Mount(e.mountCtxLocked(), e.mgr.Browser(), gen, e.cfg.HTTP.SandboxURL, e.deliver, e.logger)
		if err != nil {
			// The document is still built and served; an external frame can
			// execute it even when the headless mount fails.
			e.logger.Error("engine: frame mount failed", "generation", gen, "error", err)
		} else {
			e.frame = frame
		}
	}

	if err := e.sm.to(StateRunning); err != nil {
		return err
	}
	e.logger.Info("engine: rebuild complete",
		"generation", gen,
		"files", len(e.project),
		"modules", len(res.Modules),
		"entry_mounted", res.EntryMounted)
	return nil
}

// deliver routes one decoded bridge message into the sink router.
func (e *Engine) deliver(ctx context.Context, env *event.Envelope) {
	switch {
	case env.Console != nil:
		_ = e.router.SendConsole(ctx, *env.Console)
	case env.Network != nil:
		_ = e.router.SendNetwork(ctx, *env.Network)
	}
}

// mountCtxLocked returns the lifetime context for frame listeners.
// Updates may land before Start has recorded one. Caller holds e.mu.
func (e *Engine) mountCtxLocked() context.Context {
	if e.baseCtx != nil {
		return e.baseCtx
	}
	return context.Background()
}

// entrySource returns the current entry file's source for fix requests.
func (e *Engine) entrySource() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project[vfs.Clean(e.cfg.Entry)]
}

// dropFrame discards the frame without remounting. Used before a browser
// recycle, when the page is about to die with the process.
func (e *Engine) dropFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frame.Close()
	e.frame = nil
}

// remount reattaches the current generation's document to a fresh frame
// after a browser recycle. The generation does not advance: nothing about
// the build changed, only the process executing it.
func (e *Engine) remount(b *rod.Browser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.docGen == 0 {
		return
	}
	frame, err := sandbox.Mount(e.mountCtxLocked(), b, e.docGen, e.cfg.HTTP.SandboxURL, e.deliver, e.logger)
	if err != nil {
		e.logger.Error("engine: remount after recycle failed",
			"generation", e.docGen, "error", err)
		return
	}
	e.frame = frame
}
