package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/previewd/idgen"
	"github.com/hazyhaar/previewd/preview/event"
)

// FixState tracks the auto-fix workflow of one error entry.
type FixState string

const (
	FixNone    FixState = ""
	FixPending FixState = "pending"
	FixReady   FixState = "ready"
	FixFailed  FixState = "failed"
)

// LogEntry is one console event retained by the consumer, addressable by
// ID so the control surface can request a fix for it.
type LogEntry struct {
	ID string `json:"id"`
	event.Console
	FixState FixState `json:"fixState,omitempty"`
	// Proposal holds the fixer's suggested replacement source once FixState
	// is ready. It is a proposal: nothing applies it to the project store
	// until the user accepts it through the editor.
	Proposal string `json:"proposal,omitempty"`
}

// NetworkEntry is one retained network event.
type NetworkEntry struct {
	ID string `json:"id"`
	event.Network
}

// Fixer proposes a corrected entry source for a runtime error.
type Fixer interface {
	Fix(ctx context.Context, errorMessage, source string) (string, error)
}

// ConsumerStats are point-in-time counters.
type ConsumerStats struct {
	ConsoleReceived int64 `json:"console_received"`
	NetworkReceived int64 `json:"network_received"`
	StaleDropped    int64 `json:"stale_dropped"`
	Errors          int64 `json:"errors"`
	FixRequests     int64 `json:"fix_requests"`
}

// Consumer is the host-side terminus of the bridge. It retains per-build
// histories, drops telemetry stamped with a superseded generation, and
// surfaces the first error of each build to the reveal callback.
//
// It implements the sink interface so it can sit on the engine's router
// next to stdout/webhook sinks.
type Consumer struct {
	logger *slog.Logger
	newID  idgen.Generator

	// onReveal fires once per build, on the first error-kind entry. The
	// editor uses it to switch the panel from preview to console.
	onReveal func(LogEntry)
	// onProposal fires when a requested fix resolves (ready or failed).
	onProposal func(LogEntry)

	fixer Fixer
	// entrySource returns the current entry file source for fix requests.
	entrySource func() string

	mu         sync.Mutex
	generation uint64
	logs       []LogEntry
	requests   []NetworkEntry
	revealed   bool
	maxEntries int

	stats struct {
		console, network, stale, errors, fixes int64
	}
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRevealCallback sets the first-error callback.
func WithRevealCallback(fn func(LogEntry)) ConsumerOption {
	return func(c *Consumer) { c.onReveal = fn }
}

// WithProposalCallback sets the fix-resolution callback.
func WithProposalCallback(fn func(LogEntry)) ConsumerOption {
	return func(c *Consumer) { c.onProposal = fn }
}

// WithFixer attaches the auto-fix collaborator. entrySource supplies the
// source sent alongside the error message.
func WithFixer(f Fixer, entrySource func() string) ConsumerOption {
	return func(c *Consumer) {
		c.fixer = f
		c.entrySource = entrySource
	}
}

// WithConsumerLogger sets a custom logger.
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// WithMaxEntries bounds each history. Oldest entries are evicted. Default: 1000.
func WithMaxEntries(n int) ConsumerOption {
	return func(c *Consumer) { c.maxEntries = n }
}

// NewConsumer creates a Consumer.
func NewConsumer(opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		logger:     slog.Default(),
		newID:      idgen.Default,
		maxEntries: 1000,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Reset clears both histories and arms the reveal callback for a new
// build generation. Called by the engine at the start of every rebuild,
// so events from the superseded sandbox can no longer land.
func (c *Consumer) Reset(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation = generation
	c.logs = c.logs[:0]
	c.requests = c.requests[:0]
	c.revealed = false
}

// SendConsole ingests one bridge console event.
func (c *Consumer) SendConsole(_ context.Context, ev event.Console) error {
	c.mu.Lock()
	if ev.Generation != c.generation {
		c.stats.stale++
		c.mu.Unlock()
		c.logger.Debug("consumer: dropped stale console event",
			"event_generation", ev.Generation, "current", c.generation)
		return nil
	}
	c.stats.console++

	entry := LogEntry{ID: c.newID(), Console: ev}
	c.appendLogLocked(entry)

	var reveal func(LogEntry)
	if ev.Kind == event.KindError {
		c.stats.errors++
		if !c.revealed {
			c.revealed = true
			reveal = c.onReveal
		}
	}
	c.mu.Unlock()

	if reveal != nil {
		reveal(entry)
	}
	return nil
}

// SendNetwork ingests one bridge network event.
func (c *Consumer) SendNetwork(_ context.Context, ev event.Network) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Generation != c.generation {
		c.stats.stale++
		c.logger.Debug("consumer: dropped stale network event",
			"event_generation", ev.Generation, "current", c.generation)
		return nil
	}
	c.stats.network++
	c.requests = append(c.requests, NetworkEntry{ID: c.newID(), Network: ev})
	if len(c.requests) > c.maxEntries {
		c.requests = c.requests[len(c.requests)-c.maxEntries:]
	}
	return nil
}

// Close implements the sink interface.
func (c *Consumer) Close() error { return nil }

// AppendDiagnostic records a host-side build diagnostic as a log entry of
// the given kind. Diagnostics never crossed the bridge, so they carry the
// current generation directly.
func (c *Consumer) AppendDiagnostic(kind event.Kind, message string) {
	c.mu.Lock()
	entry := LogEntry{
		ID: c.newID(),
		Console: event.Console{
			Generation:  c.generation,
			Kind:        kind,
			Message:     message,
			TimestampMs: time.Now().UnixMilli(),
		},
	}
	c.appendLogLocked(entry)

	var reveal func(LogEntry)
	if kind == event.KindError {
		c.stats.errors++
		if !c.revealed {
			c.revealed = true
			reveal = c.onReveal
		}
	}
	c.mu.Unlock()

	if reveal != nil {
		reveal(entry)
	}
}

func (c *Consumer) appendLogLocked(entry LogEntry) {
	c.logs = append(c.logs, entry)
	if len(c.logs) > c.maxEntries {
		c.logs = c.logs[len(c.logs)-c.maxEntries:]
	}
}

// Logs returns a copy of the console history for the current build.
func (c *Consumer) Logs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

// Requests returns a copy of the network history for the current build.
func (c *Consumer) Requests() []NetworkEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]NetworkEntry, len(c.requests))
	copy(out, c.requests)
	return out
}

// Stats returns current counters.
func (c *Consumer) Stats() ConsumerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConsumerStats{
		ConsoleReceived: c.stats.console,
		NetworkReceived: c.stats.network,
		StaleDropped:    c.stats.stale,
		Errors:          c.stats.errors,
		FixRequests:     c.stats.fixes,
	}
}

// RequestFix asks the fixer for a corrected entry source for the error
// entry with the given ID. The call is asynchronous: the entry moves to
// FixPending immediately and the proposal callback fires when the fixer
// resolves. The proposal is never applied automatically.
func (c *Consumer) RequestFix(ctx context.Context, id string) error {
	if c.fixer == nil {
		return fmt.Errorf("consumer: no fixer configured")
	}

	// Fetch the source before taking c.mu: entrySource re-enters the
	// engine, and a rebuild holding the engine lock calls back into the
	// consumer. Holding both here would deadlock against it.
	var source string
	if c.entrySource != nil {
		source = c.entrySource()
	}

	c.mu.Lock()
	idx := -1
	for i := range c.logs {
		if c.logs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("consumer: no log entry %s", id)
	}
	if c.logs[idx].Kind != event.KindError {
		c.mu.Unlock()
		return fmt.Errorf("consumer: entry %s is not an error", id)
	}
	if c.logs[idx].FixState == FixPending {
		c.mu.Unlock()
		return fmt.Errorf("consumer: fix already pending for %s", id)
	}

	c.logs[idx].FixState = FixPending
	c.stats.fixes++
	message := c.logs[idx].Message
	gen := c.generation
	c.mu.Unlock()

	go c.runFix(ctx, id, gen, message, source)
	return nil
}

func (c *Consumer) runFix(ctx context.Context, id string, gen uint64, message, source string) {
	proposal, err := c.fixer.Fix(ctx, message, source)

	c.mu.Lock()
	// A rebuild may have cleared the history while the fixer was out.
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("consumer: fix resolved for superseded build", "id", id)
		return
	}
	idx := -1
	for i := range c.logs {
		if c.logs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.logs[idx].FixState = FixFailed
		c.logger.Warn("consumer: fix request failed", "id", id, "error", err)
	} else {
		c.logs[idx].FixState = FixReady
		c.logs[idx].Proposal = proposal
	}
	entry := c.logs[idx]
	notify := c.onProposal
	c.mu.Unlock()

	if notify != nil {
		notify(entry)
	}
}
