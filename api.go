package domwatch

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// EventKind classifies a delivered event.
type EventKind int

const (
	// EventAdded reports an element entering the observed tree.
	EventAdded EventKind = iota

	// EventRemoved reports an element leaving the observed tree.
	EventRemoved

	// EventModified reports attribute, text, or child-list changes on an
	// element, summarized per batch.
	EventModified
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is one delivery to a handler.
type Event struct {
	// Kind classifies the delivery.
	Kind EventKind

	// Element is the qualifying element.
	Element Element

	// Change summarizes the batch's mutations on Element.
	// Non-nil only for EventModified.
	Change *ChangeInfo
}

// Handler receives qualifying elements. Returned errors propagate to the
// delivery context: they are recorded on the session and emitted as
// HandlerFailed, but never dispose the session.
type Handler func(ctx context.Context, ev Event) error

// Watcher binds a mutation source and a selector engine and creates
// sessions and waits against them. Create one per document.
type Watcher struct {
	source  MutationSource
	engine  SelectorEngine
	clock   clockz.Clock
	metrics MetricsProvider
}

// New creates a Watcher over the given collaborators.
func New(source MutationSource, engine SelectorEngine) *Watcher {
	return &Watcher{
		source: source,
		engine: engine,
		clock:  clockz.RealClock,
	}
}

// Clock sets the default clock for sessions and waits created by this
// Watcher. Use clockz.FakeClock for deterministic timing tests.
// Per-operation WithClock takes precedence.
func (w *Watcher) Clock(clock clockz.Clock) *Watcher {
	w.clock = clock
	return w
}

// Metrics sets a metrics provider for observability integration.
// The provider receives callbacks on batches, deliveries, handler
// failures, and session state changes.
func (w *Watcher) Metrics(provider MetricsProvider) *Watcher {
	w.metrics = provider
	return w
}

// WatchAdded observes structural mutations and delivers each element
// entering the observed tree that satisfies target. With subtree enabled
// and a selector target, elements arriving as part of a larger inserted
// subtree are delivered too.
func (w *Watcher) WatchAdded(ctx context.Context, target Target, handler Handler, opts ...Option) (*Session, error) {
	return w.watch(ctx, sessionAdded, target, handler, opts)
}

// WatchRemoved observes structural mutations and delivers each qualifying
// element leaving the observed tree, with the same subtree fan-out rules
// as WatchAdded.
func (w *Watcher) WatchRemoved(ctx context.Context, target Target, handler Handler, opts ...Option) (*Session, error) {
	return w.watch(ctx, sessionRemoved, target, handler, opts)
}

// WatchModified observes attribute (optionally filtered), character-data,
// and child-list mutations per the options and delivers one summarized
// Event per affected element per batch.
func (w *Watcher) WatchModified(ctx context.Context, target Target, handler Handler, opts ...Option) (*Session, error) {
	return w.watch(ctx, sessionModified, target, handler, opts)
}

func (w *Watcher) watch(ctx context.Context, kind sessionKind, target Target, handler Handler, opts []Option) (*Session, error) {
	if handler == nil {
		return nil, fmt.Errorf("domwatch: nil handler")
	}
	cfg, err := newConfig(w.clock, opts)
	if err != nil {
		return nil, err
	}
	return w.startSession(ctx, kind, target, handler, cfg)
}

// startSession wires one native observer to one Session. Shared by the
// Watch entry points and WatchSelector, which passes one config to up to
// three sessions.
func (w *Watcher) startSession(ctx context.Context, kind sessionKind, target Target, handler Handler, cfg *config) (*Session, error) {
	batches, disconnect, err := w.source.Observe(cfg.root, kind.observeOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("domwatch: observe failed: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		kind:       kind,
		target:     target,
		cfg:        cfg,
		match:      matcher{engine: w.engine},
		metrics:    w.metrics,
		pipeline:   buildPipeline(cfg, handler),
		limiter:    newLimiter(cfg.clock, cfg),
		batches:    batches,
		disconnect: disconnect,
		cancel:     cancel,
		ctx:        sctx,
		faults:     newErrorRing(cfg.errorHistory),
	}
	s.state.Store(int32(StateWatching))

	capitan.Emit(ctx, WatchStarted,
		KeyTarget.Field(target.String()),
		KeyDebounce.Field(cfg.debounce),
		KeyThrottle.Field(cfg.throttle),
	)

	if !cfg.syncMode {
		go s.run(sctx)
	}
	return s, nil
}

// observeOptions maps a session kind and config to the native observer
// options.
func (k sessionKind) observeOptions(cfg *config) ObserveOptions {
	switch k {
	case sessionModified:
		return ObserveOptions{
			Subtree:         cfg.subtree,
			Attributes:      true,
			AttributeFilter: cfg.attributeFilter,
			CharacterData:   cfg.characterData,
			ChildList:       cfg.childList,
		}
	default:
		return ObserveOptions{
			Subtree:   cfg.subtree,
			ChildList: true,
		}
	}
}
