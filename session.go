package domwatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

type sessionKind int

const (
	sessionAdded sessionKind = iota
	sessionRemoved
	sessionModified
)

// Session is one live observation. It exclusively owns one native
// observer handle, one rate limiter, and one delivery pipeline.
// Lifecycle: created by a Watch call → active → disposed, via explicit
// Dispose, cancellation of the creating context, or the first delivered
// callback when WithOnce is set.
type Session struct {
	kind    sessionKind
	target  Target
	cfg     *config
	match   matcher
	metrics MetricsProvider

	pipeline   pipz.Chainable[*Event]
	limiter    *limiter
	batches    <-chan []Record
	disconnect func()
	cancel     context.CancelFunc
	ctx        context.Context

	state     atomic.Int32
	lastError atomic.Pointer[error]
	faults    *errorRing

	disposeOnce sync.Once
}

// State returns the current state of the session.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Disposed reports whether the session has released its observer.
func (s *Session) Disposed() bool {
	return s.State() == StateDisposed
}

// LastError returns the most recent handler or predicate fault, or nil.
func (s *Session) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent faults, oldest first. Nil unless the
// session was created with WithErrorHistory.
func (s *Session) ErrorHistory() []error {
	return s.faults.all()
}

// Dispose detaches the native observer and cancels any pending rate-limit
// timer. Idempotent, and safe against concurrent cancellation.
func (s *Session) Dispose() {
	s.disposeOnce.Do(func() {
		old := s.State()
		s.disconnect()
		s.limiter.stop()
		s.cancel()
		s.state.Store(int32(StateDisposed))

		capitan.Emit(s.ctx, SessionStateChanged,
			KeyOldState.Field(old.String()),
			KeyNewState.Field(StateDisposed.String()),
		)
		capitan.Emit(s.ctx, WatchStopped,
			KeyTarget.Field(s.target.String()),
		)
		if s.metrics != nil {
			s.metrics.OnStateChange(old, StateDisposed)
		}
	})
}

// run services mutation delivery and the rate-limit timer on a single
// goroutine. Cancellation triggers disposal synchronously within this
// loop's turn.
func (s *Session) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Dispose()
			return

		case batch, ok := <-s.batches:
			if !ok {
				s.Dispose()
				return
			}
			s.handleBatch(ctx, batch)
			if s.Disposed() {
				return
			}

		case <-s.limiter.timerC():
			s.flushPending(ctx)
			if s.Disposed() {
				return
			}
		}
	}
}

// Process services at most one pending batch or timer fire. Only
// meaningful in sync mode; returns false when nothing was pending, the
// session is disposed, or the session runs its own goroutine.
func (s *Session) Process(ctx context.Context) bool {
	if !s.cfg.syncMode || s.Disposed() {
		return false
	}
	if s.ctx.Err() != nil {
		s.Dispose()
		return false
	}

	select {
	case batch, ok := <-s.batches:
		if !ok {
			s.Dispose()
			return false
		}
		s.handleBatch(ctx, batch)
		return true

	case <-s.limiter.timerC():
		s.flushPending(ctx)
		return true

	default:
		return false
	}
}

func (s *Session) handleBatch(ctx context.Context, batch []Record) {
	capitan.Emit(ctx, BatchReceived,
		KeyTarget.Field(s.target.String()),
		KeyBatchSize.Field(len(batch)),
	)
	if s.metrics != nil {
		s.metrics.OnBatchReceived(len(batch))
	}

	if s.kind == sessionModified {
		s.handleModified(ctx, batch)
		return
	}
	s.handleStructural(ctx, batch)
}

// handleStructural processes one batch for added/removed sessions: each
// added or removed node is tested directly, and for selector targets with
// subtree enabled, its matching descendants qualify too. Once the session
// disposes (WithOnce), the rest of the batch is skipped.
func (s *Session) handleStructural(ctx context.Context, batch []Record) {
	want := KindChildAdded
	evKind := EventAdded
	if s.kind == sessionRemoved {
		want = KindChildRemoved
		evKind = EventRemoved
	}

	for _, rec := range batch {
		if rec.Kind != want {
			continue
		}
		nodes := rec.Added
		if want == KindChildRemoved {
			nodes = rec.Removed
		}

		for _, el := range nodes {
			ok, err := s.match.matches(el, s.target)
			if err != nil {
				s.fault(ctx, "predicate", err)
				continue
			}
			if ok && s.deliver(ctx, Event{Kind: evKind, Element: el}) {
				return
			}
			if s.cfg.subtree {
				for _, d := range s.match.descendants(el, s.target) {
					if s.deliver(ctx, Event{Kind: evKind, Element: d}) {
						return
					}
				}
			}
		}
	}
}

// handleModified aggregates the batch per element and delivers one event
// per affected element, in first-observed order.
func (s *Session) handleModified(ctx context.Context, batch []Record) {
	byElement := make(map[Element]*ChangeInfo)
	var order []Element

	for _, err := range aggregate(batch, s.target, s.match, s.cfg.subtree, byElement, &order) {
		s.fault(ctx, "predicate", err)
	}

	for _, el := range order {
		if s.deliver(ctx, Event{Kind: EventModified, Element: el, Change: byElement[el]}) {
			return
		}
	}
}

// deliver routes one qualifying event through the rate limiter. It
// reports whether the session disposed itself (once semantics) so batch
// processing can stop.
func (s *Session) deliver(ctx context.Context, ev Event) (stop bool) {
	if s.Disposed() {
		return true
	}
	if !s.limiter.submit(ev) {
		return false
	}
	return s.invoke(ctx, ev)
}

// flushPending runs the rate limiter's deferred call after its timer fired.
func (s *Session) flushPending(ctx context.Context) {
	ev, ok := s.limiter.fire()
	if !ok {
		return
	}
	s.invoke(ctx, ev)
}

// invoke runs one user-visible callback through the pipeline. With
// WithOnce, disposal happens before the callback so at most one ever
// fires.
func (s *Session) invoke(ctx context.Context, ev Event) (stop bool) {
	if s.cfg.once {
		s.Dispose()
	}

	capitan.Emit(ctx, MatchDelivered,
		KeyTarget.Field(s.target.String()),
		KeyTag.Field(ev.Element.TagName()),
	)
	if s.metrics != nil {
		s.metrics.OnDeliver(ev.Kind)
	}

	if _, err := s.pipeline.Process(ctx, &ev); err != nil {
		s.fault(ctx, "handler", err)
	} else {
		s.recover(ctx)
	}
	return s.cfg.once
}

// fault records a handler or predicate error without disposing the
// session. The next successful delivery clears the degraded state.
func (s *Session) fault(ctx context.Context, stage string, err error) {
	e := err
	s.lastError.Store(&e)
	s.faults.push(err)

	capitan.Emit(ctx, HandlerFailed,
		KeyTarget.Field(s.target.String()),
		KeyStage.Field(stage),
		KeyError.Field(err.Error()),
	)
	if s.metrics != nil {
		s.metrics.OnHandlerError(stage)
	}
	s.transition(ctx, StateDegraded)
}

// recover returns a degraded session to watching after a clean delivery.
func (s *Session) recover(ctx context.Context) {
	if s.State() == StateDegraded {
		s.transition(ctx, StateWatching)
	}
}

func (s *Session) transition(ctx context.Context, to State) {
	old := s.State()
	if old == to || old == StateDisposed {
		return
	}
	s.state.Store(int32(to))
	capitan.Emit(ctx, SessionStateChanged,
		KeyOldState.Field(old.String()),
		KeyNewState.Field(to.String()),
	)
	if s.metrics != nil {
		s.metrics.OnStateChange(old, to)
	}
}
