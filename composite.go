package domwatch

import (
	"context"
	"fmt"
)

// SelectorHandlers names the optional callbacks for WatchSelector.
// Only the non-nil handlers get a session.
type SelectorHandlers struct {
	// OnEnter fires for qualifying elements entering the observed tree.
	OnEnter Handler

	// OnExit fires for qualifying elements leaving the observed tree.
	OnExit Handler

	// OnChange fires with a per-batch change summary for qualifying
	// elements that mutated.
	OnChange Handler
}

// SelectorSession composes up to three observation sessions sharing one
// target and one resolved config.
type SelectorSession struct {
	sessions []*Session
}

// WatchSelector builds enter/exit/change sessions over one target. The
// returned session disposes all constituents with one call.
func (w *Watcher) WatchSelector(ctx context.Context, target Target, handlers SelectorHandlers, opts ...Option) (*SelectorSession, error) {
	if handlers.OnEnter == nil && handlers.OnExit == nil && handlers.OnChange == nil {
		return nil, fmt.Errorf("domwatch: watch selector requires at least one handler")
	}

	cfg, err := newConfig(w.clock, opts)
	if err != nil {
		return nil, err
	}

	cs := &SelectorSession{}
	start := func(kind sessionKind, handler Handler) error {
		if handler == nil {
			return nil
		}
		s, err := w.startSession(ctx, kind, target, handler, cfg)
		if err != nil {
			return err
		}
		cs.sessions = append(cs.sessions, s)
		return nil
	}

	if err := start(sessionAdded, handlers.OnEnter); err != nil {
		cs.Dispose()
		return nil, err
	}
	if err := start(sessionRemoved, handlers.OnExit); err != nil {
		cs.Dispose()
		return nil, err
	}
	if err := start(sessionModified, handlers.OnChange); err != nil {
		cs.Dispose()
		return nil, err
	}
	return cs, nil
}

// Dispose releases every constituent session. Idempotent, and safe when
// some constituents already self-disposed via WithOnce or cancellation.
func (cs *SelectorSession) Dispose() {
	for _, s := range cs.sessions {
		s.Dispose()
	}
}

// LastError returns the first non-nil LastError among the constituents.
func (cs *SelectorSession) LastError() error {
	for _, s := range cs.sessions {
		if err := s.LastError(); err != nil {
			return err
		}
	}
	return nil
}

// Process services at most one pending batch or timer fire per
// constituent. Only meaningful in sync mode.
func (cs *SelectorSession) Process(ctx context.Context) bool {
	any := false
	for _, s := range cs.sessions {
		if s.Process(ctx) {
			any = true
		}
	}
	return any
}
