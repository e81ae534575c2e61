package domwatch

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// WaitFor blocks until an element satisfying target exists, the timeout
// elapses, or ctx is canceled. When target is a selector or element
// reference and a match already exists under the configured root, it
// returns synchronously without creating an observer.
func (w *Watcher) WaitFor(ctx context.Context, target Target, opts ...Option) (Element, error) {
	cfg, err := newConfig(w.clock, opts)
	if err != nil {
		return nil, err
	}

	if el, ok := w.existing(target, cfg); ok {
		capitan.Emit(ctx, WaitMatched,
			KeyTarget.Field(target.String()),
			KeyTag.Field(el.TagName()),
		)
		return el, nil
	}

	m := matcher{engine: w.engine}
	var matched Element
	err = w.await(ctx, target, cfg, ObserveOptions{Subtree: cfg.subtree, ChildList: true},
		func(batch []Record) (bool, error) {
			el, err := firstMatch(batch, KindChildAdded, target, m, cfg.subtree)
			if err != nil || el == nil {
				return false, err
			}
			matched = el
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	capitan.Emit(ctx, WaitMatched,
		KeyTarget.Field(target.String()),
		KeyTag.Field(matched.TagName()),
	)
	return matched, nil
}

// WaitForRemoved blocks until an element satisfying target is removed
// from the observed tree, the timeout elapses, or ctx is canceled. There
// is no already-removed shortcut: absence cannot be told apart from
// never-existed.
func (w *Watcher) WaitForRemoved(ctx context.Context, target Target, opts ...Option) error {
	cfg, err := newConfig(w.clock, opts)
	if err != nil {
		return err
	}

	m := matcher{engine: w.engine}
	err = w.await(ctx, target, cfg, ObserveOptions{Subtree: cfg.subtree, ChildList: true},
		func(batch []Record) (bool, error) {
			el, err := firstMatch(batch, KindChildRemoved, target, m, cfg.subtree)
			return el != nil, err
		})
	if err != nil {
		return err
	}

	capitan.Emit(ctx, WaitMatched, KeyTarget.Field(target.String()))
	return nil
}

// WaitForChange blocks until a batch contains records owned by elements
// satisfying target and pred accepts that subsequence, then returns it.
// A nil pred accepts any non-empty subsequence. Predicate faults
// propagate unmodified.
func (w *Watcher) WaitForChange(ctx context.Context, target Target, pred func([]Record) (bool, error), opts ...Option) ([]Record, error) {
	cfg, err := newConfig(w.clock, opts)
	if err != nil {
		return nil, err
	}

	full := ObserveOptions{
		Subtree:         cfg.subtree,
		Attributes:      true,
		AttributeFilter: cfg.attributeFilter,
		CharacterData:   true,
		ChildList:       true,
	}

	m := matcher{engine: w.engine}
	var matched []Record
	err = w.await(ctx, target, cfg, full,
		func(batch []Record) (bool, error) {
			sub, err := owningRecords(batch, target, m)
			if err != nil || len(sub) == 0 {
				return false, err
			}
			if pred != nil {
				ok, err := pred(sub)
				if err != nil || !ok {
					return false, err
				}
			}
			matched = sub
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	capitan.Emit(ctx, WaitMatched, KeyTarget.Field(target.String()))
	return matched, nil
}

// await runs the shared settlement race: batches against the timeout
// timer and cancellation. First settlement wins; the loser's observer and
// timer are torn down before returning.
func (w *Watcher) await(ctx context.Context, target Target, cfg *config, opts ObserveOptions, settle func([]Record) (bool, error)) error {
	batches, disconnect, err := w.source.Observe(cfg.root, opts)
	if err != nil {
		return fmt.Errorf("domwatch: observe failed: %w", err)
	}
	defer disconnect()

	timer := cfg.clock.NewTimer(cfg.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			capitan.Emit(ctx, WaitAborted,
				KeyTarget.Field(target.String()),
				KeyError.Field(ctx.Err().Error()),
			)
			return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())

		case <-timer.C():
			capitan.Emit(ctx, WaitTimedOut,
				KeyTarget.Field(target.String()),
				KeyTimeout.Field(cfg.timeout),
			)
			return &TimeoutError{Timeout: cfg.timeout}

		case batch, ok := <-batches:
			if !ok {
				return fmt.Errorf("%w: mutation source closed", ErrAborted)
			}
			done, err := settle(batch)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// existing resolves the presence shortcut. Only selector and element
// targets can be resolved without an observer; predicate targets always
// wait for mutations.
func (w *Watcher) existing(target Target, cfg *config) (Element, bool) {
	switch target.kind {
	case targetSelector:
		if els := w.engine.QueryAll(cfg.root, target.selector); len(els) > 0 {
			return els[0], true
		}
	case targetElement:
		if target.element != nil && w.engine.Contains(cfg.root, target.element) {
			return target.element, true
		}
	}
	return nil, false
}

// firstMatch scans one batch's structural records of the wanted kind for
// the first element satisfying target, directly or (with subtree) among
// matching descendants of an added/removed node.
func firstMatch(batch []Record, want Kind, target Target, m matcher, subtree bool) (Element, error) {
	for _, rec := range batch {
		if rec.Kind != want {
			continue
		}
		nodes := rec.Added
		if want == KindChildRemoved {
			nodes = rec.Removed
		}

		for _, el := range nodes {
			ok, err := m.matches(el, target)
			if err != nil {
				return nil, err
			}
			if ok {
				return el, nil
			}
			if subtree {
				if ds := m.descendants(el, target); len(ds) > 0 {
					return ds[0], nil
				}
			}
		}
	}
	return nil, nil
}

// owningRecords returns the subsequence of batch whose owning element
// satisfies target, preserving delivery order.
func owningRecords(batch []Record, target Target, m matcher) ([]Record, error) {
	var sub []Record
	for _, rec := range batch {
		if rec.Target == nil {
			continue
		}
		ok, err := m.matches(rec.Target, target)
		if err != nil {
			return nil, err
		}
		if ok {
			sub = append(sub, rec)
		}
	}
	return sub, nil
}
