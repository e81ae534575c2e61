// Package domwatch provides DOM-change observation and element-presence
// waiting for browser content-script contexts.
//
// The core type is Watcher, which binds the two platform collaborators:
// the mutation-reporting primitive and the selector primitive. It
// creates observation sessions and waits against them.
//
// # Targets
//
// Every operation takes a Target identifying the elements of interest:
//
//	domwatch.Selector(".item")          // CSS selector
//	domwatch.ElementRef(el)             // one element, by identity
//	domwatch.Predicate(func(el domwatch.Element) (bool, error) {
//	    return el.TagName() == "dialog", nil
//	})
//
// # Observation
//
// WatchAdded, WatchRemoved, and WatchModified return a Session that owns
// one native observer. Delivery may be gated by a debounce or throttle
// interval; dispose the session to detach the observer and cancel any
// pending rate-limit timer:
//
//	session, err := watcher.WatchAdded(ctx, domwatch.Selector(".toast"),
//	    func(ctx context.Context, ev domwatch.Event) error {
//	        log.Printf("toast appeared: %s", ev.Element.TagName())
//	        return nil
//	    },
//	    domwatch.WithDebounce(100*time.Millisecond),
//	)
//	defer session.Dispose()
//
// WatchSelector composes enter/exit/change sessions over one target and
// returns a single disposer for all of them.
//
// # Waiting
//
// WaitFor, WaitForRemoved, and WaitForChange block until a match, the
// configured timeout (default 10s), or cancellation, whichever settles
// first:
//
//	el, err := watcher.WaitFor(ctx, domwatch.Selector("#ready"),
//	    domwatch.WithTimeout(2*time.Second))
//
// # Error policy
//
// Handler and predicate faults are never swallowed and never dispose a
// session: they surface through Session.LastError, the error history, and
// the HandlerFailed signal, and delivery continues. Waits propagate
// predicate faults unmodified. Dispose and cancellation are idempotent.
package domwatch
