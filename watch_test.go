package domwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

func newTestWatcher(root *testNode) (*Watcher, *fakeSource) {
	src := newFakeSource()
	return New(src, &testEngine{root: root}), src
}

func TestWatchAddedDeliversMatches(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	var got []Event
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev)
			return nil
		},
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	hit := node("div", ".item")
	miss := node("div", ".other")
	root.append(hit, miss)
	src.emit(addedRec(root, hit, miss))

	if !s.Process(context.Background()) {
		t.Fatal("expected a pending batch")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Kind != EventAdded || got[0].Element != Element(hit) {
		t.Errorf("unexpected event: %+v", got[0])
	}
	if got[0].Change != nil {
		t.Error("structural events carry no change summary")
	}
}

func TestWatchAddedSubtreeFanout(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	var got []Element
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev.Element)
			return nil
		},
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	// A container arrives carrying a matching descendant.
	inner := node("span", ".item")
	container := node("div")
	container.append(inner)
	root.append(container)
	src.emit(addedRec(root, container))

	s.Process(context.Background())
	if len(got) != 1 || got[0] != Element(inner) {
		t.Fatalf("expected the matching descendant, got %v", got)
	}
}

func TestWatchAddedNoFanoutWhenSubtreeDisabled(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	calls := 0
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error { calls++; return nil },
		WithSyncMode(), WithSubtree(false),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	inner := node("span", ".item")
	container := node("div")
	container.append(inner)
	root.append(container)
	src.emit(addedRec(root, container))

	s.Process(context.Background())
	if calls != 0 {
		t.Errorf("expected no delivery without subtree, got %d", calls)
	}
}

func TestWatchAddedElementRefNoFanout(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	inner := node("span", ".item")
	container := node("div")
	container.append(inner)

	var got []Element
	s, err := w.WatchAdded(context.Background(), ElementRef(inner),
		func(_ context.Context, ev Event) error {
			got = append(got, ev.Element)
			return nil
		},
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	// The container arriving does not count as inner arriving.
	root.append(container)
	src.emit(addedRec(root, container))
	s.Process(context.Background())
	if len(got) != 0 {
		t.Fatalf("element targets must not fan out, got %v", got)
	}

	src.emit(addedRec(container, inner))
	s.Process(context.Background())
	if len(got) != 1 || got[0] != Element(inner) {
		t.Fatalf("expected the referenced element itself, got %v", got)
	}
}

func TestWatchRemovedDelivers(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	var got []Event
	s, err := w.WatchRemoved(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev)
			return nil
		},
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchRemoved failed: %v", err)
	}
	defer s.Dispose()

	gone := node("div", ".item")
	src.emit(removedRec(root, gone))
	s.Process(context.Background())

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Kind != EventRemoved || got[0].Element != Element(gone) {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestWatchOnceDisposesBeforeCallback(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	calls := 0
	var s *Session
	var err error
	s, err = w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error {
			calls++
			if !s.Disposed() {
				t.Error("session must be disposed by the time the callback runs")
			}
			return nil
		},
		WithSyncMode(), WithOnce(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}

	a, b := node("div", ".item"), node("div", ".item")
	root.append(a, b)
	src.emit(addedRec(root, a, b))
	s.Process(context.Background())

	if calls != 1 {
		t.Errorf("once delivers at most one callback, got %d", calls)
	}
	if src.disconnectCount() != 1 {
		t.Errorf("expected 1 disconnect, got %d", src.disconnectCount())
	}
}

func TestWatchModifiedAttributeSummary(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	var got []Event
	s, err := w.WatchModified(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev)
			return nil
		},
		WithSyncMode(), WithAttributeFilter("data-test"), WithCharacterData(),
	)
	if err != nil {
		t.Fatalf("WatchModified failed: %v", err)
	}
	defer s.Dispose()

	el := node("div", ".item")
	root.append(el)
	src.emit(attrRec(el, "data-test"), textRec(el))
	s.Process(context.Background())

	if len(got) != 1 {
		t.Fatalf("expected one summarized delivery per element, got %d", len(got))
	}
	ev := got[0]
	if ev.Kind != EventModified || ev.Element != Element(el) {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Change == nil {
		t.Fatal("modified events carry a change summary")
	}
	if !ev.Change.Attrs["data-test"] {
		t.Error("expected data-test in changed attributes")
	}
	if !ev.Change.Text {
		t.Error("expected text flag set")
	}
	if ev.Change.ChildList {
		t.Error("child-list flag must stay clear")
	}
	if len(ev.Change.Records) != 2 {
		t.Errorf("expected 2 raw records, got %d", len(ev.Change.Records))
	}
}

func TestWatchModifiedFirstObservedOrder(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	var got []Element
	s, err := w.WatchModified(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev.Element)
			return nil
		},
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchModified failed: %v", err)
	}
	defer s.Dispose()

	first := node("div", ".item")
	second := node("div", ".item")
	root.append(first, second)

	src.emit(attrRec(first, "a"), textRec(second), attrRec(first, "b"))
	s.Process(context.Background())

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0] != Element(first) || got[1] != Element(second) {
		t.Errorf("expected first-observed order, got %v", got)
	}
}

func TestWatchHandlerFaultKeepsSessionAlive(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	boom := errors.New("handler exploded")
	calls := 0
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error {
			calls++
			if calls == 1 {
				return boom
			}
			return nil
		},
		WithSyncMode(), WithErrorHistory(4),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	src.emit(addedRec(root, node("div", ".item")))
	s.Process(context.Background())

	if s.Disposed() {
		t.Fatal("handler faults must not dispose the session")
	}
	if s.State() != StateDegraded {
		t.Errorf("expected degraded state, got %v", s.State())
	}
	if !errors.Is(s.LastError(), boom) {
		t.Errorf("expected recorded handler error, got %v", s.LastError())
	}
	if hist := s.ErrorHistory(); len(hist) != 1 || !errors.Is(hist[0], boom) {
		t.Errorf("unexpected error history: %v", hist)
	}

	src.emit(addedRec(root, node("div", ".item")))
	s.Process(context.Background())

	if calls != 2 {
		t.Fatalf("delivery must continue after a fault, got %d calls", calls)
	}
	if s.State() != StateWatching {
		t.Errorf("clean delivery clears degraded state, got %v", s.State())
	}
}

func TestWatchPredicateFaultRecorded(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	boom := errors.New("bad predicate")
	calls := 0
	s, err := w.WatchAdded(context.Background(),
		Predicate(func(Element) (bool, error) { return false, boom }),
		func(context.Context, Event) error { calls++; return nil },
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	src.emit(addedRec(root, node("div")))
	s.Process(context.Background())

	if calls != 0 {
		t.Error("a faulting element must not be delivered")
	}
	if !errors.Is(s.LastError(), boom) {
		t.Errorf("expected recorded predicate error, got %v", s.LastError())
	}
	if s.Disposed() {
		t.Error("predicate faults must not dispose the session")
	}
}

func TestWatchNilHandler(t *testing.T) {
	w, _ := newTestWatcher(node("body"))
	if _, err := w.WatchAdded(context.Background(), Selector(".item"), nil); err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestWatchDebounceThrottleExclusive(t *testing.T) {
	w, _ := newTestWatcher(node("body"))
	_, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error { return nil },
		WithDebounce(10*time.Millisecond), WithThrottle(10*time.Millisecond),
	)
	if err == nil {
		t.Error("debounce and throttle are mutually exclusive")
	}
}

func TestSessionDisposeIdempotent(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	calls := 0
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error { calls++; return nil },
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}

	s.Dispose()
	s.Dispose()

	if src.disconnectCount() != 1 {
		t.Errorf("expected exactly 1 disconnect, got %d", src.disconnectCount())
	}
	if s.State() != StateDisposed {
		t.Errorf("expected disposed state, got %v", s.State())
	}

	src.emit(addedRec(root, node("div", ".item")))
	if s.Process(context.Background()) {
		t.Error("disposed sessions process nothing")
	}
	if calls != 0 {
		t.Error("disposed sessions must stay silent")
	}
}

func TestWatchSyncModeCancelDisposes(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := w.WatchAdded(ctx, Selector(".item"),
		func(context.Context, Event) error { return nil },
		WithSyncMode(),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}

	cancel()
	src.emit(addedRec(root, node("div", ".item")))

	if s.Process(context.Background()) {
		t.Error("canceled session must process nothing")
	}
	if !s.Disposed() {
		t.Error("cancellation must dispose on the next Process turn")
	}
}

func TestWatchContextCancelDisposes(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := w.WatchAdded(ctx, Selector(".item"),
		func(context.Context, Event) error { return nil },
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for !s.Disposed() {
		select {
		case <-deadline:
			t.Fatal("session did not dispose after cancellation")
		case <-time.After(time.Millisecond):
		}
	}
	if src.disconnectCount() != 1 {
		t.Errorf("expected 1 disconnect, got %d", src.disconnectCount())
	}
}

func TestWatchDebounceCollapsesDeliveries(t *testing.T) {
	root := node("body")
	clock := clockz.NewFakeClock()
	w, src := newTestWatcher(root)
	w.Clock(clock)

	var got []Element
	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(_ context.Context, ev Event) error {
			got = append(got, ev.Element)
			return nil
		},
		WithSyncMode(), WithDebounce(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	a, b := node("div", ".item"), node("div", ".item")
	src.emit(addedRec(root, a))
	s.Process(context.Background())
	src.emit(addedRec(root, b))
	s.Process(context.Background())

	if len(got) != 0 {
		t.Fatalf("debounced deliveries must wait for the interval, got %d", len(got))
	}

	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()
	if !s.Process(context.Background()) {
		t.Fatal("expected the deferred delivery to be pending")
	}
	if len(got) != 1 || got[0] != Element(b) {
		t.Fatalf("expected one delivery with the last element, got %v", got)
	}
}

func TestWatchModifiedObserveOptions(t *testing.T) {
	w, src := newTestWatcher(node("body"))

	s, err := w.WatchModified(context.Background(), Selector(".item"),
		func(context.Context, Event) error { return nil },
		WithSyncMode(), WithAttributeFilter("data-x", "data-y"),
		WithCharacterData(), WithChildList(),
	)
	if err != nil {
		t.Fatalf("WatchModified failed: %v", err)
	}
	defer s.Dispose()

	opts := src.lastOpts()
	if !opts.Attributes || !opts.CharacterData || !opts.ChildList || !opts.Subtree {
		t.Errorf("unexpected observe options: %+v", opts)
	}
	if len(opts.AttributeFilter) != 2 || opts.AttributeFilter[0] != "data-x" {
		t.Errorf("attribute filter not forwarded: %v", opts.AttributeFilter)
	}
}

func TestWatchAddedObserveOptions(t *testing.T) {
	w, src := newTestWatcher(node("body"))

	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error { return nil },
		WithSyncMode(), WithSubtree(false),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	opts := src.lastOpts()
	if !opts.ChildList {
		t.Error("structural sessions always observe child lists")
	}
	if opts.Subtree {
		t.Error("expected subtree disabled")
	}
	if opts.Attributes || opts.CharacterData {
		t.Errorf("structural sessions observe no attribute or text changes: %+v", opts)
	}
}

func TestWatchMiddlewareAndErrorHandler(t *testing.T) {
	root := node("body")
	w, src := newTestWatcher(root)

	seen := 0
	observed := 0
	boom := errors.New("handler exploded")

	s, err := w.WatchAdded(context.Background(), Selector(".item"),
		func(context.Context, Event) error { return boom },
		WithSyncMode(),
		WithMiddleware(UseEffect("count", func(context.Context, *Event) error {
			seen++
			return nil
		})),
		WithErrorHandler(pipz.Effect(pipz.Name("observe"), func(_ context.Context, _ *pipz.Error[*Event]) error {
			observed++
			return nil
		})),
	)
	if err != nil {
		t.Fatalf("WatchAdded failed: %v", err)
	}
	defer s.Dispose()

	src.emit(addedRec(root, node("div", ".item")))
	s.Process(context.Background())

	if seen != 1 {
		t.Errorf("expected middleware to run once, got %d", seen)
	}
	if observed != 1 {
		t.Errorf("expected error handler to observe the failure, got %d", observed)
	}
	if !errors.Is(s.LastError(), boom) {
		t.Errorf("handler error must still be recorded, got %v", s.LastError())
	}
}
