package domwatch

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

type policy int

const (
	policyNone policy = iota
	policyDebounce
	policyThrottle
)

// limiter gates callback delivery behind a debounce or throttle interval.
// Each session owns exactly one limiter; its timer is serviced by the
// session loop via timerC/fire, so delivery stays on one goroutine.
type limiter struct {
	clock    clockz.Clock
	policy   policy
	interval time.Duration

	mu      sync.Mutex
	timer   clockz.Timer
	timerCh <-chan time.Time
	active  bool // timer scheduled and not yet fired
	pending Event
	queued  bool // pending holds a deferred call
	lastRun time.Time
	stopped bool
}

func newLimiter(clock clockz.Clock, cfg *config) *limiter {
	l := &limiter{clock: clock, policy: policyNone}
	switch {
	case cfg.debounce > 0:
		l.policy = policyDebounce
		l.interval = cfg.debounce
	case cfg.throttle > 0:
		l.policy = policyThrottle
		l.interval = cfg.throttle
	}
	return l
}

// submit offers a call to the limiter. It reports whether the call should
// execute immediately; otherwise the call is held as the pending delivery,
// superseding any earlier deferred call.
func (l *limiter) submit(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return false
	}

	switch l.policy {
	case policyNone:
		return true

	case policyDebounce:
		l.pending = ev
		l.queued = true
		l.arm(l.interval)
		return false

	default: // policyThrottle
		now := l.clock.Now()
		if l.lastRun.IsZero() || now.Sub(l.lastRun) >= l.interval {
			l.lastRun = now
			return true
		}
		l.pending = ev
		l.queued = true
		if !l.active {
			l.arm(l.interval - now.Sub(l.lastRun))
		}
		return false
	}
}

// arm schedules the timer for d, reusing the existing timer if any.
// Callers hold l.mu.
func (l *limiter) arm(d time.Duration) {
	if l.timer == nil {
		l.timer = l.clock.NewTimer(d)
		l.timerCh = l.timer.C()
		l.active = true
		return
	}
	if l.active && !l.timer.Stop() {
		select {
		case <-l.timerCh:
		default:
		}
	}
	l.timer.Reset(d)
	l.active = true
}

// timerC returns the channel that fires when a deferred call is due.
// Nil until the first call is deferred; a nil channel never selects.
func (l *limiter) timerC() <-chan time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timerCh
}

// fire consumes the pending call after the timer fired.
func (l *limiter) fire() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active = false
	if l.stopped || !l.queued {
		return Event{}, false
	}
	ev := l.pending
	l.pending = Event{}
	l.queued = false
	if l.policy == policyThrottle {
		l.lastRun = l.clock.Now()
	}
	return ev, true
}

// stop cancels any scheduled, not-yet-firing timer and drops the pending
// call. Safe to call more than once.
func (l *limiter) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	l.queued = false
	l.pending = Event{}
	if l.timer != nil && l.active {
		l.timer.Stop()
		l.active = false
	}
}
