package domwatch

import "github.com/zoobzio/capitan"

// Session lifecycle signals.
var (
	// WatchStarted is emitted when an observation session begins.
	WatchStarted = capitan.NewSignal(
		"domwatch.watch.started",
		"Observation session started",
	)

	// WatchStopped is emitted when an observation session is disposed.
	WatchStopped = capitan.NewSignal(
		"domwatch.watch.stopped",
		"Observation session disposed",
	)

	// SessionStateChanged is emitted when a session transitions between states.
	SessionStateChanged = capitan.NewSignal(
		"domwatch.session.state.changed",
		"Session state transition",
	)
)

// Delivery signals.
var (
	// BatchReceived is emitted when a mutation batch arrives from the source.
	BatchReceived = capitan.NewSignal(
		"domwatch.batch.received",
		"Mutation batch received",
	)

	// MatchDelivered is emitted when a qualifying element reaches the handler.
	MatchDelivered = capitan.NewSignal(
		"domwatch.match.delivered",
		"Matching element delivered to handler",
	)

	// HandlerFailed is emitted when a user handler or predicate fails.
	HandlerFailed = capitan.NewSignal(
		"domwatch.handler.failed",
		"User handler or predicate failed",
	)
)

// Wait signals.
var (
	// WaitMatched is emitted when a wait settles with a match.
	WaitMatched = capitan.NewSignal(
		"domwatch.wait.matched",
		"Wait settled with a match",
	)

	// WaitTimedOut is emitted when a wait exceeds its timeout.
	WaitTimedOut = capitan.NewSignal(
		"domwatch.wait.timeout",
		"Wait exceeded its timeout",
	)

	// WaitAborted is emitted when cancellation settles a wait.
	WaitAborted = capitan.NewSignal(
		"domwatch.wait.aborted",
		"Wait aborted by cancellation",
	)
)
