package domwatch

import "github.com/zoobzio/capitan"

// Field keys for domwatch events.
var (
	// KeyTarget is the short description of the session's target.
	KeyTarget = capitan.NewStringKey("target")

	// KeyTag is the tag name of the element involved.
	KeyTag = capitan.NewStringKey("tag")

	// KeyState is the current session state.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyStage is the stage that failed: "predicate" or "handler".
	KeyStage = capitan.NewStringKey("stage")

	// KeyDebounce is the configured debounce interval.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyThrottle is the configured throttle interval.
	KeyThrottle = capitan.NewDurationKey("throttle")

	// KeyTimeout is the configured wait timeout.
	KeyTimeout = capitan.NewDurationKey("timeout")

	// KeyBatchSize is the number of records in a delivered batch.
	KeyBatchSize = capitan.NewIntKey("batch_size")
)
