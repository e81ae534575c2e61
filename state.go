package domwatch

// State represents the current state of a Session.
type State int32

const (
	// StateWatching indicates the session is active and delivering.
	StateWatching State = iota

	// StateDegraded indicates the last delivery failed in the user handler
	// or a target predicate. The session keeps delivering; the next
	// successful delivery returns it to StateWatching.
	StateDegraded

	// StateDisposed indicates the session released its observer. Terminal.
	StateDisposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StateDegraded:
		return "degraded"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}
