package domwatch

import (
	"errors"
	"fmt"
	"time"
)

// ErrAborted is returned by the wait operations when cancellation fires
// before a match. Test with errors.Is.
var ErrAborted = errors.New("domwatch: wait aborted")

// TimeoutError is returned by the wait operations when no match arrives
// within the configured timeout. Test with errors.As.
type TimeoutError struct {
	// Timeout is the duration that elapsed without a match.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("domwatch: wait timed out after %dms", e.Timeout.Milliseconds())
}
