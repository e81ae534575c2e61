package domwatch

import "sync"

// errorRing retains the most recent handler faults for a session.
// A nil ring (size 0) retains nothing.
type errorRing struct {
	mu   sync.Mutex
	errs []error
	size int
}

func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{size: size}
}

// push appends an error, evicting the oldest when full.
func (r *errorRing) push(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) == r.size {
		copy(r.errs, r.errs[1:])
		r.errs[len(r.errs)-1] = err
		return
	}
	r.errs = append(r.errs, err)
}

// clear drops all retained errors.
func (r *errorRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = r.errs[:0]
}

// all returns the retained errors, oldest first.
func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) == 0 {
		return nil
	}
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}
