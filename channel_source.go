package domwatch

import "sync"

// ChannelSource adapts an existing record-batch channel as a
// MutationSource. Useful for testing and for custom bridges that already
// produce batches.
type ChannelSource struct {
	ch   <-chan []Record
	sync bool
}

// NewChannelSource creates a ChannelSource that forwards batches from the
// given channel through an internal goroutine. Disconnect stops
// forwarding and closes the delivery channel.
func NewChannelSource(ch <-chan []Record) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// NewSyncChannelSource creates a ChannelSource that returns the source
// channel directly without an intermediate goroutine. Use with
// WithSyncMode for deterministic testing; the caller owns the channel
// lifecycle and disconnect is a no-op.
func NewSyncChannelSource(ch <-chan []Record) *ChannelSource {
	return &ChannelSource{ch: ch, sync: true}
}

// Observe returns a channel delivering batches from the wrapped channel.
// Observation options are accepted for interface compatibility; the
// wrapped channel decides what it carries.
func (s *ChannelSource) Observe(_ Element, _ ObserveOptions) (<-chan []Record, func(), error) {
	if s.sync {
		return s.ch, func() {}, nil
	}

	out := make(chan []Record)
	done := make(chan struct{})
	var once sync.Once
	disconnect := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case batch, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- batch:
				case <-done:
					return
				}
			}
		}
	}()
	return out, disconnect, nil
}
