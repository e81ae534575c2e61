package domwatch

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key session events.
type MetricsProvider interface {
	// OnStateChange is called when a session transitions between states.
	OnStateChange(from, to State)

	// OnBatchReceived is called when a mutation batch arrives, with the
	// number of raw records it carries.
	OnBatchReceived(records int)

	// OnDeliver is called when a qualifying element reaches the handler.
	OnDeliver(kind EventKind)

	// OnHandlerError is called when processing fails. Stage indicates
	// where: "predicate" or "handler".
	OnHandlerError(stage string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State) {}
func (NoOpMetricsProvider) OnBatchReceived(_ int)    {}
func (NoOpMetricsProvider) OnDeliver(_ EventKind)    {}
func (NoOpMetricsProvider) OnHandlerError(_ string)  {}
