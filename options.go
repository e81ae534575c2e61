package domwatch

import (
	"context"

	"github.com/zoobzio/pipz"
)

const handlerID pipz.Name = "handler"

// buildPipeline wraps the user handler with the configured middleware and
// error observation. The handler is always the terminal stage.
func buildPipeline(cfg *config, handler Handler) pipz.Chainable[*Event] {
	var pipeline pipz.Chainable[*Event] = pipz.Effect(handlerID, func(ctx context.Context, ev *Event) error {
		return handler(ctx, *ev)
	})

	if len(cfg.middleware) > 0 {
		all := make([]pipz.Chainable[*Event], 0, len(cfg.middleware)+1)
		all = append(all, cfg.middleware...)
		all = append(all, pipeline)
		pipeline = pipz.NewSequence("middleware", all...)
	}
	if cfg.errHandler != nil {
		pipeline = pipz.NewHandle("error-handler", pipeline, cfg.errHandler)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Middleware Processors - Adapters (Use*)
// -----------------------------------------------------------------------------
// These create processors for use inside WithMiddleware.
// They transform or observe the event as it flows toward the handler.

// UseTransform creates a processor that transforms the event.
// Cannot fail. Use for pure transformations that always succeed.
func UseTransform(name string, fn func(context.Context, *Event) *Event) pipz.Chainable[*Event] {
	return pipz.Transform(pipz.Name(name), fn)
}

// UseApply creates a processor that can transform the event and fail.
func UseApply(name string, fn func(context.Context, *Event) (*Event, error)) pipz.Chainable[*Event] {
	return pipz.Apply(pipz.Name(name), fn)
}

// UseEffect creates a processor that performs a side effect. The event
// passes through unchanged. Use for logging, metrics, or notifications.
func UseEffect(name string, fn func(context.Context, *Event) error) pipz.Chainable[*Event] {
	return pipz.Effect(pipz.Name(name), fn)
}

// UseFilter wraps a processor with a condition. If the condition returns
// false, the event passes through unchanged.
func UseFilter(name string, condition func(context.Context, *Event) bool, processor pipz.Chainable[*Event]) pipz.Chainable[*Event] {
	return pipz.NewFilter(pipz.Name(name), condition, processor)
}
