package events

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles a domain event.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandlerRegistration represents a handler registration for specific event types.
type HandlerRegistration struct {
	EventTypes []string
	Handler    HandlerFunc
	Name       string // For logging/debugging
}

// Publisher is what services depend on to emit events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Dispatcher fans domain events out to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError determines if dispatch should continue when a handler fails
	ContinueOnError bool
}

type namedHandler struct {
	name    string
	handler HandlerFunc
}

// NewDispatcher creates a dispatcher that keeps going past failing handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:        make(map[string][]namedHandler),
		ContinueOnError: true,
	}
}

// Register registers a handler for specific event types.
func (d *Dispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nh := namedHandler{name: reg.Name, handler: reg.Handler}
	for _, eventType := range reg.EventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], nh)
	}
}

// RegisterHandler is a convenience method to register a single handler for event types.
func (d *Dispatcher) RegisterHandler(name string, handler HandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{
		Name:       name,
		Handler:    handler,
		EventTypes: eventTypes,
	})
}

// RegisterWildcard registers a handler for all events.
func (d *Dispatcher) RegisterWildcard(name string, handler HandlerFunc) {
	d.RegisterHandler(name, handler, "*")
}

// Publish dispatches an event to its type's handlers and then the wildcard handlers.
func (d *Dispatcher) Publish(ctx context.Context, event *Event) error {
	d.mu.RLock()
	var handlers []namedHandler
	handlers = append(handlers, d.handlers[event.Type]...)
	handlers = append(handlers, d.handlers["*"]...)
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, event); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for event %s: %w", nh.name, event.Type, err)
			if !d.ContinueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}

	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// HandlerCount returns the number of handlers that would receive the event type.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := len(d.handlers[eventType])
	if eventType != "*" {
		count += len(d.handlers["*"])
	}
	return count
}

// DispatchError contains multiple errors from event dispatch.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap returns the first error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, *Event) error { return nil }
