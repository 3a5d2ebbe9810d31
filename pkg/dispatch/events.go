package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// EventHandler handles one gateway event. The payload is the decoded event
// struct (e.g. *discordgo.MessageCreate).
type EventHandler func(ctx context.Context, payload any) error

// EventRegistry holds event subscriptions keyed by event kind. Subscriptions
// are append-only.
type EventRegistry struct {
	mu     sync.RWMutex
	subs   map[string][]EventHandler
	logger zerolog.Logger
}

// NewEventRegistry returns an empty registry that reports handler failures to
// logger.
func NewEventRegistry(logger zerolog.Logger) *EventRegistry {
	return &EventRegistry{
		subs:   make(map[string][]EventHandler),
		logger: logger,
	}
}

// Add appends a handler for kind. Several handlers per kind are allowed.
func (r *EventRegistry) Add(kind string, h EventHandler) error {
	if kind == "" {
		return fmt.Errorf("add event handler: empty kind")
	}
	if h == nil {
		return fmt.Errorf("add event handler %s: nil handler", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[kind] = append(r.subs[kind], h)
	return nil
}

// On subscribes a typed handler. Payloads of another type are reported as a
// handler fault.
func On[T any](r *EventRegistry, kind string, fn func(ctx context.Context, event T) error) error {
	if fn == nil {
		return fmt.Errorf("add event handler %s: nil handler", kind)
	}
	return r.Add(kind, func(ctx context.Context, payload any) error {
		event, ok := payload.(T)
		if !ok {
			return fmt.Errorf("unexpected payload %T", payload)
		}
		return fn(ctx, event)
	})
}

// Len returns the number of handlers subscribed to kind.
func (r *EventRegistry) Len(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[kind])
}

// Dispatch runs every handler for kind in registration order. A failing or
// panicking handler is logged and does not stop the rest; the returned error
// joins all failures.
func (r *EventRegistry) Dispatch(ctx context.Context, kind string, payload any) error {
	r.mu.RLock()
	handlers := append([]EventHandler(nil), r.subs[kind]...)
	r.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		err := runSafely(func() error { return h(ctx, payload) })
		if err == nil {
			continue
		}
		fault := newError(KindHandlerFault, kind, fmt.Sprintf("subscription %d", i), err)
		ev := r.logger.Error().Err(fault).Str("event", kind).Int("subscription", i)
		var pe *panicError
		if errors.As(err, &pe) {
			ev = ev.Bytes("stack", pe.stack)
		}
		ev.Msg("event handler failed")
		errs = append(errs, fault)
	}
	return errors.Join(errs...)
}
