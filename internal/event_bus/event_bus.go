package event_bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType identifies a kind of event on the bus.
type EventType string

// Event is the untyped envelope the bus moves around. Data stays any so one
// bus can carry every payload type.
type Event struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      any
}

// NewEvent stamps an event with the current time.
func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return Event{
		ctx:       ctx,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context returns the context the event was published under. Handlers use it
// for cancellation and request-scoped values such as the company.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// EventT is the envelope typed handlers receive.
type EventT[T any] struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      T
}

// Context returns the context the event was published under.
func (e EventT[T]) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

type subscriber struct {
	id uint64
	fn func(Event) error
}

// EventBus dispatches events to subscribers synchronously, in subscription
// order, on the publishing goroutine.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscriber
	nextId uint64
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[EventType][]subscriber)}
}

// Subscribe registers a handler for eventType and returns the function that
// removes it again.
func (b *EventBus) Subscribe(eventType EventType, fn func(Event) error) (unsubscribe func()) {
	b.mu.Lock()
	b.nextId++
	id := b.nextId
	b.subs[eventType] = append(b.subs[eventType], subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.subs[eventType][:0]
		for _, s := range b.subs[eventType] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, eventType)
			return
		}
		b.subs[eventType] = kept
	}
}

// SubscribeTyped registers a handler for payloads of type T. It is a free
// function because methods cannot carry their own type parameters. Events
// whose payload is not a T are skipped, so several payload shapes can share
// one bus without handlers defending against each other.
func SubscribeTyped[T any](b *EventBus, eventType EventType, fn func(EventT[T]) error) (unsubscribe func()) {
	return b.Subscribe(eventType, func(e Event) error {
		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("event %s: payload is %T, handler wants %T, skipping", eventType, e.Data, *new(T))
			return nil
		}
		return fn(EventT[T]{ctx: e.ctx, Type: e.Type, Timestamp: e.Timestamp, Data: payload})
	})
}

// Publish runs every handler registered for the event's type and returns the
// joined handler errors. A failing or panicking handler never stops the
// others; a cancelled context does.
func (b *EventBus) Publish(e Event) error {
	if err := e.Context().Err(); err != nil {
		return fmt.Errorf("event %s: %w", e.Type, err)
	}

	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[e.Type]))
	copy(subs, b.subs[e.Type])
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := e.Context().Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := b.dispatch(s, e); err != nil {
			log.Errorf("event %s: handler %d failed: %v", e.Type, s.id, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("event %s: %w", e.Type, errors.Join(errs...))
	}
	return nil
}

func (b *EventBus) dispatch(s subscriber, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panicked: %v", s.id, r)
		}
	}()
	return s.fn(e)
}
