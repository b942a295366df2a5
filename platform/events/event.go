// Package events is the in-process publish/subscribe layer modules use to
// react to each other's state changes without importing one another.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on a Bus. Handlers are keyed by EventName.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events. ID lets log lines from several
// handlers of one publish be correlated.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// EventID returns the publish identifier, or uuid.Nil for events built
// without NewBaseEvent.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type Bus interface {
	// Publish fans the event out without blocking the caller.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers inline and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// identified is implemented by events embedding BaseEvent.
type identified interface {
	EventID() uuid.UUID
}

func logAttrs(event Event) []any {
	attrs := []any{"event", event.EventName()}
	if e, ok := event.(identified); ok && e.EventID() != uuid.Nil {
		attrs = append(attrs, "event_id", e.EventID().String())
	}
	return attrs
}
