package events

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"funnel_backend/platform/logger"
)

type pinged struct {
	BaseEvent
}

func (pinged) EventName() string { return "test.pinged" }

func TestPublishRunsEveryHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls.Load())
	}
}

func TestPublishDetachesFromCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var sawErr error
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, _ Event) error {
		sawErr = ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pinged{})
	bus.Wait()

	if sawErr != nil {
		t.Fatalf("expected handler context to outlive the publisher, got %v", sawErr)
	}
}

func TestPublishRecoversPanicsAndLogsEventID(t *testing.T) {
	var buf bytes.Buffer
	bus := NewInMemoryBus(logger.NewWithWriter("production", &buf))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		panic("boom")
	}))

	event := pinged{BaseEvent: NewBaseEvent()}
	bus.Publish(context.Background(), event)
	bus.Wait()

	out := buf.String()
	if !strings.Contains(out, "event handler panicked") || !strings.Contains(out, event.ID.String()) {
		t.Fatalf("expected panic log with event id, got %s", out)
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	first := errors.New("first")
	second := errors.New("second")
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error { return first }))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error { return nil }))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error { return second }))

	err := bus.PublishSync(context.Background(), pinged{})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestNewBaseEventIsUTC(t *testing.T) {
	e := NewBaseEvent()
	if e.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
	if attrs := logAttrs(pinged{}); len(attrs) != 2 {
		t.Fatalf("expected no event_id for zero event, got %v", attrs)
	}
}
