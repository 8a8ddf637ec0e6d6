package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DummyEvent implements Event for testing
type DummyEvent struct {
	typeStr   string
	data      interface{}
	timestamp time.Time
	source    string
}

func (e *DummyEvent) Type() string         { return e.typeStr }
func (e *DummyEvent) Data() interface{}    { return e.data }
func (e *DummyEvent) Timestamp() time.Time { return e.timestamp }
func (e *DummyEvent) Source() string       { return e.source }

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus(nil)
	var called bool
	bus.Subscribe("test", func(ctx context.Context, event Event) error {
		called = true
		assert.Equal(t, "test", event.Type())
		return nil
	})
	err := bus.Publish(context.Background(), &DummyEvent{typeStr: "test", timestamp: time.Now()})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestEventBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := NewEventBus(nil)
	var seen []string
	bus.SubscribeAll(func(ctx context.Context, event Event) error {
		seen = append(seen, event.Type())
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), NewBasicEventWithSource(EventTypeRecordMigrated, nil, "test")))
	require.NoError(t, bus.Publish(context.Background(), NewBasicEventWithSource(EventTypeRecordSkipped, nil, "test")))
	assert.Equal(t, []string{EventTypeRecordMigrated, EventTypeRecordSkipped}, seen)
}

func TestEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus(nil)
	boom := errors.New("journal down")
	var secondCalled bool
	bus.Subscribe("ev", func(ctx context.Context, event Event) error { return boom })
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		secondCalled = true
		return nil
	})

	err := bus.Publish(context.Background(), NewBasicEventWithSource("ev", nil, "test"))
	assert.ErrorIs(t, err, boom)
	assert.True(t, secondCalled)
}

func TestEventBus_Retry(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	attempts := 0
	bus.Subscribe("flaky", func(ctx context.Context, event Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("first try fails")
		}
		return nil
	})
	assert.NoError(t, bus.Publish(context.Background(), NewBasicEventWithSource("flaky", nil, "test")))
	assert.Equal(t, 2, attempts)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	called := false
	bus.Subscribe("ev", func(ctx context.Context, event Event) error { called = true; return nil })
	bus.Unsubscribe("ev")
	assert.Empty(t, bus.GetEventTypes())
	assert.NoError(t, bus.Publish(context.Background(), NewBasicEventWithSource("ev", nil, "test")))
	assert.False(t, called)
}

func TestEventBus_GetEventTypes(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Subscribe("b", func(ctx context.Context, event Event) error { return nil })
	bus.Subscribe("a", func(ctx context.Context, event Event) error { return nil })
	assert.Equal(t, []string{"a", "b"}, bus.GetEventTypes())
}

func TestBasicEvent(t *testing.T) {
	ev := NewBasicEventWithSource(EventTypeRecordFailed, map[string]string{"handle": "x"}, "reconciler")
	assert.Equal(t, EventTypeRecordFailed, ev.Type())
	assert.Equal(t, "reconciler", ev.Source())
	assert.False(t, ev.Timestamp().IsZero())
	assert.Equal(t, map[string]string{"handle": "x"}, ev.Data())
}
