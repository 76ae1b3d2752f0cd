package events

import (
	"context"
	"testing"
	"time"

	"codeclash/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeMatchTransitioned, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), MatchTransitionedEvent{
		MatchID:        42,
		PreviousStatus: models.MatchStatusOpen,
		NewStatus:      models.MatchStatusMatched,
	})

	e := waitForEvent(t, received)
	transitioned, ok := e.(MatchTransitionedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), transitioned.MatchID)
	assert.Equal(t, models.MatchStatusMatched, transitioned.NewStatus)
}

func TestBus_OnlyMatchingTypeReceives(t *testing.T) {
	bus := NewBus()
	settled := make(chan Event, 1)
	transitioned := make(chan Event, 1)

	bus.Subscribe(EventTypeMatchSettled, func(ctx context.Context, e Event) {
		settled <- e
	})
	bus.Subscribe(EventTypeMatchTransitioned, func(ctx context.Context, e Event) {
		transitioned <- e
	})

	bus.Emit(context.Background(), MatchSettledEvent{MatchID: 7})

	waitForEvent(t, settled)
	select {
	case <-transitioned:
		t.Fatal("handler for a different event type was invoked")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeHoldPlaced, func(ctx context.Context, e Event) {
		panic("handler bug")
	})
	bus.Subscribe(EventTypeHoldPlaced, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), HoldPlacedEvent{HoldID: 1})

	waitForEvent(t, received)
}

func TestTransactionalBus_FlushAfterCommit(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 2)
	bus.Subscribe(EventTypeHoldPlaced, func(ctx context.Context, e Event) {
		received <- e
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(HoldPlacedEvent{HoldID: 1})
	txBus.Publish(HoldPlacedEvent{HoldID: 2})

	// Nothing reaches subscribers until the flush
	select {
	case <-received:
		t.Fatal("event leaked before flush")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, txBus.Flush(context.Background()))

	waitForEvent(t, received)
	waitForEvent(t, received)
}

func TestTransactionalBus_DiscardDropsStagedEvents(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventTypeHoldReleased, func(ctx context.Context, e Event) {
		received <- e
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(HoldReleasedEvent{HoldID: 9})
	txBus.Discard()

	require.NoError(t, txBus.Flush(context.Background()))

	select {
	case <-received:
		t.Fatal("discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}
