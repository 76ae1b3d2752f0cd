package events

import (
	"context"
	"sync"
	"time"

	"codeclash/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeMatchTransitioned   EventType = "match_transitioned"
	EventTypeParticipantJoined   EventType = "participant_joined"
	EventTypeParticipantReady    EventType = "participant_ready"
	EventTypeMatchForfeited      EventType = "match_forfeited"
	EventTypeMatchCancelled      EventType = "match_cancelled"
	EventTypeMatchSettled        EventType = "match_settled"
	EventTypeHoldPlaced          EventType = "hold_placed"
	EventTypeHoldReleased        EventType = "hold_released"
	EventTypeRatingsUpdated      EventType = "ratings_updated"
	EventTypeRatingUpdateFailed  EventType = "rating_update_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// MatchTransitionedEvent is published once per successful status transition
type MatchTransitionedEvent struct {
	MatchID        int64
	PreviousStatus models.MatchStatus
	NewStatus      models.MatchStatus
	ActorUserID    *int64
	Reason         string
	Timestamp      time.Time
}

func (e MatchTransitionedEvent) Type() EventType {
	return EventTypeMatchTransitioned
}

// ParticipantJoinedEvent represents a participant taking a seat in a match
type ParticipantJoinedEvent struct {
	MatchID int64
	UserID  int64
	Seat    models.Seat
}

func (e ParticipantJoinedEvent) Type() EventType {
	return EventTypeParticipantJoined
}

// ParticipantReadyEvent represents a participant marking themselves ready
type ParticipantReadyEvent struct {
	MatchID int64
	UserID  int64
}

func (e ParticipantReadyEvent) Type() EventType {
	return EventTypeParticipantReady
}

// MatchForfeitedEvent represents a participant conceding the match
type MatchForfeitedEvent struct {
	MatchID          int64
	ForfeitingUserID int64
	WinnerUserID     int64
}

func (e MatchForfeitedEvent) Type() EventType {
	return EventTypeMatchForfeited
}

// MatchCancelledEvent represents the creator cancelling a match before play
type MatchCancelledEvent struct {
	MatchID       int64
	CreatorUserID int64
	HoldsReleased int
}

func (e MatchCancelledEvent) Type() EventType {
	return EventTypeMatchCancelled
}

// MatchSettledEvent represents the terminal ledger movement for a match
type MatchSettledEvent struct {
	MatchID     int64
	WinnerID    int64
	IsDraw      bool
	TotalPot    int64
	PlatformFee int64
}

func (e MatchSettledEvent) Type() EventType {
	return EventTypeMatchSettled
}

// HoldPlacedEvent represents credits being reserved against a match stake
type HoldPlacedEvent struct {
	HoldID    int64
	AccountID int64
	MatchID   int64
	Amount    int64
}

func (e HoldPlacedEvent) Type() EventType {
	return EventTypeHoldPlaced
}

// HoldReleasedEvent represents reserved credits being restored
type HoldReleasedEvent struct {
	HoldID    int64
	AccountID int64
	MatchID   int64
	Amount    int64
}

func (e HoldReleasedEvent) Type() EventType {
	return EventTypeHoldReleased
}

// RatingsUpdatedEvent represents both players' post-match Glicko-2 values
type RatingsUpdatedEvent struct {
	MatchID  int64
	SeasonID int64
	// Ratings maps user id to the new rating value
	Ratings map[int64]float64
}

func (e RatingsUpdatedEvent) Type() EventType {
	return EventTypeRatingsUpdated
}

// RatingUpdateFailedEvent surfaces a rating computation or persistence
// failure after settlement. The match stays finalized; this is the
// observability hook for the swallowed error.
type RatingUpdateFailedEvent struct {
	MatchID int64
	Err     string
}

func (e RatingUpdateFailedEvent) Type() EventType {
	return EventTypeRatingUpdateFailed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching. A Bus is injected into
// the services that publish through it; there is no package-level list of
// subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously; a panicking handler is recovered and logged and never
// propagates to the emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events raised inside a unit of work and flushes
// them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events to event bus")

	// Events outlive the transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback to drop staged events.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
