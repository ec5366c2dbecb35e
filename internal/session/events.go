package session

import (
	"time"

	"fodinha/internal/deck"
)

// EventType identifies a session event
type EventType string

const (
	EventTypeStateChanged EventType = "state_changed"
	EventTypeSessionEnded EventType = "session_ended"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything the session publishes to its observers
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// StateChangedEvent carries an immutable snapshot of the session state.
// One is published after every accepted mutation, including each turn
// timer tick. Hands maps each seated player to a copy of their own
// cards; the transport attaches only the recipient's entry, so no seat
// ever sees another seat's hand.
type StateChangedEvent struct {
	Snapshot  Snapshot
	Hands     map[string][]deck.Card
	timestamp time.Time
}

func (e StateChangedEvent) EventType() EventType { return EventTypeStateChanged }
func (e StateChangedEvent) Timestamp() time.Time { return e.timestamp }

// SessionEndedEvent is published once when a session is torn down
type SessionEndedEvent struct {
	RoomCode  string
	Reason    string
	timestamp time.Time
}

func (e SessionEndedEvent) EventType() EventType { return EventTypeSessionEnded }
func (e SessionEndedEvent) Timestamp() time.Time { return e.timestamp }

// Subscriber receives session events. Delivery is synchronous on the
// session's event path; subscribers must not call back into the session.
type Subscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber Subscriber)
	Unsubscribe(subscriber Subscriber)
	Publish(event Event)
}

// simpleEventBus is a basic in-memory event bus implementation
type simpleEventBus struct {
	subscribers []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &simpleEventBus{}
}

func (bus *simpleEventBus) Subscribe(subscriber Subscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

func (bus *simpleEventBus) Unsubscribe(subscriber Subscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

func (bus *simpleEventBus) Publish(event Event) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
