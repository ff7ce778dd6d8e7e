package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Each subscriber receives events in publish order on its own goroutine.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case PeckEvent:
		event.Publish(b.dispatcher, e)
	case StateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// SubscribePecks registers fn for peck events and returns an unsubscribe function.
func (b *Bus) SubscribePecks(fn func(PeckEvent)) func() {
	return event.Subscribe(b.dispatcher, fn)
}

// SubscribeStates registers fn for lifecycle events and returns an unsubscribe function.
func (b *Bus) SubscribeStates(fn func(StateEvent)) func() {
	return event.Subscribe(b.dispatcher, fn)
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
