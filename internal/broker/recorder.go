package broker

import (
	"context"
	"sync"
)

// Event is a captured publication.
type Event struct {
	Exchange   string
	RoutingKey string
	Payload    map[string]interface{}
}

// Recorder is a Notifier that captures events in order instead of
// publishing them. Used by tests to assert the cascade's broker contract.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, exchange, routingKey string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Exchange: exchange, RoutingKey: routingKey, Payload: payload})
	return nil
}

// Events returns the captured events in publication order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the captured events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
