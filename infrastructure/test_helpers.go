package infrastructure

import (
	"sync"

	"socialbets/domain/events"
)

// RecordingEventPublisher captures published events; safe for concurrent use
type RecordingEventPublisher struct {
	mu           sync.Mutex
	events       []events.Event
	PublishError error
}

// NewRecordingEventPublisher creates an empty recording publisher
func NewRecordingEventPublisher() *RecordingEventPublisher {
	return &RecordingEventPublisher{}
}

// Publish records the event, or returns PublishError when set
func (r *RecordingEventPublisher) Publish(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PublishError != nil {
		return r.PublishError
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *RecordingEventPublisher) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// EventsOfType returns published events of one type
func (r *RecordingEventPublisher) EventsOfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
