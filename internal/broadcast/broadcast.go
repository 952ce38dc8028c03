// Package broadcast fans house-scoped state events out to connected clients.
//
// Publishers call Sink.Publish after a mutation has been persisted. A Sink
// must never block the caller: slow consumers lose events rather than
// delay a request. Delivery is partitioned by house, so an event published
// for one house is never delivered to a subscriber of another.
package broadcast

import (
	"sync"
	"time"
)

// Event names.
const (
	DeviceAdded     = "deviceAdded"
	DeviceUpdated   = "deviceUpdated"
	DeviceApproved  = "deviceApproved"
	DeviceRemoved   = "deviceRemoved"
	DevicesRemoved  = "devicesRemoved"
	RoomRemoved     = "roomRemoved"
	RoomMoodApplied = "roomMoodApplied"
	UserDeleted     = "userDeleted"
	MemberAdded     = "memberAdded"
	MemberUpdated   = "memberUpdated"
)

// Event is a named, house-scoped notification.
type Event struct {
	House     string    `json:"house"`
	Name      string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink accepts events for delivery. Publish must not block.
type Sink interface {
	Publish(house, name string, payload any)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(string, string, any) {}

// Fanout publishes each event to every wrapped sink in order.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(house, name string, payload any) {
	for _, s := range f {
		if s != nil {
			s.Publish(house, name, payload)
		}
	}
}

// Recorder keeps every published event in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Sink.
func (r *Recorder) Publish(house, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{House: house, Name: name, Payload: payload, Timestamp: time.Now().UTC()})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
