// Package memory implements an in-process publisher that records
// per-record completion events instead of sending them to Pub/Sub.
// Tests hand it to the crawl runner to assert on the events a run
// emits for each persisted profile.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Event is one recorded completion event. Payload keeps the shape the
// crawl runner publishes, a map with run_id, url, and the profile
// summary fields.
type Event struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher accumulates events in order of publication.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns its synthetic ID. It applies
// the same topic validation as the Pub/Sub publisher so a run
// misconfigured against the in-process backend fails the same way.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("mem-%d", len(p.events)+1)
	p.events = append(p.events, Event{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Events returns a copy of all recorded events in publication order.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ForTopic returns the recorded events published to topic.
func (p *Publisher) ForTopic(topic string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
