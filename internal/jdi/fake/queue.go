package fake

import (
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

// EventQueue is a channel-backed FIFO of single-event "event sets" (the
// fake never batches multiple events into one set, which is within spec:
// spec.md only requires the engine handle a batch correctly, not that the
// fake ever produces one).
type EventQueue struct {
	events chan jdi.Event
}

func newEventQueue() *EventQueue {
	return &EventQueue{events: make(chan jdi.Event, 256)}
}

func (q *EventQueue) push(e jdi.Event) {
	q.events <- e
}

func (q *EventQueue) Remove(timeout time.Duration) (jdi.EventSet, error) {
	select {
	case e := <-q.events:
		return &EventSet{events: []jdi.Event{e}}, nil
	case <-time.After(timeout):
		return nil, jdi.ErrQueueTimeout
	}
}

// EventSet is always a single event in this fake.
type EventSet struct {
	events  []jdi.Event
	resumed bool
}

func (s *EventSet) Events() []jdi.Event { return s.events }

// Resume undoes the suspension each event's Fire* call applied to its
// thread, as resuming a real event set lets the event thread continue.
func (s *EventSet) Resume() {
	s.resumed = true
	for _, e := range s.events {
		if e.Thread != nil {
			e.Thread.ResumeOnce()
		}
	}
}
