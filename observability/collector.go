package observability

import (
	"context"
	"sync"
)

// Collector records every event it receives. Intended for tests that assert
// on warning paths (e.g., swallowed persistence failures). Safe for
// concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) OnEvent(_ context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of all recorded events in arrival order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]Event, len(c.events))
	copy(copied, c.events)
	return copied
}

// ByType returns recorded events matching the given type, in arrival order.
func (c *Collector) ByType(typ EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []Event
	for _, ev := range c.events {
		if ev.Type == typ {
			matched = append(matched, ev)
		}
	}
	return matched
}
