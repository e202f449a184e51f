package events

import (
	"slices"
	"sync"
)

func NewCollector(handler Handler) *Collector {
	if handler == nil {
		handler = Noop
	}
	return &Collector{handler: handler}
}

// Collector records events and forwards them. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	events  []Event
	handler Handler
}

func (c *Collector) Handle(event Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	c.handler.Handle(event)
}

func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

func (c *Collector) AtLevel(level Level) []Event {
	out := make([]Event, 0)
	for _, event := range c.Events() {
		if event.Level >= level {
			out = append(out, event)
		}
	}
	return out
}

func (c *Collector) MaxLevel() Level {
	max := Level(0)
	for _, event := range c.Events() {
		if event.Level > max {
			max = event.Level
		}
	}
	return max
}

func (c *Collector) Clear() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

func (c *Collector) Summary() *Summary {
	out := new(Summary)

	for _, event := range c.Events() {
		switch event.Level {
		case Warn:
			out.Warnings = append(out.Warnings, event)
		case Error:
			out.Errors = append(out.Errors, event)
		}
	}

	return out
}
