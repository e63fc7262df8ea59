package events

import "custodychain/core/types"

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Renderable events can be flattened into the attribute form recorded by the
// processor and the event journal.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers emitted events in order. Tests and the processor use it to
// inspect what an operation produced.
type Collector struct {
	events []Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
		return
	}
	c.events = append(c.events, evt)
}

// Events returns the buffered events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset drops the buffered events.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.events = nil
}
