package events

import "curvefoundry/core/types"

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. indexers, the
// analytics mirror).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers emitted events in order. The node uses it to hold events
// until an operation commits so rejected operations never leak events.
type Recorder struct {
	events []types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	r.events = append(r.events, payload.Clone())
}

// Len returns the number of buffered events.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.events)
}

// Truncate drops every event recorded after the supplied mark.
func (r *Recorder) Truncate(mark int) {
	if r == nil || mark < 0 || mark >= len(r.events) {
		return
	}
	r.events = r.events[:mark]
}

// Since returns copies of the events recorded after the supplied mark.
func (r *Recorder) Since(mark int) []types.Event {
	if r == nil || mark >= len(r.events) {
		return nil
	}
	if mark < 0 {
		mark = 0
	}
	out := make([]types.Event, 0, len(r.events)-mark)
	for _, evt := range r.events[mark:] {
		out = append(out, evt.Clone())
	}
	return out
}

// Reset discards all buffered events.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.events = r.events[:0]
}

// Envelope adapts a raw event payload to the Event interface.
type Envelope struct {
	Payload *types.Event
}

// EventType implements the Event interface.
func (e Envelope) EventType() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Type
}

// Event implements the Event interface.
func (e Envelope) Event() *types.Event { return e.Payload }

// Wrap converts a raw event payload into the emitter-friendly envelope.
func Wrap(evt *types.Event) Event { return Envelope{Payload: evt} }
