package events

import "mailchain/core/types"

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
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

// Payload extracts the structured form of an event. Events that do not carry
// attributes are converted into a bare typed event.
func Payload(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := provider.Event(); payload != nil {
			return payload
		}
		return nil
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

type envelope struct {
	evt *types.Event
}

func (e envelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e envelope) Event() *types.Event { return e.evt }

// Wrap converts a raw event payload into the emitter-friendly envelope.
func Wrap(evt *types.Event) Event { return envelope{evt: evt} }

// Multi fans a single emission out to several emitters in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
