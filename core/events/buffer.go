package events

import (
	"sync"

	"mailchain/core/types"
)

// Buffer collects events raised while a transaction executes. Nothing leaves
// the buffer until Flush is called, so a failed transaction can simply drop it.
type Buffer struct {
	mu     sync.Mutex
	events []*types.Event
}

// NewBuffer returns an empty event buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	payload := Payload(evt)
	if payload == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, payload.Clone())
	b.mu.Unlock()
}

// Events returns copies of the buffered events in emission order.
func (b *Buffer) Events() []*types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Event, len(b.events))
	for i, evt := range b.events {
		out[i] = evt.Clone()
	}
	return out
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Reset discards all buffered events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Flush stamps every buffered event with the supplied metadata and forwards
// it to the sink. The buffer is empty afterwards.
func (b *Buffer) Flush(sink Emitter, program string, txHash string, timestamp int64) []*types.Event {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()

	for _, evt := range pending {
		evt.Program = program
		evt.TxHash = txHash
		evt.Timestamp = timestamp
		if sink != nil {
			sink.Emit(Wrap(evt.Clone()))
		}
	}
	return pending
}
