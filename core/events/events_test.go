package events

import (
	"context"
	"testing"
	"time"

	"mailchain/core/types"
)

type recordingEmitter struct {
	events []*types.Event
}

func (r *recordingEmitter) Emit(evt Event) {
	r.events = append(r.events, Payload(evt))
}

func TestBufferFlushStampsMetadata(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(Transfer{Amount: 5})
	buf.Emit(Wrap(&types.Event{Type: "mailer.mail.sent", Attributes: map[string]string{"subject": "hi"}}))
	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}

	sink := &recordingEmitter{}
	flushed := buf.Flush(sink, "prog", "0xabc", 1700)
	if len(flushed) != 2 || len(sink.events) != 2 {
		t.Fatalf("expected 2 flushed events, got %d/%d", len(flushed), len(sink.events))
	}
	for _, evt := range sink.events {
		if evt.Program != "prog" || evt.TxHash != "0xabc" || evt.Timestamp != 1700 {
			t.Fatalf("event not stamped: %+v", evt)
		}
	}
	if sink.events[0].Type != TypeTokenTransfer || sink.events[1].Type != "mailer.mail.sent" {
		t.Fatalf("unexpected order: %s, %s", sink.events[0].Type, sink.events[1].Type)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer to be empty after flush")
	}
}

func TestBufferResetDropsEvents(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(Transfer{Amount: 1})
	buf.Reset()
	sink := &recordingEmitter{}
	buf.Flush(sink, "", "", 0)
	if len(sink.events) != 0 {
		t.Fatalf("expected no events after reset, got %d", len(sink.events))
	}
}

func TestBufferIsolatesCallerMutation(t *testing.T) {
	buf := NewBuffer()
	evt := &types.Event{Type: "x", Attributes: map[string]string{"k": "v"}}
	buf.Emit(Wrap(evt))
	evt.Attributes["k"] = "changed"
	if got := buf.Events()[0].Attributes["k"]; got != "v" {
		t.Fatalf("expected buffered copy to be isolated, got %q", got)
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingEmitter{}, &recordingEmitter{}
	Multi{a, nil, b}.Emit(Transfer{})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both emitters to receive the event")
	}
}

func TestBrokerDeliversAndUnsubscribes(t *testing.T) {
	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx, 4)
	if broker.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}

	broker.Emit(MintCreated{Decimals: 6})
	select {
	case evt := <-ch:
		if evt.Type != TypeTokenMintCreated || evt.Attributes["decimals"] != "6" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if broker.Subscribers() != 0 {
					t.Fatalf("expected subscriber to be removed")
				}
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed after cancel")
		}
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = broker.Subscribe(ctx, 1)
	broker.Emit(Transfer{})
	broker.Emit(Transfer{})
	if broker.Dropped() != 1 {
		t.Fatalf("expected one dropped delivery, got %d", broker.Dropped())
	}
}
