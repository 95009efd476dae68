package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"votingdao/contexts/governance/voting-dao/ports"
)

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	bus.Subscribe(ctx, "vote.cast", "test", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})

	if err := bus.Publish(ctx, "proposal.created", ports.EventEnvelope{EventID: "other"}); err != nil {
		t.Fatalf("publish other topic: %v", err)
	}
	if err := bus.Publish(ctx, "vote.cast", ports.EventEnvelope{EventID: "evt-1", EventType: "vote.cast"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("expected evt-1, got %s", event.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestBusDropsSubscriberOnCancel(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	bus.Subscribe(ctx, "proposal.created", "test", func(context.Context, ports.EventEnvelope) error {
		return nil
	})
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.mu.RLock()
		remaining := len(bus.subscribers["proposal.created"])
		bus.mu.RUnlock()
		if remaining == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber still registered after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Publish(context.Background(), "vote.cast", ports.EventEnvelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestStreamValuesCarryEnvelope(t *testing.T) {
	event := ports.EventEnvelope{
		EventID:       "evt-1",
		EventType:     "proposal.created",
		PartitionKey:  "0",
		SchemaVersion: 1,
		Data:          json.RawMessage(`{"proposal_id":0}`),
	}
	values, err := streamValues("proposal.created", event)
	if err != nil {
		t.Fatalf("stream values: %v", err)
	}
	if values["topic"] != "proposal.created" || values["event_id"] != "evt-1" || values["schema_version"] != "1" {
		t.Fatalf("unexpected values: %+v", values)
	}
	var decoded ports.EventEnvelope
	if err := json.Unmarshal([]byte(values["payload"].(string)), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.EventID != "evt-1" || string(decoded.Data) != `{"proposal_id":0}` {
		t.Fatalf("unexpected decoded payload: %+v", decoded)
	}
}

func TestNewRedisStreamValidatesInput(t *testing.T) {
	if _, err := NewRedisStream("redis://localhost:6379/0", " ", nil); err == nil {
		t.Fatalf("expected error for empty stream")
	}
	if _, err := NewRedisStream("not-a-url", "votingdao.events", nil); err == nil {
		t.Fatalf("expected error for malformed url")
	}
	stream, err := NewRedisStream("redis://localhost:6379/0", "votingdao.events", nil)
	if err != nil {
		t.Fatalf("new redis stream: %v", err)
	}
	_ = stream.Close()
}
