package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/session"
)

func newTestBus(t *testing.T) (*Bus, *Client) {
	t.Helper()
	b, err := New(config.NATSConfig{
		Port:    0, // Random port
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(b.Close)

	client, err := NewClient(b)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(client.Close)
	return b, client
}

func TestBusStartStop(t *testing.T) {
	b, _ := newTestBus(t)
	if b.ClientURL() == "" {
		t.Fatal("expected non-empty client URL")
	}
	if b.Port() == 0 {
		t.Error("expected the bound port, not the configured one")
	}
}

func TestEventSinkPublishes(t *testing.T) {
	_, client := newTestBus(t)

	received := make(chan []byte, 1)
	if _, err := client.Subscribe(TopicSession("20260828-abc123de"), func(msg *nats.Msg) {
		received <- msg.Data
	}); err != nil {
		t.Fatalf("subscribe error: %v", err)
	}

	sink := client.EventSink()
	sink.Publish(session.Event{
		Type:      session.EventRoundCompleted,
		SessionID: "20260828-abc123de",
		Timestamp: time.Now(),
		Data:      map[string]any{"round": 0},
	})
	client.Flush()

	select {
	case data := <-received:
		var event session.Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Type != session.EventRoundCompleted {
			t.Errorf("event type = %q", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestTopicNames(t *testing.T) {
	if got := TopicSessionEvent("s1", "round.completed"); got != "sessions.s1.round_completed" {
		t.Errorf("expected sessions.s1.round_completed, got %s", got)
	}
	if got := TopicSession("s1"); got != "sessions.s1.>" {
		t.Errorf("expected sessions.s1.>, got %s", got)
	}
}
