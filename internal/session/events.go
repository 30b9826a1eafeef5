package session

import "time"

// Event types published over the session event sink.
const (
	EventSessionStarted     = "session.started"
	EventRoundStarted       = "round.started"
	EventAgentResponded     = "agent.responded"
	EventRoundCompleted     = "round.completed"
	EventSynthesisCompleted = "synthesis.completed"
	EventSessionCompleted   = "session.completed"
)

// Event is a progress notification emitted while a session runs. In
// serve mode these fan out over the message bus to the web UI; the CLI
// runs with a NopSink.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventSink receives session events. Publish must not block the
// session: slow consumers drop, they do not stall rounds.
type EventSink interface {
	Publish(event Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(Event) {}
