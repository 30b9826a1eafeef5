package bus

import (
	"fmt"
	"strings"
)

// Topic patterns for session event pub/sub.

func TopicSessionEvent(sessionID, eventType string) string {
	// Event types use dots (round.completed); flatten so the subject
	// hierarchy stays sessions.<id>.<event>.
	return fmt.Sprintf("sessions.%s.%s", sessionID, strings.ReplaceAll(eventType, ".", "_"))
}

func TopicSession(sessionID string) string {
	return fmt.Sprintf("sessions.%s.>", sessionID)
}

const (
	TopicAllSessions = "sessions.>"
	TopicScheduler   = "scheduler.runs"
)
