package session

import (
	"strings"
	"sync"
	"time"
)

// ConversationTurn is one utterance in a panel conversation. TurnType is
// a free-form tag chosen by the mode: "response", "reply", or a phase
// name like "critique".
type ConversationTurn struct {
	AgentName string    `json:"agent_name"`
	Content   string    `json:"content"`
	TurnType  string    `json:"turn_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationHistory is the append-only log of turns shared across the
// phases and rounds that need cross-agent visibility. Turns are never
// removed or reordered. The mutex exists for the moderator path reading
// while serve-mode consumers poke at it; within a round, sequential
// dispatch guarantees appends never overlap.
type ConversationHistory struct {
	mu    sync.Mutex
	turns []ConversationTurn
}

func NewHistory() *ConversationHistory {
	return &ConversationHistory{}
}

// AddTurn appends a turn and returns it.
func (h *ConversationHistory) AddTurn(agentName, content, turnType string) ConversationTurn {
	if turnType == "" {
		turnType = "response"
	}
	turn := ConversationTurn{
		AgentName: agentName,
		Content:   content,
		TurnType:  turnType,
		Timestamp: time.Now(),
	}
	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
	return turn
}

// Turns returns a snapshot of the log in insertion order.
func (h *ConversationHistory) Turns() []ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *ConversationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// ContextString renders the conversation for inclusion in an agent
// prompt, skipping excludeAgent's own turns. Returns "" when nothing
// survives the filter.
func (h *ConversationHistory) ContextString(excludeAgent string) string {
	turns := h.Turns()
	if len(turns) == 0 {
		return ""
	}

	var lines []string
	for _, turn := range turns {
		if excludeAgent != "" && turn.AgentName == excludeAgent {
			continue
		}
		lines = append(lines, "### "+turn.AgentName, turn.Content, "")
	}
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(append([]string{"## Previous Responses\n"}, lines...), "\n")
}
