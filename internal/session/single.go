package session

import (
	"context"

	"github.com/mvlachos/agora/internal/agent"
)

// SingleMode asks each agent the question independently. Agents never
// see each other's answers and the mode touches no history; if the
// orchestrator needs the turns for a moderator it appends them itself.
type SingleMode struct {
	Parallel bool

	retrier *agent.Retrier
}

func (m *SingleMode) Name() string         { return "single" }
func (m *SingleMode) ThreadsHistory() bool { return false }

func (m *SingleMode) RunRound(ctx context.Context, prompt string, agents []agent.Agent, toolContext string, _ *ConversationHistory) *RoundResult {
	result := NewRoundResult(prompt, toolContext)

	if m.Parallel {
		result.Responses = queryParallel(ctx, m.retrier, agents, prompt, toolContext)
	} else {
		for _, ag := range agents {
			result.AddResponse(m.retrier.Query(ctx, ag, prompt, toolContext))
		}
	}

	result.MarkComplete()
	return result
}
