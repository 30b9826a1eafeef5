package session

import (
	"context"
	"fmt"

	"github.com/mvlachos/agora/internal/agent"
)

// DiscussionMode lets agents see and react to each other. The initial
// phase collects an answer from everyone (parallel or sequential), then
// each follow-up pass walks the panel sequentially so every agent sees
// the discussion as it accumulates.
type DiscussionMode struct {
	Parallel       bool
	FollowUpRounds int

	retrier *agent.Retrier
}

func (m *DiscussionMode) Name() string         { return "discussion" }
func (m *DiscussionMode) ThreadsHistory() bool { return true }

func (m *DiscussionMode) RunRound(ctx context.Context, prompt string, agents []agent.Agent, toolContext string, history *ConversationHistory) *RoundResult {
	result := NewRoundResult(prompt, toolContext)
	if history == nil {
		history = NewHistory()
	}

	// Phase 1: initial responses. The parallel path shares one context
	// snapshot and records turns afterwards; the sequential path
	// records each turn as it lands so later agents see earlier ones.
	// Either way a turn enters the history exactly once.
	if m.Parallel {
		shared := combineContext(toolContext, history, "")
		initial := queryParallel(ctx, m.retrier, agents, prompt, shared)
		for _, resp := range initial {
			result.AddResponse(resp)
			history.AddTurn(resp.AgentName, resp.Content, "response")
		}
	} else {
		m.querySequential(ctx, result, agents, prompt, toolContext, history, "response")
	}

	// Phase 2: follow-ups are always sequential so the discussion
	// actually threads.
	for i := 0; i < m.FollowUpRounds; i++ {
		followUp := buildFollowUpPrompt(prompt)
		m.querySequential(ctx, result, agents, followUp, toolContext, history, "reply")
	}

	result.MarkComplete()
	return result
}

func (m *DiscussionMode) querySequential(ctx context.Context, result *RoundResult, agents []agent.Agent, prompt, toolContext string, history *ConversationHistory, turnType string) {
	for _, ag := range agents {
		full := combineContext(toolContext, history, ag.Name())
		resp := m.retrier.Query(ctx, ag, prompt, full)
		result.AddResponse(resp)
		history.AddTurn(resp.AgentName, resp.Content, turnType)
	}
}

func buildFollowUpPrompt(originalPrompt string) string {
	return fmt.Sprintf(`Based on the original question and the responses from other agents above,
please add any additional thoughts, reactions, or perspectives.

You may:
- Build on ideas from other agents
- Note agreements or disagreements
- Add perspectives that weren't covered
- Synthesize common themes

Original question: %s

What would you add to this discussion?`, originalPrompt)
}
