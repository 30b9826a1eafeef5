package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvlachos/agora/internal/agent"
	"github.com/mvlachos/agora/internal/config"
)

// DefaultModeratorPrompt steers the synthesis agent when the config
// does not supply its own system prompt.
const DefaultModeratorPrompt = `You are a moderator synthesizing feedback from multiple AI agents evaluating a CLI tool.

Your role is to:
1. Identify common themes and patterns across all agent responses
2. Highlight unique or particularly valuable insights from individual agents
3. Note any disagreements, tensions, or different perspectives between agents
4. Provide a clear, actionable summary organized by priority

Structure your synthesis as follows:

## Key Themes
[Common patterns and shared observations]

## Notable Insights
[Unique or particularly valuable points from specific agents]

## Areas of Disagreement
[Where agents had different perspectives, and what can be learned from each]

## Priority Recommendations
[Top 3-5 actionable items, ordered by importance]

## Overall Assessment
[Brief summary of the tool's current state and path forward]

Be concise but comprehensive. Focus on what's most useful for improving the tool.
Attribute specific insights to agents when relevant.`

// NewModerator builds the synthesis agent. A nil spec means the default
// claude moderator; a spec without a system prompt still gets the
// default one. A nil runner means the provider CLI runs locally.
func NewModerator(registry *agent.Registry, spec *config.AgentSpec, runner agent.Runner) (agent.Agent, error) {
	if spec == nil {
		spec = &config.AgentSpec{Provider: "claude", Name: "Moderator"}
	}
	resolved := *spec
	if resolved.Name == "" {
		resolved.Name = "Moderator"
	}
	if resolved.SystemPrompt == "" {
		resolved.SystemPrompt = DefaultModeratorPrompt
	}

	mod, err := registry.New(resolved, agent.CLIAgentOpts{Env: resolved.Env, Runner: runner})
	if err != nil {
		return nil, fmt.Errorf("create moderator: %w", err)
	}
	return mod, nil
}

// Synthesize asks the moderator to distill the whole conversation. The
// verdict comes back as text; an error response from the moderator is
// surfaced as a real error since there is nothing useful to store.
func Synthesize(ctx context.Context, retrier *agent.Retrier, moderator agent.Agent, history *ConversationHistory, toolName, focus string) (string, error) {
	prompt := buildSynthesisPrompt(history, toolName, focus)

	resp := retrier.Query(ctx, moderator, prompt, "")
	if resp.IsError() {
		return "", fmt.Errorf("moderator synthesis failed: %s", resp.Content)
	}
	return resp.Content, nil
}

// buildSynthesisPrompt renders the conversation grouped by agent, in
// order of each agent's first appearance, every turn tagged with its
// turn type.
func buildSynthesisPrompt(history *ConversationHistory, toolName, focus string) string {
	lines := []string{
		"# Feedback Synthesis Request: " + toolName,
		"",
	}

	if focus != "" {
		lines = append(lines, "## Focus Question", focus, "")
	}

	lines = append(lines, "## Agent Responses", "")

	var order []string
	byAgent := make(map[string][]string)
	for _, turn := range history.Turns() {
		if _, seen := byAgent[turn.AgentName]; !seen {
			order = append(order, turn.AgentName)
		}
		byAgent[turn.AgentName] = append(byAgent[turn.AgentName], fmt.Sprintf("[%s] %s", turn.TurnType, turn.Content))
	}
	for _, name := range order {
		lines = append(lines, "### "+name)
		lines = append(lines, byAgent[name]...)
		lines = append(lines, "")
	}

	lines = append(lines,
		"---",
		"",
		"Please synthesize the above feedback following your moderation guidelines.",
		"Focus on actionable insights and clear priorities.",
	)

	return strings.Join(lines, "\n")
}
