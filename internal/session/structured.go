package session

import (
	"context"
	"fmt"

	"github.com/mvlachos/agora/internal/agent"
)

// Phase names for structured mode. Unknown names are legal: the phase
// runs with no preamble beyond the original question.
const (
	PhaseExplore    = "explore"
	PhaseCritique   = "critique"
	PhaseSuggest    = "suggest"
	PhaseSynthesize = "synthesize"
)

// DefaultPhases is the canonical explore-critique-suggest-synthesize
// progression.
var DefaultPhases = []string{PhaseExplore, PhaseCritique, PhaseSuggest, PhaseSynthesize}

var phasePrompts = map[string]string{
	PhaseExplore: `## Phase: Exploration

Focus on understanding and first impressions:
- What is your initial understanding of this tool?
- How does it fit into typical agent workflows?
- What capabilities does it offer?
- What use cases seem most appropriate?

Share your initial impressions and understanding.`,
	PhaseCritique: `## Phase: Critique

Focus on issues, concerns, and problems:
- What issues or pain points do you see?
- What might be confusing or unclear?
- What could cause errors or frustration?
- What's missing or incomplete?

Be constructively critical - identify real problems.`,
	PhaseSuggest: `## Phase: Suggestions

Focus on recommendations and improvements:
- What specific changes would improve this tool?
- How could the issues identified be addressed?
- What new features would add value?
- How could the documentation be better?

Provide actionable recommendations.`,
	PhaseSynthesize: `## Phase: Synthesis

Provide your final summary:
- What are the key takeaways from this evaluation?
- What should be prioritized for improvement?
- What's the overall assessment of the tool?
- Any final thoughts or recommendations?

Synthesize the discussion into actionable conclusions.`,
}

// StructuredMode walks the panel through guided phases. Each phase sees
// the accumulated turns of earlier phases, and every response carries
// its phase name in Meta so renderers can group the output.
type StructuredMode struct {
	Parallel bool
	Phases   []string

	retrier *agent.Retrier
}

func (m *StructuredMode) Name() string         { return "structured" }
func (m *StructuredMode) ThreadsHistory() bool { return true }

func (m *StructuredMode) RunRound(ctx context.Context, prompt string, agents []agent.Agent, toolContext string, history *ConversationHistory) *RoundResult {
	result := NewRoundResult(prompt, toolContext)
	if history == nil {
		history = NewHistory()
	}

	phases := m.Phases
	if len(phases) == 0 {
		phases = DefaultPhases
	}

	for _, phase := range phases {
		phasePrompt := buildPhasePrompt(prompt, phase)

		if m.Parallel {
			shared := combineContext(toolContext, history, "")
			responses := queryParallel(ctx, m.retrier, agents, phasePrompt, shared)
			for _, resp := range responses {
				tagPhase(resp, phase)
				result.AddResponse(resp)
				history.AddTurn(resp.AgentName, resp.Content, phase)
			}
		} else {
			for _, ag := range agents {
				full := combineContext(toolContext, history, ag.Name())
				resp := m.retrier.Query(ctx, ag, phasePrompt, full)
				tagPhase(resp, phase)
				result.AddResponse(resp)
				history.AddTurn(resp.AgentName, resp.Content, phase)
			}
		}
	}

	result.MarkComplete()
	return result
}

func buildPhasePrompt(basePrompt, phase string) string {
	instructions := phasePrompts[phase]
	return fmt.Sprintf("%s\n\n---\n\nOriginal question: %s", instructions, basePrompt)
}

// tagPhase records the phase on the response, errors included.
func tagPhase(resp *agent.Response, phase string) {
	if resp.Meta == nil {
		resp.Meta = make(map[string]any)
	}
	resp.Meta["phase"] = phase
}
