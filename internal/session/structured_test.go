package session

import (
	"context"
	"strings"
	"testing"

	"github.com/mvlachos/agora/internal/agent"
)

func TestStructuredRunsAllPhases(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	b := &stubAgent{name: "beta"}
	history := NewHistory()

	mode := &StructuredMode{Parallel: true, retrier: agent.NewRetrier()}
	result := mode.RunRound(context.Background(), "evaluate this", panel(a, b), "tool info", history)

	// 4 default phases x 2 agents.
	if len(result.Responses) != 8 {
		t.Fatalf("responses = %d, want 8", len(result.Responses))
	}
	if history.Len() != 8 {
		t.Errorf("history has %d turns, want 8", history.Len())
	}

	for i, resp := range result.Responses {
		wantPhase := DefaultPhases[i/2]
		if got, _ := resp.Meta["phase"].(string); got != wantPhase {
			t.Errorf("responses[%d] phase = %q, want %q", i, got, wantPhase)
		}
	}

	headings := []string{"Exploration", "Critique", "Suggestions", "Synthesis"}
	for call, heading := range headings {
		prompt := a.prompt(call)
		if !strings.Contains(prompt, "## Phase: "+heading) {
			t.Errorf("phase %d prompt missing heading %q: %q", call, heading, prompt)
		}
		if !strings.Contains(prompt, "Original question: evaluate this") {
			t.Errorf("phase %d prompt missing original question", call)
		}
	}

	// Later phases see earlier phase turns.
	if !strings.Contains(a.context(1), "alpha answer 0") || !strings.Contains(a.context(1), "beta answer 0") {
		t.Errorf("critique context missing exploration turns: %q", a.context(1))
	}
}

func TestStructuredCustomPhases(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	mode := &StructuredMode{Parallel: true, Phases: []string{PhaseCritique}, retrier: agent.NewRetrier()}
	result := mode.RunRound(context.Background(), "q", panel(a), "", NewHistory())

	if len(result.Responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(result.Responses))
	}
	if got, _ := result.Responses[0].Meta["phase"].(string); got != PhaseCritique {
		t.Errorf("phase = %q, want %q", got, PhaseCritique)
	}
	if !strings.Contains(a.prompt(0), "## Phase: Critique") {
		t.Errorf("prompt missing critique preamble: %q", a.prompt(0))
	}
}

func TestStructuredSequentialExcludesOwnTurns(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	b := &stubAgent{name: "beta"}

	mode := &StructuredMode{Parallel: false, Phases: []string{PhaseExplore, PhaseCritique}, retrier: agent.NewRetrier()}
	mode.RunRound(context.Background(), "q", panel(a, b), "", NewHistory())

	// In critique, alpha sees only beta's exploration turn.
	if strings.Contains(a.context(1), "alpha answer") {
		t.Error("alpha saw its own turns")
	}
	if !strings.Contains(a.context(1), "beta answer 0") {
		t.Errorf("alpha's critique context missing beta's exploration: %q", a.context(1))
	}
}

func TestStructuredTagsErrorResponses(t *testing.T) {
	bad := &stubAgent{name: "alpha", respond: func(int, string, string) (*agent.Response, error) {
		return nil, &agent.AgentError{Kind: agent.KindResponse, AgentName: "alpha", Message: "no output"}
	}}

	mode := &StructuredMode{Parallel: true, Phases: []string{PhaseExplore}, retrier: agent.NewRetrier()}
	result := mode.RunRound(context.Background(), "q", panel(bad), "", NewHistory())

	resp := result.Responses[0]
	if !resp.IsError() {
		t.Fatal("expected error response")
	}
	if got, _ := resp.Meta["phase"].(string); got != PhaseExplore {
		t.Errorf("error response phase = %q, want %q", got, PhaseExplore)
	}
}
