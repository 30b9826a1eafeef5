package session

import (
	"context"
	"strings"
	"testing"

	"github.com/mvlachos/agora/internal/agent"
)

func newDiscussion(parallel bool, followUps int) *DiscussionMode {
	return &DiscussionMode{Parallel: parallel, FollowUpRounds: followUps, retrier: agent.NewRetrier()}
}

func TestDiscussionSequentialThreading(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	b := &stubAgent{name: "beta"}

	history := NewHistory()
	mode := newDiscussion(false, 1)
	result := mode.RunRound(context.Background(), "the question", panel(a, b), "tool info", history)

	// 2 initial + 2 follow-up responses, in panel order within each pass.
	if len(result.Responses) != 4 {
		t.Fatalf("responses = %d, want 4", len(result.Responses))
	}
	wantOrder := []string{"alpha", "beta", "alpha", "beta"}
	for i, want := range wantOrder {
		if got := result.Responses[i].AgentName; got != want {
			t.Errorf("responses[%d] from %q, want %q", i, got, want)
		}
	}

	// Sequential initial pass: beta sees alpha's answer, alpha sees
	// nothing yet.
	if strings.Contains(a.context(0), "beta") {
		t.Error("first agent saw later responses in initial pass")
	}
	if !strings.Contains(b.context(0), "alpha answer 0") {
		t.Errorf("beta's initial context missing alpha's answer: %q", b.context(0))
	}

	// Follow-up pass: alpha sees beta's initial answer, beta sees
	// alpha's follow-up.
	if !strings.Contains(a.context(1), "beta answer 0") {
		t.Errorf("alpha's follow-up context missing beta's answer: %q", a.context(1))
	}
	if !strings.Contains(b.context(1), "alpha answer 1") {
		t.Errorf("beta's follow-up context missing alpha's follow-up: %q", b.context(1))
	}

	// No agent ever sees its own turns.
	for call := 0; call < 2; call++ {
		if strings.Contains(a.context(call), "alpha answer") {
			t.Errorf("alpha saw its own turn in context %d", call)
		}
		if strings.Contains(b.context(call), "beta answer") {
			t.Errorf("beta saw its own turn in context %d", call)
		}
	}
}

func TestDiscussionFollowUpPrompt(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	mode := newDiscussion(true, 1)
	mode.RunRound(context.Background(), "is the CLI usable?", panel(a), "", NewHistory())

	if a.callCount() != 2 {
		t.Fatalf("calls = %d, want 2", a.callCount())
	}
	if a.prompt(0) != "is the CLI usable?" {
		t.Errorf("initial prompt = %q", a.prompt(0))
	}
	followUp := a.prompt(1)
	if !strings.Contains(followUp, "Original question: is the CLI usable?") {
		t.Errorf("follow-up prompt missing original question: %q", followUp)
	}
	if !strings.Contains(followUp, "What would you add to this discussion?") {
		t.Errorf("follow-up prompt missing closing question: %q", followUp)
	}
}

// Turns must land in history exactly once per response, in both
// dispatch variants.
func TestDiscussionTurnsAppendedOnce(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		a := &stubAgent{name: "alpha"}
		b := &stubAgent{name: "beta"}
		history := NewHistory()

		mode := newDiscussion(parallel, 1)
		result := mode.RunRound(context.Background(), "q", panel(a, b), "", history)

		if got, want := history.Len(), len(result.Responses); got != want {
			t.Errorf("parallel=%v: history has %d turns, want %d", parallel, got, want)
		}

		turns := history.Turns()
		for i, turn := range turns[:2] {
			if turn.TurnType != "response" {
				t.Errorf("parallel=%v: turn %d type = %q, want response", parallel, i, turn.TurnType)
			}
		}
		for i, turn := range turns[2:] {
			if turn.TurnType != "reply" {
				t.Errorf("parallel=%v: follow-up turn %d type = %q, want reply", parallel, i, turn.TurnType)
			}
		}
	}
}

func TestDiscussionNoFollowUps(t *testing.T) {
	a := &stubAgent{name: "alpha"}
	mode := newDiscussion(true, 0)
	result := mode.RunRound(context.Background(), "q", panel(a), "", NewHistory())

	if len(result.Responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(result.Responses))
	}
	if a.callCount() != 1 {
		t.Errorf("calls = %d, want 1", a.callCount())
	}
}

func TestDiscussionParallelInitialSharesHistory(t *testing.T) {
	// A second round sees the first round's turns: the shared parallel
	// context includes prior history unfiltered.
	a := &stubAgent{name: "alpha"}
	b := &stubAgent{name: "beta"}
	history := NewHistory()
	history.AddTurn("gamma", "remark from round one", "response")

	mode := newDiscussion(true, 0)
	mode.RunRound(context.Background(), "q", panel(a, b), "tool info", history)

	for _, ag := range []*stubAgent{a, b} {
		got := ag.context(0)
		if !strings.Contains(got, "tool info") || !strings.Contains(got, "remark from round one") {
			t.Errorf("%s context missing tool info or prior turns: %q", ag.name, got)
		}
	}
	if a.context(0) != b.context(0) {
		t.Error("parallel initial pass must share one context snapshot")
	}
}
