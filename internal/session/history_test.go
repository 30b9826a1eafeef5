package session

import (
	"strings"
	"testing"
)

func TestHistoryContextString(t *testing.T) {
	h := NewHistory()
	h.AddTurn("alpha", "first thought", "response")
	h.AddTurn("beta", "second thought", "response")
	h.AddTurn("alpha", "a reply", "reply")

	got := h.ContextString("")
	if !strings.HasPrefix(got, "## Previous Responses") {
		t.Errorf("missing header: %q", got)
	}
	for _, want := range []string{"### alpha", "### beta", "first thought", "second thought", "a reply"} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q", want)
		}
	}

	// Turns appear in insertion order.
	if strings.Index(got, "first thought") > strings.Index(got, "second thought") {
		t.Error("turns out of order")
	}
}

func TestHistoryContextStringExcludesAgent(t *testing.T) {
	h := NewHistory()
	h.AddTurn("alpha", "mine", "response")
	h.AddTurn("beta", "theirs", "response")

	got := h.ContextString("alpha")
	if strings.Contains(got, "mine") {
		t.Errorf("excluded agent's turn leaked: %q", got)
	}
	if !strings.Contains(got, "theirs") {
		t.Errorf("other agent's turn missing: %q", got)
	}
}

func TestHistoryContextStringEmpty(t *testing.T) {
	h := NewHistory()
	if got := h.ContextString(""); got != "" {
		t.Errorf("empty history rendered %q", got)
	}

	// All turns filtered out renders nothing either, not a bare header.
	h.AddTurn("alpha", "mine", "response")
	if got := h.ContextString("alpha"); got != "" {
		t.Errorf("fully filtered history rendered %q", got)
	}
}

func TestHistoryDefaultTurnType(t *testing.T) {
	h := NewHistory()
	turn := h.AddTurn("alpha", "content", "")
	if turn.TurnType != "response" {
		t.Errorf("turn type = %q, want response", turn.TurnType)
	}
}

func TestHistoryTurnsSnapshot(t *testing.T) {
	h := NewHistory()
	h.AddTurn("alpha", "one", "response")

	snap := h.Turns()
	h.AddTurn("beta", "two", "response")

	if len(snap) != 1 {
		t.Errorf("snapshot grew with history: %d turns", len(snap))
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
}
