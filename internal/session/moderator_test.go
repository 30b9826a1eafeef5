package session

import (
	"context"
	"strings"
	"testing"

	"github.com/mvlachos/agora/internal/agent"
)

func TestBuildSynthesisPrompt(t *testing.T) {
	h := NewHistory()
	h.AddTurn("beta", "beta first", "response")
	h.AddTurn("alpha", "alpha first", "response")
	h.AddTurn("beta", "beta reply", "reply")

	prompt := buildSynthesisPrompt(h, "memex", "")

	if !strings.Contains(prompt, "# Feedback Synthesis Request: memex") {
		t.Errorf("missing title: %q", prompt)
	}
	if strings.Contains(prompt, "## Focus Question") {
		t.Error("focus section rendered without a focus question")
	}

	// Turns group by agent in first-appearance order, tagged with their
	// turn type.
	betaIdx := strings.Index(prompt, "### beta")
	alphaIdx := strings.Index(prompt, "### alpha")
	if betaIdx < 0 || alphaIdx < 0 || betaIdx > alphaIdx {
		t.Errorf("agents not grouped in first-appearance order: %q", prompt)
	}
	if !strings.Contains(prompt, "[response] beta first") || !strings.Contains(prompt, "[reply] beta reply") {
		t.Errorf("turns not tagged with turn type: %q", prompt)
	}

	group := prompt[betaIdx:alphaIdx]
	if !strings.Contains(group, "beta reply") {
		t.Error("beta's reply not grouped under beta's heading")
	}
}

func TestBuildSynthesisPromptWithFocus(t *testing.T) {
	h := NewHistory()
	h.AddTurn("alpha", "content", "response")

	prompt := buildSynthesisPrompt(h, "memex", "is the help output clear?")
	if !strings.Contains(prompt, "## Focus Question\nis the help output clear?") {
		t.Errorf("focus question missing: %q", prompt)
	}
}

func TestSynthesize(t *testing.T) {
	mod := &stubAgent{name: "Moderator", respond: func(int, string, string) (*agent.Response, error) {
		return &agent.Response{Content: "## Key Themes\nall good", AgentName: "Moderator"}, nil
	}}

	h := NewHistory()
	h.AddTurn("alpha", "content", "response")

	got, err := Synthesize(context.Background(), agent.NewRetrier(), mod, h, "memex", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(got, "Key Themes") {
		t.Errorf("synthesis = %q", got)
	}
	if !strings.Contains(mod.prompt(0), "[response] content") {
		t.Errorf("moderator prompt missing conversation: %q", mod.prompt(0))
	}
}

func TestSynthesizeModeratorFailure(t *testing.T) {
	mod := &stubAgent{name: "Moderator", respond: func(int, string, string) (*agent.Response, error) {
		return nil, &agent.AgentError{Kind: agent.KindUnavailable, AgentName: "Moderator", Message: "claude not found"}
	}}

	h := NewHistory()
	h.AddTurn("alpha", "content", "response")

	_, err := Synthesize(context.Background(), agent.NewRetrier(), mod, h, "memex", "")
	if err == nil {
		t.Fatal("expected error from failed moderator")
	}
	if !strings.Contains(err.Error(), "synthesis failed") {
		t.Errorf("err = %v", err)
	}
}

func TestNewModeratorDefaults(t *testing.T) {
	registry := agent.NewRegistry(nil)

	mod, err := NewModerator(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewModerator: %v", err)
	}
	if mod.Name() != "Moderator" {
		t.Errorf("name = %q, want Moderator", mod.Name())
	}
}
