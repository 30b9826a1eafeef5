package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mvlachos/agora/internal/session"
)

func sampleRecord() *session.SessionRecord {
	rec := session.NewSessionRecord("memex review", "memex", "discussion")
	rec.AgentCount = 2
	rec.Rounds = []session.QuestionRound{
		{
			RoundNumber: 0,
			Question:    "is the help output clear?",
			Responses: []session.ResponseRecord{
				{
					AgentName:  "alpha",
					Provider:   "claude",
					Model:      "opus",
					Response:   "The help is clear.\nExamples would help.",
					Timestamp:  time.Now(),
					DurationMS: 1500,
					TokensIn:   100,
					TokensOut:  200,
				},
				{
					AgentName: "beta",
					Provider:  "codex",
					Response:  "[Error: codex timed out]",
					Timestamp: time.Now(),
					Error:     true,
					ErrorType: "timeout",
				},
			},
			ModeratorSynthesis: "Both agents broadly agree.",
		},
	}
	rec.FinalSynthesis = "Overall the tool is solid."
	rec.CompletedAt = rec.CreatedAt.Add(30 * time.Second)
	return rec
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"json", "markdown", "md", "text", "txt", ""} {
		if _, err := ForFormat(format); err != nil {
			t.Errorf("ForFormat(%q): %v", format, err)
		}
	}
	if _, err := ForFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSONRenderer(t *testing.T) {
	out, err := (&JSONRenderer{Pretty: true}).Render(sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc["is_complete"] != true || doc["round_count"] != float64(1) {
		t.Errorf("doc header = %v / %v", doc["is_complete"], doc["round_count"])
	}

	summary, ok := doc["summary"].(map[string]any)
	if !ok {
		t.Fatal("summary missing")
	}
	if summary["total_responses"] != float64(2) || summary["total_errors"] != float64(1) {
		t.Errorf("summary = %v", summary)
	}
	if summary["total_tokens"] != float64(300) {
		t.Errorf("total_tokens = %v", summary["total_tokens"])
	}
	providers, _ := summary["unique_providers"].([]any)
	if len(providers) != 2 {
		t.Errorf("unique_providers = %v", providers)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := (&MarkdownRenderer{}).Render(sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"# memex review",
		"**Tool:** `memex`",
		"## Round 1",
		"**Question:** is the help output clear?",
		"**alpha** (opus)",
		"> The help is clear.",
		"> Examples would help.",
		"### Round Synthesis",
		"# Final Synthesis",
		"Overall the tool is solid.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// Multi-line responses stay inside the blockquote.
	if strings.Contains(out, "\nExamples would help.") {
		t.Error("second response line escaped the blockquote")
	}
}

func TestTextRenderer(t *testing.T) {
	out, err := (&TextRenderer{Width: 40}).Render(sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"ROUND 1: is the help output clear?",
		"[alpha]",
		"[beta]",
		"[Moderator Synthesis]",
		"FINAL SYNTHESIS",
		"Mode: discussion | Agents: 2 | Status: Complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}
