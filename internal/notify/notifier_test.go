package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/session"
)

func TestNewWithoutToken(t *testing.T) {
	n, err := New(config.NotifyConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if n != nil {
		t.Error("expected nil notifier when no token configured")
	}
}

func TestNewTokenWithoutChat(t *testing.T) {
	if _, err := New(config.NotifyConfig{TelegramToken: "123:abc"}); err == nil {
		t.Error("expected error when token set without chat id")
	}
}

func TestChunkMessage(t *testing.T) {
	// Short message
	chunks := chunkMessage("hello", 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}

	// Exact limit
	msg := strings.Repeat("a", 4096)
	chunks = chunkMessage(msg, 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk for exact limit, got %d", len(chunks))
	}

	// Over limit
	msg = strings.Repeat("a", 8192)
	chunks = chunkMessage(msg, 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}

	// Split at newline
	raw := []byte(strings.Repeat("a", 5000))
	raw[3000] = '\n'
	chunks = chunkMessage(string(raw), 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks with newline split, got %d", len(chunks))
	}
	if len(chunks[0]) != 3001 { // Up to and including the newline
		t.Errorf("expected first chunk length 3001, got %d", len(chunks[0]))
	}
}

func TestDigest(t *testing.T) {
	rec := session.NewSessionRecord("api review", "memex", "discussion")
	rec.CreatedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec.AgentCount = 2
	rec.Rounds = []session.QuestionRound{
		{
			RoundNumber: 1,
			Question:    "What do you think?",
			Responses: []session.ResponseRecord{
				{AgentName: "alpha", Response: "fine"},
				{AgentName: "beta", Error: true, ErrorType: "ProcessError"},
			},
		},
	}
	rec.FinalSynthesis = "Overall the tool is solid."

	digest := Digest(rec)

	for _, want := range []string{
		"Session complete: api review",
		"Mode: discussion",
		"Agents: 2",
		"Rounds: 1",
		"Responses: 2 (1 failed)",
		"Overall the tool is solid.",
		rec.DisplayID(),
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}

func TestDigestTruncatesSynthesis(t *testing.T) {
	rec := session.NewSessionRecord("", "memex", "single")
	rec.FinalSynthesis = strings.Repeat("x", 2000)

	digest := Digest(rec)
	if !strings.Contains(digest, "[truncated]") {
		t.Error("expected long synthesis to be truncated")
	}
	if strings.Contains(digest, strings.Repeat("x", 1600)) {
		t.Error("synthesis was not shortened")
	}
}
