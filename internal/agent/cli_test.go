package agent

import (
	"context"
	"strings"
	"testing"
	"time"
)

// shSpec runs the prompt as a shell script, standing in for a provider
// CLI in subprocess tests.
var shSpec = CommandSpec{
	Command:          "/bin/sh",
	Args:             []string{"-c"},
	PositionalPrompt: true,
}

func collectStream(t *testing.T, ch <-chan StreamChunk) []string {
	t.Helper()
	var lines []string
	deadline := time.After(10 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				t.Fatal("stream closed without a final chunk")
			}
			if chunk.Final {
				return lines
			}
			lines = append(lines, strings.TrimSuffix(chunk.Content, "\n"))
		case <-deadline:
			t.Fatal("timed out waiting for stream chunks")
		}
	}
}

// A configured timeout must not cancel the subprocess while its output
// is still being pumped; every line written before exit arrives.
func TestStreamRespondDeliversAllLinesWithTimeout(t *testing.T) {
	ag := NewCLIAgent(shSpec, CLIAgentOpts{Name: "panelist", Timeout: 10 * time.Second})

	ch, err := ag.StreamRespond(context.Background(), "echo first; sleep 0.2; echo second", "")
	if err != nil {
		t.Fatalf("StreamRespond: %v", err)
	}

	lines := collectStream(t, ch)
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("stream lines = %v, want [first second]", lines)
	}

	if _, ok := <-ch; ok {
		t.Error("channel still open after final chunk")
	}
}

func TestRespondCapturesStdout(t *testing.T) {
	ag := NewCLIAgent(shSpec, CLIAgentOpts{Name: "panelist", Timeout: 10 * time.Second})

	resp, err := ag.Respond(context.Background(), "echo verdict", "")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if strings.TrimSpace(resp.Content) != "verdict" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.AgentName != "panelist" {
		t.Errorf("agent name = %q", resp.AgentName)
	}
}

func TestBuildArgv(t *testing.T) {
	spec := CommandSpec{
		Command:    "claude",
		Args:       []string{"--dangerously-skip-permissions"},
		PromptFlag: "-p",
		ModelFlag:  "--model",
		SystemFlag: "--append-system-prompt",
	}
	ag := NewCLIAgent(spec, CLIAgentOpts{Model: "opus", System: "be brief"})

	got := ag.buildArgv("hello")
	want := []string{"claude", "--dangerously-skip-permissions", "--model", "opus", "--append-system-prompt", "be brief", "-p", "hello"}
	if len(got) != len(want) {
		t.Fatalf("argv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildFullPromptInlinesSystem(t *testing.T) {
	full := buildFullPrompt("question", "help text", "you are a reviewer", false)
	if !strings.HasPrefix(full, "you are a reviewer\n\n") {
		t.Errorf("system prompt not inlined: %q", full)
	}
	if !strings.Contains(full, "help text") || !strings.HasSuffix(full, "question") {
		t.Errorf("prompt assembly wrong: %q", full)
	}

	withFlag := buildFullPrompt("question", "", "you are a reviewer", true)
	if strings.Contains(withFlag, "reviewer") {
		t.Error("system prompt inlined despite dedicated flag")
	}
}
