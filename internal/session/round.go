package session

import (
	"time"

	"github.com/mvlachos/agora/internal/agent"
)

// RoundResult collects everything produced while asking the panel one
// question: the prompt, the tool context handed to the agents, and the
// responses in panel order. A round is open until MarkComplete stamps
// CompletedAt; the first call wins and later calls are no-ops.
type RoundResult struct {
	RoundNumber int               `json:"round_number"`
	Prompt      string            `json:"prompt"`
	Context     string            `json:"context,omitempty"`
	Responses   []*agent.Response `json:"responses"`
	Synthesis   string            `json:"synthesis,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
}

func NewRoundResult(prompt, toolContext string) *RoundResult {
	return &RoundResult{
		Prompt:    prompt,
		Context:   toolContext,
		StartedAt: time.Now(),
	}
}

// AddResponse appends a response, ignoring nils so callers can pass
// results through without pre-filtering.
func (r *RoundResult) AddResponse(resp *agent.Response) {
	if resp == nil {
		return
	}
	r.Responses = append(r.Responses, resp)
}

// MarkComplete stamps the completion time once. Subsequent calls leave
// the original stamp untouched.
func (r *RoundResult) MarkComplete() {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
}

// Complete reports whether the round has been marked complete.
func (r *RoundResult) Complete() bool {
	return !r.CompletedAt.IsZero()
}

// Duration returns the round wall time. ok is false while the round is
// still open.
func (r *RoundResult) Duration() (time.Duration, bool) {
	if r.CompletedAt.IsZero() {
		return 0, false
	}
	return r.CompletedAt.Sub(r.StartedAt), true
}

// ErrorCount counts responses flagged as errors-as-data.
func (r *RoundResult) ErrorCount() int {
	n := 0
	for _, resp := range r.Responses {
		if resp.IsError() {
			n++
		}
	}
	return n
}
