package agent

import (
	"context"
	"time"
)

// Response is the result of one agent call. Error conditions are carried
// as regular responses with Meta["error"]=true so a failing panelist never
// aborts a round for the others.
type Response struct {
	Content   string         `json:"content"`
	AgentName string         `json:"agent_name"`
	Model     string         `json:"model,omitempty"`
	TokensIn  int            `json:"tokens_in,omitempty"`
	TokensOut int            `json:"tokens_out,omitempty"`
	LatencyMS float64        `json:"latency_ms,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"metadata,omitempty"`
}

// IsError reports whether this response represents an absorbed failure.
func (r *Response) IsError() bool {
	if r.Meta == nil {
		return false
	}
	v, ok := r.Meta["error"].(bool)
	return ok && v
}

// ErrorType returns Meta["error_type"], or "" for success responses.
func (r *Response) ErrorType() string {
	if r.Meta == nil {
		return ""
	}
	s, _ := r.Meta["error_type"].(string)
	return s
}

// StreamChunk is one piece of a streaming response.
type StreamChunk struct {
	Content string
	Final   bool
}

// Agent is a single panelist: something that can answer a prompt, with
// optional context prepended. Implementations spawn provider CLIs, hit
// APIs, or stub responses in tests.
type Agent interface {
	Name() string
	Respond(ctx context.Context, prompt, toolContext string) (*Response, error)
	StreamRespond(ctx context.Context, prompt, toolContext string) (<-chan StreamChunk, error)
}
