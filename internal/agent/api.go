package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// APISpec describes an OpenAI-compatible chat completions endpoint.
type APISpec struct {
	Provider     string
	BaseURL      string
	APIKeyEnv    string
	DefaultModel string
	Timeout      time.Duration
}

var builtinAPISpecs = map[string]APISpec{
	"openai": {
		Provider:     "openai",
		BaseURL:      "https://api.openai.com/v1",
		APIKeyEnv:    "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
		Timeout:      2 * time.Minute,
	},
}

const apiMaxTokens = 4096

// defaultAPISystemPrompt frames the panelist role for API providers,
// which have no CLI persona of their own.
const defaultAPISystemPrompt = `You are an AI agent evaluating a CLI tool designed for use by AI agents.
Your role is to provide constructive feedback from the perspective of an agent user.

Consider:
- Clarity and parseability of output
- Ease of use via command line
- Error messages and handling
- Documentation quality
- Whether the tool's design serves agent workflows

Be specific and actionable in your feedback.`

// APIAgent is a panelist backed by an HTTP chat completions API instead
// of a provider CLI. The wire format is the OpenAI-compatible one, so a
// custom provider with a base_url can point it at any such endpoint.
type APIAgent struct {
	name     string
	model    string
	system   string
	provider string
	baseURL  string
	apiKey   string
	client   *http.Client
}

type APIAgentOpts struct {
	Name    string
	Model   string
	System  string
	Timeout time.Duration
	Env     map[string]string
}

// NewAPIAgent builds an API panelist. The key is taken from the agent's
// env map first (where vault references land after resolution), falling
// back to the process environment. A missing key is an unavailable
// agent, detected at setup rather than mid-round.
func NewAPIAgent(spec APISpec, opts APIAgentOpts) (*APIAgent, error) {
	apiKey := opts.Env[spec.APIKeyEnv]
	if apiKey == "" {
		apiKey = os.Getenv(spec.APIKeyEnv)
	}
	if apiKey == "" {
		return nil, &AgentError{
			Kind:      KindUnavailable,
			AgentName: opts.Name,
			Message:   fmt.Sprintf("%s environment variable not set", spec.APIKeyEnv),
		}
	}

	model := opts.Model
	if model == "" {
		model = spec.DefaultModel
	}
	name := opts.Name
	if name == "" {
		name = spec.Provider + ":" + model
	}
	system := opts.System
	if system == "" {
		system = defaultAPISystemPrompt
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = spec.Timeout
	}
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &APIAgent{
		name:     name,
		model:    model,
		system:   system,
		provider: spec.Provider,
		baseURL:  strings.TrimSuffix(spec.BaseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (a *APIAgent) Name() string { return a.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions map[string]any `json:"stream_options,omitempty"`
}

func (a *APIAgent) messages(prompt, toolContext string) []chatMessage {
	full := buildFullPrompt(prompt, toolContext, "", true)
	return []chatMessage{
		{Role: "system", Content: a.system},
		{Role: "user", Content: full},
	}
}

func (a *APIAgent) post(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &AgentError{Kind: KindTimeout, AgentName: a.name, Message: "api request timed out"}
		}
		return nil, &AgentError{
			Kind:      KindUnavailable,
			AgentName: a.name,
			Message:   fmt.Sprintf("failed to connect to %s api: %v", a.provider, err),
		}
	}
	return resp, nil
}

// statusError maps a non-2xx response to the typed errors the retry
// layer understands. 429 is the retryable case; everything else is a
// hard response failure.
func (a *APIAgent) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rl := &RateLimitError{
			AgentName:     a.name,
			Message:       fmt.Sprintf("rate limited by %s api: %s", a.provider, msg),
			QuotaExceeded: IsQuotaMessage(msg),
		}
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				rl.RetryAfter = time.Duration(secs) * time.Second
			}
		} else if wait, ok := ParseRetryAfter(msg); ok {
			rl.RetryAfter = wait
		}
		return rl
	}
	return classifyExit(a.name, fmt.Sprintf("%s api error (status %d): %s", a.provider, resp.StatusCode, msg))
}

func (a *APIAgent) Respond(ctx context.Context, prompt, toolContext string) (*Response, error) {
	start := time.Now()
	resp, err := a.post(ctx, chatRequest{
		Model:     a.model,
		Messages:  a.messages(prompt, toolContext),
		MaxTokens: apiMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.statusError(resp)
	}

	var result struct {
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &AgentError{Kind: KindResponse, AgentName: a.name, Message: fmt.Sprintf("decode %s api response: %v", a.provider, err)}
	}
	if len(result.Choices) == 0 {
		return nil, &AgentError{Kind: KindResponse, AgentName: a.name, Message: a.provider + " api returned no choices"}
	}

	return &Response{
		Content:   result.Choices[0].Message.Content,
		AgentName: a.name,
		Model:     a.model,
		TokensIn:  result.Usage.PromptTokens,
		TokensOut: result.Usage.CompletionTokens,
		LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
		Timestamp: time.Now(),
		Meta: map[string]any{
			"provider":      a.provider,
			"finish_reason": result.Choices[0].FinishReason,
		},
	}, nil
}

// StreamRespond delivers token deltas from the SSE stream, unlike the
// CLI path which can only chunk by line.
func (a *APIAgent) StreamRespond(ctx context.Context, prompt, toolContext string) (<-chan StreamChunk, error) {
	resp, err := a.post(ctx, chatRequest{
		Model:         a.model,
		Messages:      a.messages(prompt, toolContext),
		MaxTokens:     apiMaxTokens,
		Stream:        true,
		StreamOptions: map[string]any{"include_usage": true},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, a.statusError(resp)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var delta struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &delta); err != nil {
				continue
			}
			if len(delta.Choices) > 0 && delta.Choices[0].Delta.Content != "" {
				ch <- StreamChunk{Content: delta.Choices[0].Delta.Content}
			}
		}
		ch <- StreamChunk{Final: true}
	}()
	return ch, nil
}
