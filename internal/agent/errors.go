package agent

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrorKind classifies hard (non-retryable) agent failures.
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable" // binary missing, cannot start
	KindResponse    ErrorKind = "response"    // non-zero exit, malformed output
	KindTimeout     ErrorKind = "timeout"
)

// AgentError is a non-retryable agent failure.
type AgentError struct {
	Kind      ErrorKind
	AgentName string
	Message   string
}

func (e *AgentError) Error() string {
	return e.Message
}

// RateLimitError signals remote throttling or quota exhaustion. It is the
// only retryable agent failure.
type RateLimitError struct {
	AgentName     string
	Message       string
	RetryAfter    time.Duration // 0 when the remote gave no hint
	QuotaExceeded bool
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Rate limit detection patterns across provider CLIs. Matched
// case-insensitively against stderr/exit messages.
var rateLimitPatterns = []string{
	"429",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"usage_limit_reached",
	"quota exceeded",
	"quota_exceeded",
	"rate limit exceeded",
	"too many requests",
	"overloaded",
	"capacity",
	"try again later",
	"retry after",
	"throttl",
}

var quotaPatterns = []string{
	"quota exceeded",
	"quota_exceeded",
	"usage_limit_reached",
}

// IsRateLimitMessage reports whether an error message looks like remote
// throttling rather than a hard failure.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range rateLimitPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsQuotaMessage reports whether the message indicates exhausted quota as
// opposed to transient throttling.
func IsQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var retryAfterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`retry[- ]?after[:\s]+(\d+)`),
	regexp.MustCompile(`try again in (\d+)`),
	regexp.MustCompile(`wait (\d+) second`),
	regexp.MustCompile(`(\d+) seconds?`), // fallback: bare "N second(s)"
}

// ParseRetryAfter extracts a suggested wait from an error message.
func ParseRetryAfter(msg string) (time.Duration, bool) {
	lower := strings.ToLower(msg)
	for _, re := range retryAfterPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			var secs int
			if _, err := fmt.Sscanf(m[1], "%d", &secs); err == nil {
				return time.Duration(secs) * time.Second, true
			}
		}
	}
	return 0, false
}

// classifyExit turns a provider CLI failure message into the appropriate
// typed error.
func classifyExit(agentName, msg string) error {
	if IsRateLimitMessage(msg) {
		rl := &RateLimitError{
			AgentName:     agentName,
			Message:       msg,
			QuotaExceeded: IsQuotaMessage(msg),
		}
		if wait, ok := ParseRetryAfter(msg); ok {
			rl.RetryAfter = wait
		}
		return rl
	}
	return &AgentError{Kind: KindResponse, AgentName: agentName, Message: msg}
}
