package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	defaultMaxBackoff     = 60 * time.Second
	defaultMultiplier     = 2.0
)

// Retrier wraps single agent calls with error classification and
// exponential backoff on rate limits. Query never returns an error: every
// failure below this boundary becomes an in-band error Response, so one
// stalled or broken panelist cannot abort a round.
type Retrier struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// sleep is swapped out by tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier() *Retrier {
	return &Retrier{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
		Multiplier:     defaultMultiplier,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Query calls ag.Respond, retrying rate-limit failures with exponential
// backoff up to MaxRetries, and downgrading every other failure to an
// error Response immediately.
func (r *Retrier) Query(ctx context.Context, ag Agent, prompt, toolContext string) *Response {
	backoff := r.InitialBackoff
	retries := 0

	for {
		resp, err := ag.Respond(ctx, prompt, toolContext)
		if err == nil {
			return resp
		}

		var rl *RateLimitError
		if errors.As(err, &rl) {
			retries++
			if retries > r.MaxRetries {
				return r.exhaustedResponse(ag.Name(), rl, retries)
			}

			wait := backoff
			if rl.RetryAfter > 0 {
				wait = rl.RetryAfter
			}
			if wait > r.MaxBackoff {
				wait = r.MaxBackoff
			}

			slog.Debug("agent rate limited, backing off",
				"agent", ag.Name(), "retry", retries, "wait", wait, "quota", rl.QuotaExceeded)

			if serr := r.sleep(ctx, wait); serr != nil {
				return errorResponse(ag.Name(), "Canceled",
					fmt.Sprintf("[Error: %v]", serr), serr.Error())
			}

			backoff = time.Duration(float64(backoff) * r.Multiplier)
			if backoff > r.MaxBackoff {
				backoff = r.MaxBackoff
			}
			continue
		}

		var ae *AgentError
		if errors.As(err, &ae) {
			return errorResponse(ag.Name(), string(ae.Kind),
				fmt.Sprintf("[Error: %v]", ae), ae.Message)
		}

		// Unclassified failure: absorb it the same way, tagged with the
		// concrete error type.
		return errorResponse(ag.Name(), fmt.Sprintf("%T", err),
			fmt.Sprintf("[Unexpected error: %v]", err), err.Error())
	}
}

func (r *Retrier) exhaustedResponse(name string, rl *RateLimitError, attempts int) *Response {
	kind := "rate limit"
	if rl.QuotaExceeded {
		kind = "quota"
	}
	content := fmt.Sprintf("[Error: %s exhausted after %d attempts: %s]", kind, attempts, rl.Message)
	resp := errorResponse(name, "RateLimitExhausted", content, rl.Message)
	resp.Meta["quota_exceeded"] = rl.QuotaExceeded
	return resp
}

func errorResponse(name, errType, content, message string) *Response {
	return &Response{
		Content:   content,
		AgentName: name,
		Timestamp: time.Now(),
		Meta: map[string]any{
			"error":         true,
			"error_type":    errType,
			"error_message": message,
		},
	}
}
