package session

import (
	"context"
	"strings"
	"sync"

	"github.com/mvlachos/agora/internal/agent"
	"github.com/mvlachos/agora/internal/config"
)

// Mode runs one question against the panel. Implementations own the
// dispatch strategy (parallel fan-out versus sequential turn-taking)
// and, when ThreadsHistory reports true, append their own turns to the
// shared history as responses land.
type Mode interface {
	Name() string

	// ThreadsHistory reports whether RunRound appends to the history
	// itself. When false the orchestrator appends after the round if a
	// later consumer (another round, the moderator) needs the turns.
	ThreadsHistory() bool

	RunRound(ctx context.Context, prompt string, agents []agent.Agent, toolContext string, history *ConversationHistory) *RoundResult
}

// NewMode picks the mode implementation for a session config. Unknown
// mode names fall back to single.
func NewMode(cfg config.SessionConfig, retrier *agent.Retrier) Mode {
	if retrier == nil {
		retrier = agent.NewRetrier()
	}
	switch cfg.Mode {
	case config.ModeDiscussion:
		return &DiscussionMode{
			Parallel:       cfg.Parallel,
			FollowUpRounds: cfg.FollowUpRounds,
			retrier:        retrier,
		}
	case config.ModeStructured:
		return &StructuredMode{
			Parallel: cfg.Parallel,
			Phases:   cfg.Phases,
			retrier:  retrier,
		}
	default:
		return &SingleMode{Parallel: cfg.Parallel, retrier: retrier}
	}
}

// combineContext builds the per-agent tool context: static tool help
// first, then the conversation rendered without the agent's own turns.
func combineContext(toolContext string, history *ConversationHistory, excludeAgent string) string {
	parts := make([]string, 0, 2)
	if toolContext != "" {
		parts = append(parts, toolContext)
	}
	if history != nil {
		if conv := history.ContextString(excludeAgent); conv != "" {
			parts = append(parts, conv)
		}
	}
	return strings.Join(parts, "\n\n")
}

// queryParallel fans the same prompt out to every agent at once and
// returns responses in panel order regardless of completion order.
func queryParallel(ctx context.Context, retrier *agent.Retrier, agents []agent.Agent, prompt, toolContext string) []*agent.Response {
	results := make([]*agent.Response, len(agents))

	var wg sync.WaitGroup
	for i, ag := range agents {
		wg.Add(1)
		go func(slot int, ag agent.Agent) {
			defer wg.Done()
			results[slot] = retrier.Query(ctx, ag, prompt, toolContext)
		}(i, ag)
	}
	wg.Wait()

	return results
}
