package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mvlachos/agora/internal/agent"
	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/tool"
)

// ErrNotSetUp is returned by Run when Setup has not completed.
var ErrNotSetUp = errors.New("session not set up, call Setup first")

// Orchestrator drives a complete session: it builds the panel from
// config, fetches the tool context once, runs the configured mode over
// every question, invokes the moderator, and keeps the durable record.
type Orchestrator struct {
	cfg     *config.Config
	tool    tool.Tool
	storage Storage

	registry      *agent.Registry
	retrier       *agent.Retrier
	sink          EventSink
	runner        agent.Runner // default process runner, nil means exec
	sandboxRunner agent.Runner // used for agents with sandbox: true

	agents      []agent.Agent
	toolContext string
	mode        Mode
	history     *ConversationHistory
	moderator   agent.Agent
	session     *SessionRecord
	ready       bool

	mu     sync.Mutex
	runErr error
}

// Option tweaks orchestrator construction.
type Option func(*Orchestrator)

// WithEventSink routes progress events somewhere other than the void.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithRetrier replaces the default retry policy. Tests use this to
// avoid real backoff sleeps.
func WithRetrier(r *agent.Retrier) Option {
	return func(o *Orchestrator) { o.retrier = r }
}

// WithRunner replaces the process runner for every agent. Tests use it
// to stub out the provider CLIs.
func WithRunner(r agent.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithSandboxRunner supplies the runner used for agents whose spec sets
// sandbox: true. Without it those agents run on the host like any
// other.
func WithSandboxRunner(r agent.Runner) Option {
	return func(o *Orchestrator) { o.sandboxRunner = r }
}

func NewOrchestrator(cfg *config.Config, t tool.Tool, storage Storage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		tool:     t,
		storage:  storage,
		registry: agent.NewRegistry(cfg.Providers),
		retrier:  agent.NewRetrier(),
		sink:     NopSink{},
		history:  NewHistory(),
		session:  NewSessionRecord(cfg.Session.Name, t.Command(), string(cfg.Session.Mode)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the durable record, valid at any point; before
// completion it holds whatever rounds have finished.
func (o *Orchestrator) Session() *SessionRecord { return o.session }

// Agents returns the panel. Empty before Setup.
func (o *Orchestrator) Agents() []agent.Agent { return o.agents }

// History exposes the conversation log, mainly for serve-mode
// inspection.
func (o *Orchestrator) History() *ConversationHistory { return o.history }

// Setup builds the panel and fetches the tool context. A tool whose
// help cannot be fetched is a setup failure: evaluating a tool no agent
// can learn about is pointless.
func (o *Orchestrator) Setup(ctx context.Context) error {
	agents := make([]agent.Agent, 0, len(o.cfg.Agents))
	for _, spec := range o.cfg.Agents {
		opts := agent.CLIAgentOpts{Env: spec.Env, Runner: o.runner}
		if spec.Timeout == 0 {
			opts.Timeout = o.cfg.Session.AgentTimeout
		}
		if spec.Sandbox && o.sandboxRunner != nil {
			opts.Runner = o.sandboxRunner
		}
		ag, err := o.registry.New(spec, opts)
		if err != nil {
			return fmt.Errorf("create agent %s: %w", spec.DisplayName(), err)
		}
		agents = append(agents, ag)
	}
	o.agents = agents
	o.session.AgentCount = len(agents)

	help, err := o.tool.Help(ctx)
	if err != nil {
		return fmt.Errorf("get tool help: %w", err)
	}
	o.toolContext = help.ContextString()

	o.mode = NewMode(o.cfg.Session, o.retrier)

	if o.cfg.Session.Moderator {
		mod, err := NewModerator(o.registry, o.cfg.Session.ModeratorAgent, o.runner)
		if err != nil {
			if o.cfg.Session.ModeratorRequired {
				return fmt.Errorf("moderator required but unavailable: %w", err)
			}
			slog.Warn("moderator unavailable, continuing without synthesis", "error", err)
		} else {
			o.moderator = mod
		}
	}

	o.ready = true
	return nil
}

// Run executes every question round, streaming results on the returned
// channel as they complete. The channel closes when the session ends,
// whether normally or not; check Err afterwards. Run may be called only
// once.
func (o *Orchestrator) Run(ctx context.Context) (<-chan *RoundResult, error) {
	if !o.ready {
		return nil, ErrNotSetUp
	}

	results := make(chan *RoundResult)
	go func() {
		defer close(results)
		o.run(ctx, results)
	}()
	return results, nil
}

func (o *Orchestrator) run(ctx context.Context, results chan<- *RoundResult) {
	o.publish(EventSessionStarted, map[string]any{
		"tool":   o.session.Tool,
		"mode":   o.session.Mode,
		"agents": o.session.AgentCount,
		"rounds": len(o.cfg.Questions),
	})

	for i, question := range o.cfg.Questions {
		if ctx.Err() != nil {
			o.setErr(ctx.Err())
			return
		}

		var hist *ConversationHistory
		if o.needsHistory() {
			hist = o.history
		}

		o.publish(EventRoundStarted, map[string]any{
			"round":    i,
			"question": question,
		})

		result := o.mode.RunRound(ctx, question, o.agents, o.toolContext, hist)
		result.RoundNumber = i

		for _, resp := range result.Responses {
			o.publish(EventAgentResponded, map[string]any{
				"round": i,
				"agent": resp.AgentName,
				"error": resp.IsError(),
			})
		}

		// Single mode never touches history itself; record its turns
		// here when a moderator will want them later.
		if hist != nil && !o.mode.ThreadsHistory() {
			for _, resp := range result.Responses {
				o.history.AddTurn(resp.AgentName, resp.Content, "response")
			}
		}

		o.session.AddRound(result)
		o.publish(EventRoundCompleted, map[string]any{
			"round":     i,
			"question":  question,
			"responses": len(result.Responses),
			"errors":    result.ErrorCount(),
		})

		select {
		case results <- result:
		case <-ctx.Done():
			o.setErr(ctx.Err())
			return
		}
	}

	if o.moderator != nil && o.history.Len() > 0 {
		o.runSynthesis(ctx)
	}

	o.session.CompletedAt = time.Now()
	o.publish(EventSessionCompleted, map[string]any{
		"rounds":    len(o.session.Rounds),
		"responses": o.session.TotalResponses(),
	})
}

// needsHistory reports whether turns must accumulate across the run:
// either the mode threads them itself, or a moderator will read them at
// the end.
func (o *Orchestrator) needsHistory() bool {
	return o.mode.ThreadsHistory() || o.moderator != nil
}

func (o *Orchestrator) runSynthesis(ctx context.Context) {
	synthesis, err := Synthesize(ctx, o.retrier, o.moderator, o.history, o.tool.Name(), "")
	if err != nil {
		if o.cfg.Session.ModeratorRequired {
			o.setErr(err)
			return
		}
		slog.Warn("moderator synthesis failed", "error", err)
		return
	}

	o.session.FinalSynthesis = synthesis
	if n := len(o.session.Rounds); n > 0 {
		o.session.Rounds[n-1].ModeratorSynthesis = synthesis
	}
	o.publish(EventSynthesisCompleted, map[string]any{
		"moderator": o.moderator.Name(),
	})
}

// Err reports the terminal error of the run, nil for a clean finish.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runErr
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runErr == nil {
		o.runErr = err
	}
}

// Save persists the session record and returns the backend's locator
// for it (a file path or row reference).
func (o *Orchestrator) Save() (string, error) {
	if o.storage == nil {
		return "", errors.New("no storage configured")
	}
	return o.storage.Save(o.session)
}

func (o *Orchestrator) publish(eventType string, data map[string]any) {
	o.sink.Publish(Event{
		Type:      eventType,
		SessionID: o.session.DisplayID(),
		Timestamp: time.Now(),
		Data:      data,
	})
}
