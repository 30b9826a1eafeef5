// Package costs gives rough dollar estimates for a session before it
// runs. The figures are ballpark planning numbers: actual spend depends
// on response lengths and provider pricing drift.
package costs

import (
	"fmt"
	"strings"

	"github.com/mvlachos/agora/internal/config"
)

// Per-query estimates in USD, assuming typical help-text context
// (1-2K tokens) and a 500-1K token response.
var providerCostPerQuery = map[string]float64{
	"claude": 0.015,
	"codex":  0.010,
	"openai": 0.010,
}

const (
	defaultCostPerQuery = 0.015

	// The moderator reads every response, so synthesis cost scales
	// with the panel on top of a flat overhead.
	synthesisOverhead = 0.02
	synthesisPerAgent = 0.002

	// WarnThreshold is where the CLI starts surfacing the estimate.
	WarnThreshold = 0.10
	// ConfirmThreshold is where the CLI asks before running.
	ConfirmThreshold = 0.25
)

// Estimate is a cost breakdown for one session configuration.
type Estimate struct {
	BaseCost        float64
	SynthesisCost   float64
	TotalCost       float64
	AgentCount      int
	QueriesPerAgent int
	HasSynthesis    bool
	Warnings        []string
}

// ProviderCost returns the per-query estimate for one provider.
func ProviderCost(provider string) float64 {
	if cost, ok := providerCostPerQuery[strings.ToLower(provider)]; ok {
		return cost
	}
	return defaultCostPerQuery
}

// queriesPerAgent counts how many times one agent answers per question
// round under the configured mode.
func queriesPerAgent(s config.SessionConfig) int {
	switch s.Mode {
	case config.ModeDiscussion:
		return 1 + s.FollowUpRounds
	case config.ModeStructured:
		if n := len(s.Phases); n > 0 {
			return n
		}
		return 4
	default:
		return 1
	}
}

// FromConfig estimates the cost of running a session with cfg.
func FromConfig(cfg *config.Config) Estimate {
	rounds := len(cfg.Questions)
	perAgent := queriesPerAgent(cfg.Session)

	base := 0.0
	for _, a := range cfg.Agents {
		base += ProviderCost(a.Provider) * float64(perAgent) * float64(rounds)
	}

	synthesis := 0.0
	if cfg.Session.Moderator {
		modProvider := "claude"
		if cfg.Session.ModeratorAgent != nil {
			modProvider = cfg.Session.ModeratorAgent.Provider
		}
		synthesis = ProviderCost(modProvider) + synthesisOverhead + float64(len(cfg.Agents))*synthesisPerAgent
	}

	est := Estimate{
		BaseCost:        base,
		SynthesisCost:   synthesis,
		TotalCost:       base + synthesis,
		AgentCount:      len(cfg.Agents),
		QueriesPerAgent: perAgent,
		HasSynthesis:    cfg.Session.Moderator,
	}

	if est.AgentCount > 5 {
		est.Warnings = append(est.Warnings, fmt.Sprintf("Large panel (%d agents) increases cost", est.AgentCount))
	}
	if perAgent > 1 && est.AgentCount > 3 {
		est.Warnings = append(est.Warnings, "Multi-pass modes with many agents can be costly")
	}
	if rounds > 1 {
		est.Warnings = append(est.Warnings, fmt.Sprintf("Multiple rounds (%d) multiply agent costs", rounds))
	}
	return est
}

// ShouldWarn reports whether the estimate is worth surfacing.
func (e Estimate) ShouldWarn() bool {
	return e.TotalCost >= WarnThreshold
}

// ShouldConfirm reports whether the CLI should ask before running.
func (e Estimate) ShouldConfirm() bool {
	return e.TotalCost >= ConfirmThreshold
}

// Short formats the estimate as one inline line.
func (e Estimate) Short() string {
	noun := "agents"
	if e.AgentCount == 1 {
		noun = "agent"
	}
	parts := []string{fmt.Sprintf("%d %s", e.AgentCount, noun)}
	if e.QueriesPerAgent > 1 {
		parts = append(parts, fmt.Sprintf("%d passes", e.QueriesPerAgent))
	}
	if e.HasSynthesis {
		parts = append(parts, "synthesis")
	}
	return fmt.Sprintf("%s (est. ~$%.2f)", strings.Join(parts, " + "), e.TotalCost)
}

// Detailed formats the estimate as a multi-line breakdown.
func (e Estimate) Detailed() string {
	var sb strings.Builder
	sb.WriteString("Cost Estimate:\n")
	fmt.Fprintf(&sb, "  Agents (%d): $%.3f\n", e.AgentCount, e.BaseCost)
	if e.HasSynthesis {
		fmt.Fprintf(&sb, "  Synthesis: +$%.3f\n", e.SynthesisCost)
	}
	sb.WriteString("  -----------------\n")
	fmt.Fprintf(&sb, "  Total: ~$%.2f", e.TotalCost)
	for _, w := range e.Warnings {
		fmt.Fprintf(&sb, "\n  Note: %s", w)
	}
	return sb.String()
}
