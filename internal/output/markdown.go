package output

import (
	"fmt"
	"strings"

	"github.com/mvlachos/agora/internal/session"
)

// MarkdownRenderer produces a human-readable report: header, overview,
// one section per round with blockquoted responses, and the synthesis.
type MarkdownRenderer struct {
	// IncludeMeta adds per-response timing and token annotations.
	// Zero value includes them, matching the report use case.
	SkipMeta bool
}

func (r *MarkdownRenderer) Render(rec *session.SessionRecord) (string, error) {
	var sb strings.Builder

	title := rec.Name
	if title == "" {
		title = "Agora Session: " + rec.Tool
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "**Session ID:** `%s`\n", rec.DisplayID())
	fmt.Fprintf(&sb, "**Tool:** `%s`\n", rec.Tool)
	fmt.Fprintf(&sb, "**Date:** %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "**Mode:** %s\n\n", rec.Mode)

	r.overview(&sb, rec)

	for _, round := range rec.Rounds {
		r.round(&sb, &round)
	}

	if rec.FinalSynthesis != "" {
		fmt.Fprintf(&sb, "# Final Synthesis\n\n%s\n", rec.FinalSynthesis)
	}

	return sb.String(), nil
}

func (r *MarkdownRenderer) overview(sb *strings.Builder, rec *session.SessionRecord) {
	status := "In Progress"
	if rec.IsComplete() {
		status = "Complete"
	}

	fmt.Fprintf(sb, "## Overview\n\n")
	fmt.Fprintf(sb, "- **Status:** %s\n", status)
	fmt.Fprintf(sb, "- **Agents:** %d\n", rec.AgentCount)
	fmt.Fprintf(sb, "- **Rounds:** %d\n", len(rec.Rounds))

	if !r.SkipMeta {
		totalTokens := 0
		totalDuration := 0.0
		for _, round := range rec.Rounds {
			for _, resp := range round.Responses {
				totalTokens += resp.TokensIn + resp.TokensOut
				totalDuration += resp.DurationMS
			}
		}
		if totalTokens > 0 {
			fmt.Fprintf(sb, "- **Total Tokens:** %d\n", totalTokens)
		}
		if totalDuration > 0 {
			fmt.Fprintf(sb, "- **Total Response Time:** %.1fs\n", totalDuration/1000)
		}
		if rec.IsComplete() {
			fmt.Fprintf(sb, "- **Session Duration:** %.1fs\n", rec.CompletedAt.Sub(rec.CreatedAt).Seconds())
		}
	}
	sb.WriteString("\n")
}

func (r *MarkdownRenderer) round(sb *strings.Builder, round *session.QuestionRound) {
	fmt.Fprintf(sb, "## Round %d\n\n", round.RoundNumber+1)
	fmt.Fprintf(sb, "**Question:** %s\n\n", round.Question)

	for _, resp := range round.Responses {
		r.response(sb, &resp)
		sb.WriteString("\n")
	}

	if round.ModeratorSynthesis != "" {
		fmt.Fprintf(sb, "### Round Synthesis\n\n%s\n\n", round.ModeratorSynthesis)
	}
}

func (r *MarkdownRenderer) response(sb *strings.Builder, resp *session.ResponseRecord) {
	header := []string{fmt.Sprintf("**%s**", resp.AgentName)}
	if resp.Model != "" {
		header = append(header, fmt.Sprintf("(%s)", resp.Model))
	}

	var meta []string
	if !r.SkipMeta {
		if resp.Phase != "" {
			meta = append(meta, resp.Phase)
		}
		if resp.DurationMS > 0 {
			meta = append(meta, fmt.Sprintf("%.0fms", resp.DurationMS))
		}
		if tokens := resp.TokensIn + resp.TokensOut; tokens > 0 {
			meta = append(meta, fmt.Sprintf("%d tokens", tokens))
		}
	}
	if len(meta) > 0 {
		header = append(header, fmt.Sprintf("*[%s]*", strings.Join(meta, ", ")))
	}

	sb.WriteString(strings.Join(header, " "))
	sb.WriteString("\n\n")

	for _, line := range strings.Split(strings.TrimSpace(resp.Response), "\n") {
		fmt.Fprintf(sb, "> %s\n", line)
	}
}
