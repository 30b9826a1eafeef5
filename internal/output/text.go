package output

import (
	"fmt"
	"strings"

	"github.com/mvlachos/agora/internal/session"
)

// TextRenderer produces compact terminal output.
type TextRenderer struct {
	Width int
}

func (r *TextRenderer) Render(rec *session.SessionRecord) (string, error) {
	width := r.Width
	if width <= 0 {
		width = 80
	}
	heavy := strings.Repeat("=", width)
	light := strings.Repeat("-", width)

	var sb strings.Builder
	title := rec.Name
	if title == "" {
		title = "Agora: " + rec.Tool
	}

	sb.WriteString(heavy + "\n")
	sb.WriteString(center(title, width) + "\n")
	sb.WriteString(center("Session: "+rec.DisplayID(), width) + "\n")
	sb.WriteString(heavy + "\n\n")

	status := "In Progress"
	if rec.IsComplete() {
		status = "Complete"
	}
	fmt.Fprintf(&sb, "Mode: %s | Agents: %d | Status: %s\n\n", rec.Mode, rec.AgentCount, status)

	for _, round := range rec.Rounds {
		sb.WriteString(light + "\n")
		fmt.Fprintf(&sb, "ROUND %d: %s\n", round.RoundNumber+1, round.Question)
		sb.WriteString(light + "\n\n")

		for _, resp := range round.Responses {
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", resp.AgentName, strings.TrimSpace(resp.Response))
		}

		if round.ModeratorSynthesis != "" {
			fmt.Fprintf(&sb, "[Moderator Synthesis]\n%s\n\n", strings.TrimSpace(round.ModeratorSynthesis))
		}
	}

	if rec.FinalSynthesis != "" {
		sb.WriteString(heavy + "\n")
		sb.WriteString("FINAL SYNTHESIS\n")
		sb.WriteString(heavy + "\n")
		sb.WriteString(strings.TrimSpace(rec.FinalSynthesis) + "\n")
	}

	return sb.String(), nil
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
