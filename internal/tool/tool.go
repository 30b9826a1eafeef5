package tool

import (
	"context"
	"fmt"
	"strings"
)

// Tool is the target under evaluation. The orchestrator fetches its help
// exactly once per session and hands the rendered context to every agent.
type Tool interface {
	Name() string
	Command() string
	Help(ctx context.Context) (*Help, error)
}

// Section is one parsed block of help output (Commands, Options, ...).
type Section struct {
	Name    string
	Content string
	Items   map[string]string
	// order of Items keys as they appeared
	ItemOrder []string
}

// Help is the structured documentation extracted from a tool.
type Help struct {
	ToolName    string
	Description string
	Usage       string
	Sections    []Section
	Raw         string
	Version     string
}

// Section returns a parsed section by name, case-insensitively.
func (h *Help) Section(name string) *Section {
	for i := range h.Sections {
		if strings.EqualFold(h.Sections[i].Name, name) {
			return &h.Sections[i]
		}
	}
	return nil
}

// ContextString renders the help as the prompt context block.
func (h *Help) ContextString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s", h.ToolName)

	if h.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(h.Description)
	}
	if h.Version != "" {
		fmt.Fprintf(&sb, "\n\nVersion: %s", h.Version)
	}
	if h.Usage != "" {
		fmt.Fprintf(&sb, "\n\n## Usage\n```\n%s\n```", h.Usage)
	}

	for _, sec := range h.Sections {
		fmt.Fprintf(&sb, "\n\n## %s", sec.Name)
		if len(sec.ItemOrder) > 0 {
			for _, item := range sec.ItemOrder {
				fmt.Fprintf(&sb, "\n- `%s`: %s", item, sec.Items[item])
			}
		} else if sec.Content != "" {
			sb.WriteString("\n")
			sb.WriteString(sec.Content)
		}
	}

	return sb.String()
}

// CommandResult captures one invocation of the target tool.
type CommandResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Command    string
	DurationMS float64
}

func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout with stderr appended when present.
func (r CommandResult) Output() string {
	switch {
	case r.Stdout != "" && r.Stderr != "":
		return r.Stdout + "\n[stderr]\n" + r.Stderr
	case r.Stderr != "":
		return "[stderr]\n" + r.Stderr
	default:
		return r.Stdout
	}
}

// Error types mirror the agent taxonomy: not-found and timeout are
// distinguished so the orchestrator can report setup failures precisely.
type NotFoundError struct {
	Command string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found in PATH", e.Command)
}

type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

type TimeoutError struct {
	Command string
	Seconds float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %.0fs", e.Command, e.Seconds)
}
