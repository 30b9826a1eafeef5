package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mvlachos/agora/internal/config"
)

func runPresets() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROVIDER\tROLE")
	for _, name := range config.ListPresets() {
		spec, err := config.LoadAgentPreset(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t(unreadable: %v)\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, spec.Provider, presetRole(spec))
	}
	return w.Flush()
}

// presetRole condenses the preset's system prompt to one table cell.
func presetRole(spec config.AgentSpec) string {
	line, _, _ := strings.Cut(strings.TrimSpace(spec.SystemPrompt), "\n")
	if len(line) > 72 {
		line = line[:69] + "..."
	}
	return line
}
