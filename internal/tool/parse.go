package tool

import (
	"regexp"
	"strings"
)

// Section header patterns seen across common CLI help layouts, matched
// against the stripped line.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(Commands?|Subcommands?):?\s*$`),
	regexp.MustCompile(`(?i)^(Options?|Flags?):?\s*$`),
	regexp.MustCompile(`(?i)^(Arguments?|Args?|Positional Arguments?):?\s*$`),
	regexp.MustCompile(`(?i)^(Description):?\s*$`),
	regexp.MustCompile(`(?i)^(Examples?):?\s*$`),
	regexp.MustCompile(`(?i)^(Environment Variables?|Env):?\s*$`),
	regexp.MustCompile(`(?i)^(Configuration|Config):?\s*$`),
	regexp.MustCompile(`(?i)^(Notes?):?\s*$`),
	regexp.MustCompile(`(?i)^(See Also):?\s*$`),
	regexp.MustCompile(`^([A-Z][A-Z\s]+):?\s*$`), // ALL CAPS headers
}

var (
	usageRe   = regexp.MustCompile(`(?i)^\s*usage:\s*(.*)$`)
	optionRe  = regexp.MustCompile(`^(-[\w-]+(?:\s*,\s*-[\w-]+)*(?:\s+<?\w+>?)?)\s{2,}(.+)$`)
	commandRe = regexp.MustCompile(`^([\w-]+)\s{2,}(.+)$`)
)

// ParseHelp turns raw --help output into a structured Help. It aims at
// the common layout: usage line, free description, then sections of
// indented item/description pairs.
func ParseHelp(toolName, raw string) *Help {
	lines := strings.Split(raw, "\n")

	usage, usageEnd := extractUsage(lines)
	description := extractDescription(lines, usageEnd)
	sections := parseSections(lines)

	return &Help{
		ToolName:    toolName,
		Description: description,
		Usage:       usage,
		Sections:    sections,
		Raw:         raw,
	}
}

func sectionHeader(line string) (string, bool) {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return "", false
	}
	for _, re := range sectionPatterns {
		if m := re.FindStringSubmatch(stripped); m != nil {
			return strings.TrimRight(strings.TrimSpace(m[1]), ":"), true
		}
	}
	return "", false
}

func extractUsage(lines []string) (string, int) {
	for i, line := range lines {
		m := usageRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parts := []string{strings.TrimSpace(m[1])}
		// Indented non-empty lines continue the usage block.
		j := i + 1
		for j < len(lines) {
			next := lines[j]
			if strings.TrimSpace(next) == "" {
				break
			}
			if len(next) > len(strings.TrimLeft(next, " \t")) {
				parts = append(parts, strings.TrimSpace(next))
				j++
			} else {
				break
			}
		}
		return strings.TrimSpace(strings.Join(parts, " ")), j
	}
	return "", 0
}

func extractDescription(lines []string, usageEnd int) string {
	var desc []string
	for i := usageEnd; i < len(lines); i++ {
		if _, ok := sectionHeader(lines[i]); ok {
			break
		}
		stripped := strings.TrimSpace(lines[i])
		if stripped != "" {
			desc = append(desc, stripped)
		} else if len(desc) > 0 {
			break
		}
	}
	return strings.Join(desc, " ")
}

// parseItemLine matches "--opt  desc" and "command  desc" shapes.
func parseItemLine(line string) (string, string, bool) {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return "", "", false
	}
	if m := optionRe.FindStringSubmatch(stripped); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := commandRe.FindStringSubmatch(stripped); m != nil {
		item := m[1]
		// Probably a sentence fragment, not a command name.
		if item[0] >= 'A' && item[0] <= 'Z' {
			return "", "", false
		}
		return item, strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

func parseSections(lines []string) []Section {
	var sections []Section
	var current *Section
	var content []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(content, "\n"))
		sections = append(sections, *current)
	}

	for _, line := range lines {
		if name, ok := sectionHeader(line); ok {
			flush()
			current = &Section{Name: name, Items: make(map[string]string)}
			content = nil
			continue
		}
		if current == nil {
			continue
		}
		content = append(content, line)
		if item, desc, ok := parseItemLine(line); ok {
			if _, seen := current.Items[item]; !seen {
				current.ItemOrder = append(current.ItemOrder, item)
			}
			current.Items[item] = desc
		}
	}
	flush()

	return sections
}
