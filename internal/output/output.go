// Package output renders session records for humans and pipelines:
// JSON for tooling, Markdown for reports, plain text for the terminal.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/mvlachos/agora/internal/session"
)

// Renderer turns a session record into one output format.
type Renderer interface {
	Render(rec *session.SessionRecord) (string, error)
}

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONRenderer{Pretty: true}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "text", "txt", "":
		return &TextRenderer{Width: 80}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: json, markdown, text)", format)
	}
}

// WriteFile renders the record and writes it to path.
func WriteFile(r Renderer, rec *session.SessionRecord, path string) error {
	content, err := r.Render(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
