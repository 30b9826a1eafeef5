package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DocsTool evaluates a tool from its documentation files instead of a
// live binary: a single file, or every markdown/text file in a directory.
type DocsTool struct {
	name string
	path string
}

func NewDocsTool(name, path string) *DocsTool {
	if name == "" {
		name = filepath.Base(path)
	}
	return &DocsTool{name: name, path: path}
}

func (t *DocsTool) Name() string    { return t.name }
func (t *DocsTool) Command() string { return t.path }

func (t *DocsTool) Help(ctx context.Context) (*Help, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return nil, fmt.Errorf("stat docs path: %w", err)
	}

	var raw string
	if info.IsDir() {
		raw, err = t.readDir()
	} else {
		raw, err = t.readFile(t.path)
	}
	if err != nil {
		return nil, err
	}

	return &Help{
		ToolName:    t.name,
		Description: firstParagraph(raw),
		Raw:         raw,
	}, nil
}

func (t *DocsTool) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read docs file: %w", err)
	}
	return string(data), nil
}

func (t *DocsTool) readDir() (string, error) {
	entries, err := os.ReadDir(t.path)
	if err != nil {
		return "", fmt.Errorf("read docs dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".md", ".txt", ".rst":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		content, err := t.readFile(filepath.Join(t.path, name))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "<!-- %s -->\n%s\n\n", name, content)
	}
	return sb.String(), nil
}

func firstParagraph(raw string) string {
	for _, para := range strings.Split(raw, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "<!--") {
			continue
		}
		return p
	}
	return ""
}
