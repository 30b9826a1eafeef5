package tool

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult is one hit from a memex search.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// EntryInfo is a memex knowledge base entry.
type EntryInfo struct {
	Path    string
	Title   string
	Tags    []string
	Content string
}

// MemexTool wraps the memex (mx) knowledge base CLI. It is the bundled
// example of a concrete tool integration: high-level operations on top
// of the generic CLI wrapper, while Help and Run stay available.
type MemexTool struct {
	*CLITool
}

func NewMemexTool(command string, opts CLIToolOpts) *MemexTool {
	if command == "" {
		command = "mx"
	}
	if opts.Name == "" {
		opts.Name = "memex"
	}
	return &MemexTool{CLITool: NewCLITool(command, opts)}
}

// Search queries the knowledge base. limit <= 0 uses memex's default.
func (t *MemexTool) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	args := []string{"search", query}
	if limit > 0 {
		args = append(args, fmt.Sprintf("--limit=%d", limit))
	}
	result, err := t.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(result.Stdout), nil
}

// Entry fetches one knowledge base entry by path.
func (t *MemexTool) Entry(ctx context.Context, path string) (EntryInfo, error) {
	result, err := t.Run(ctx, []string{"get", path})
	if err != nil {
		return EntryInfo{}, err
	}
	return parseEntry(path, result.Stdout), nil
}

// Entries lists entry paths, optionally filtered by tag.
func (t *MemexTool) Entries(ctx context.Context, tag string) ([]string, error) {
	args := []string{"list"}
	if tag != "" {
		args = append(args, "--tag="+tag)
	}
	result, err := t.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// Tree returns the knowledge base directory structure.
func (t *MemexTool) Tree(ctx context.Context) (string, error) {
	result, err := t.Run(ctx, []string{"tree"})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// HealthCheck runs memex's own health check.
func (t *MemexTool) HealthCheck(ctx context.Context) (CommandResult, error) {
	return t.Run(ctx, []string{"health"})
}

// parseSearchResults reads "path: title" lines, skipping the summary and
// separator lines memex prints around them.
func parseSearchResults(stdout string) []SearchResult {
	var results []SearchResult
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Found") || strings.HasPrefix(line, "---") {
			continue
		}
		path, title, found := strings.Cut(line, ":")
		path = strings.TrimSpace(path)
		if !found {
			title = path
		}
		results = append(results, SearchResult{
			Path:  path,
			Title: strings.TrimSpace(title),
		})
	}
	return results
}

// parseEntry extracts title and tags from YAML frontmatter when present,
// falling back to a title derived from the entry path.
func parseEntry(path, content string) EntryInfo {
	info := EntryInfo{
		Path:    path,
		Title:   titleFromPath(path),
		Content: content,
	}

	if !strings.HasPrefix(content, "---") {
		return info
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return info
	}
	for _, line := range strings.Split(parts[1], "\n") {
		if after, ok := strings.CutPrefix(line, "title:"); ok {
			info.Title = strings.Trim(strings.TrimSpace(after), `"'`)
		} else if after, ok := strings.CutPrefix(line, "tags:"); ok {
			tagPart := strings.TrimSpace(after)
			if strings.HasPrefix(tagPart, "[") {
				tagPart = strings.Trim(tagPart, "[]")
				for _, tag := range strings.Split(tagPart, ",") {
					info.Tags = append(info.Tags, strings.Trim(strings.TrimSpace(tag), `"'`))
				}
			}
		}
	}
	return info
}

func titleFromPath(path string) string {
	base := path[strings.LastIndex(path, "/")+1:]
	base = strings.TrimSuffix(base, ".md")
	words := strings.Split(strings.ReplaceAll(base, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
