package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSearchResults(t *testing.T) {
	stdout := `Found 3 results
---
tooling/beads.md: Beads issue tracker
notes/deploy.md: Deployment runbook
orphan-line
`
	results := parseSearchResults(stdout)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Path != "tooling/beads.md" || results[0].Title != "Beads issue tracker" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[2].Path != "orphan-line" || results[2].Title != "orphan-line" {
		t.Errorf("line without separator = %+v", results[2])
	}
}

func TestParseEntryFrontmatter(t *testing.T) {
	content := `---
title: "Beads"
tags: [tooling, tracking]
---
Beads is an issue tracker.`

	info := parseEntry("tooling/beads.md", content)
	if info.Title != "Beads" {
		t.Errorf("title = %q", info.Title)
	}
	if len(info.Tags) != 2 || info.Tags[0] != "tooling" || info.Tags[1] != "tracking" {
		t.Errorf("tags = %v", info.Tags)
	}
	if info.Content != content {
		t.Error("content not preserved")
	}
}

func TestParseEntryWithoutFrontmatter(t *testing.T) {
	info := parseEntry("notes/deploy-runbook.md", "plain text")
	if info.Title != "Deploy Runbook" {
		t.Errorf("title = %q, want derived from path", info.Title)
	}
	if len(info.Tags) != 0 {
		t.Errorf("tags = %v, want none", info.Tags)
	}
}

// fakeMx writes a stub mx script that echoes canned output per
// subcommand.
func fakeMx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mx")
	script := `#!/bin/sh
case "$1" in
search) printf 'tooling/beads.md: Beads\n' ;;
list) printf 'tooling/beads.md\nnotes/deploy.md\n' ;;
tree) printf 'tooling/\n  beads.md\n' ;;
*) printf 'mx help\n' ;;
esac
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestMemexToolOperations(t *testing.T) {
	mx := NewMemexTool(fakeMx(t), CLIToolOpts{})
	ctx := context.Background()

	if mx.Name() != "memex" {
		t.Errorf("name = %q", mx.Name())
	}

	results, err := mx.Search(ctx, "beads", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "tooling/beads.md" {
		t.Errorf("search results = %+v", results)
	}

	paths, err := mx.Entries(ctx, "")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v", paths)
	}

	tree, err := mx.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if tree == "" {
		t.Error("empty tree output")
	}
}
