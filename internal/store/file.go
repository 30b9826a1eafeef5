package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvlachos/agora/internal/session"
)

// FileStorage keeps each session as one pretty-printed JSON file,
// named by display ID so a plain ls sorts chronologically.
type FileStorage struct {
	dir string
}

// DefaultLogDir resolves the session directory: AGORA_LOG_DIR wins,
// then XDG_DATA_HOME/agora/logs, then ~/.local/share/agora/logs.
func DefaultLogDir() string {
	if dir := os.Getenv("AGORA_LOG_DIR"); dir != "" {
		return dir
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "agora", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "agora-logs")
	}
	return filepath.Join(home, ".local", "share", "agora", "logs")
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		dir = DefaultLogDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

// Save writes the record and returns the file path.
func (f *FileStorage) Save(rec *session.SessionRecord) (string, error) {
	blob, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	path := f.path(rec.DisplayID())
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return path, nil
}

// Load reads a record by display ID or any unambiguous fragment.
func (f *FileStorage) Load(id string) (*session.SessionRecord, error) {
	path := f.path(id)
	if _, err := os.Stat(path); err != nil {
		matches, globErr := filepath.Glob(filepath.Join(f.dir, "*"+id+"*.json"))
		if globErr != nil || len(matches) == 0 {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		if len(matches) > 1 {
			return nil, fmt.Errorf("ambiguous session id %q matches %d files", id, len(matches))
		}
		path = matches[0]
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var rec session.SessionRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// List returns up to limit records, newest first by filename. Files
// that do not parse are skipped, not fatal: one corrupt log must not
// hide the rest.
func (f *FileStorage) List(limit int, toolFilter string) ([]*session.SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var records []*session.SessionRecord
	for _, name := range names {
		blob, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			continue
		}
		var rec session.SessionRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			continue
		}
		if toolFilter != "" && !strings.Contains(rec.Tool, toolFilter) {
			continue
		}
		records = append(records, &rec)
		if len(records) >= limit {
			break
		}
	}
	return records, nil
}

// Delete removes one session file, reporting whether it existed.
func (f *FileStorage) Delete(id string) (bool, error) {
	err := os.Remove(f.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}

// Dir returns the directory the storage writes into.
func (f *FileStorage) Dir() string {
	return f.dir
}
