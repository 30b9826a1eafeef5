package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mvlachos/agora/internal/session"
)

// SaveSession upserts a session record, keyed by display ID so
// re-saving after completion overwrites the in-progress row.
func (s *Store) SaveSession(rec *session.SessionRecord) (string, error) {
	blob, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	var completedAt any
	if rec.IsComplete() {
		completedAt = rec.CompletedAt
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, short_id, name, tool, mode, agent_count, record, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, agent_count=excluded.agent_count,
			record=excluded.record, completed_at=excluded.completed_at`,
		rec.DisplayID(), rec.ID, rec.Name, rec.Tool, rec.Mode,
		rec.AgentCount, string(blob), rec.CreatedAt, completedAt)
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return rec.DisplayID(), nil
}

// GetSession loads one record by display ID, short ID, or any
// unambiguous fragment of either.
func (s *Store) GetSession(id string) (*session.SessionRecord, error) {
	row := s.db.QueryRow(`SELECT record FROM sessions WHERE id = ? OR short_id = ?`, id, id)
	rec, err := scanSession(row)
	if err == nil {
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.Query(`SELECT record FROM sessions WHERE id LIKE ? ORDER BY created_at`, "%"+id+"%")
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	defer rows.Close()

	var matches []*session.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("session not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous session id %q matches %d sessions", id, len(matches))
	}
}

// ListSessions returns up to limit records, newest first, optionally
// filtered by tool substring.
func (s *Store) ListSessions(limit int, toolFilter string) ([]*session.SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT record FROM sessions
		WHERE (? = '' OR tool LIKE ?)
		ORDER BY created_at DESC LIMIT ?`,
		toolFilter, "%"+toolFilter+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []*session.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) CountSessions() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteSession(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ? OR short_id = ?`, id, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*session.SessionRecord, error) {
	var blob string
	if err := sc.Scan(&blob); err != nil {
		return nil, err
	}
	var rec session.SessionRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// sessionBackend adapts the store to the session.Storage interface.
type sessionBackend struct {
	s *Store
}

func (b sessionBackend) Save(rec *session.SessionRecord) (string, error) {
	return b.s.SaveSession(rec)
}

// SessionBackend exposes the store as a session storage backend.
func (s *Store) SessionBackend() session.Storage {
	return sessionBackend{s: s}
}
