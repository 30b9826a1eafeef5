package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(tool string) *session.SessionRecord {
	rec := session.NewSessionRecord("review", tool, "single")
	rec.AgentCount = 2
	result := session.NewRoundResult("is it usable?", "")
	result.MarkComplete()
	rec.AddRound(result)
	return rec
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rec := sampleRecord("memex")
	loc, err := s.SaveSession(rec)
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
	if loc != rec.DisplayID() {
		t.Errorf("locator = %q, want %q", loc, rec.DisplayID())
	}

	got, err := s.GetSession(rec.DisplayID())
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Tool != "memex" || got.Name != "review" || len(got.Rounds) != 1 {
		t.Errorf("round-tripped record = %+v", got)
	}

	// Re-save after completion updates the same row.
	rec.CompletedAt = time.Now()
	if _, err := s.SaveSession(rec); err != nil {
		t.Fatalf("re-save session: %v", err)
	}
	got, _ = s.GetSession(rec.DisplayID())
	if !got.IsComplete() {
		t.Error("completion did not persist")
	}

	records, err := s.ListSessions(10, "")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 session, got %d", len(records))
	}
}

func TestGetSessionByFragment(t *testing.T) {
	s := newTestStore(t)

	rec := sampleRecord("memex")
	if _, err := s.SaveSession(rec); err != nil {
		t.Fatalf("save session: %v", err)
	}

	// The bare short ID resolves.
	got, err := s.GetSession(rec.ID)
	if err != nil {
		t.Fatalf("get by short id: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("got %q, want %q", got.ID, rec.ID)
	}

	// A fragment of the short ID resolves while unique.
	got, err = s.GetSession(rec.ID[:4])
	if err != nil {
		t.Fatalf("get by fragment: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("fragment resolved to %q", got.ID)
	}

	if _, err := s.GetSession("nope-nothing"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestListSessionsFilterAndOrder(t *testing.T) {
	s := newTestStore(t)

	first := sampleRecord("memex")
	first.CreatedAt = time.Now().Add(-time.Hour)
	second := sampleRecord("ripgrep")
	_, _ = s.SaveSession(first)
	_, _ = s.SaveSession(second)

	records, err := s.ListSessions(10, "")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(records) != 2 || records[0].Tool != "ripgrep" {
		t.Errorf("expected newest first, got %+v", records)
	}

	records, _ = s.ListSessions(10, "memex")
	if len(records) != 1 || records[0].Tool != "memex" {
		t.Errorf("tool filter returned %+v", records)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)

	rec := sampleRecord("memex")
	_, _ = s.SaveSession(rec)

	deleted, err := s.DeleteSession(rec.DisplayID())
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	deleted, err = s.DeleteSession(rec.DisplayID())
	if err != nil || deleted {
		t.Errorf("second delete = %v, %v", deleted, err)
	}
}

func TestScheduledRunCRUD(t *testing.T) {
	s := newTestStore(t)

	next := time.Now().Add(-time.Minute).UTC()
	r := &ScheduledRun{
		ID:         "nightly",
		Name:       "Nightly memex review",
		Schedule:   "0 2 * * *",
		ConfigPath: "configs/memex.yaml",
		Status:     "active",
		NextRunAt:  &next,
	}
	if err := s.SaveRun(r); err != nil {
		t.Fatalf("save run: %v", err)
	}

	due, err := s.GetDueRuns(time.Now().UTC())
	if err != nil {
		t.Fatalf("get due runs: %v", err)
	}
	if len(due) != 1 || due[0].ID != "nightly" {
		t.Fatalf("due runs = %+v", due)
	}

	later := time.Now().Add(time.Hour).UTC()
	if err := s.UpdateRunResult("nightly", "ok", "", &later); err != nil {
		t.Fatalf("update run result: %v", err)
	}
	due, _ = s.GetDueRuns(time.Now().UTC())
	if len(due) != 0 {
		t.Errorf("run still due after reschedule: %+v", due)
	}

	got, err := s.GetRun("nightly")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.LastStatus != "ok" || got.LastRunAt == nil {
		t.Errorf("run result not recorded: %+v", got)
	}

	if err := s.UpdateRunStatus("nightly", "paused"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = s.GetRun("nightly")
	if got.Status != "paused" {
		t.Errorf("status = %q", got.Status)
	}

	if err := s.DeleteRun("nightly"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	got, _ = s.GetRun("nightly")
	if got != nil {
		t.Error("run survived delete")
	}
}

func TestSecretCRUD(t *testing.T) {
	s := newTestStore(t)

	sec := &Secret{Name: "OPENAI_KEY", Description: "codex key", Value: []byte{1, 2, 3}, Nonce: []byte{4, 5, 6}}
	if err := s.SaveSecret(sec); err != nil {
		t.Fatalf("save secret: %v", err)
	}

	got, err := s.GetSecret("OPENAI_KEY")
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if got == nil || string(got.Value) != "\x01\x02\x03" {
		t.Fatalf("secret = %+v", got)
	}

	list, err := s.ListSecrets()
	if err != nil {
		t.Fatalf("list secrets: %v", err)
	}
	if len(list) != 1 || list[0].Value != nil {
		t.Errorf("list must return metadata only: %+v", list)
	}

	got, err = s.GetSecret("missing")
	if err != nil || got != nil {
		t.Errorf("missing secret = %+v, %v", got, err)
	}

	if err := s.DeleteSecret("OPENAI_KEY"); err != nil {
		t.Fatalf("delete secret: %v", err)
	}
	got, _ = s.GetSecret("OPENAI_KEY")
	if got != nil {
		t.Error("secret survived delete")
	}
}
