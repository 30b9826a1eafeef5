package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/scheduler"
	"github.com/mvlachos/agora/internal/session"
	"github.com/mvlachos/agora/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "agora.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s, nil, nil, config.WebConfig{Port: 0}, "test")
	return srv, s
}

func testMux(t *testing.T, srv *Server) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	srv.registerAPI(mux)
	return mux
}

func saveSession(t *testing.T, s *store.Store, tool string) *session.SessionRecord {
	t.Helper()
	rec := session.NewSessionRecord("review", tool, "single")
	rec.AgentCount = 2
	rec.Rounds = []session.QuestionRound{{RoundNumber: 1, Question: "ok?"}}
	now := time.Now().UTC()
	rec.CompletedAt = now
	if _, err := s.SaveSession(rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return rec
}

func TestListSessions(t *testing.T) {
	srv, s := newTestServer(t)
	saveSession(t, s, "memex")
	mux := testMux(t, srv)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 session, got %d", len(out))
	}
	if out[0]["tool"] != "memex" {
		t.Errorf("tool = %v", out[0]["tool"])
	}
	if out[0]["is_complete"] != true {
		t.Errorf("is_complete = %v", out[0]["is_complete"])
	}
}

func TestGetSessionByFragment(t *testing.T) {
	srv, s := newTestServer(t)
	rec := saveSession(t, s, "memex")
	mux := testMux(t, srv)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/"+rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got session.SessionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("id = %q, want %q", got.ID, rec.ID)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := testMux(t, srv)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	srv, s := newTestServer(t)
	rec := saveSession(t, s, "memex")
	mux := testMux(t, srv)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/sessions/"+rec.DisplayID(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/sessions/"+rec.DisplayID(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateRun(t *testing.T) {
	srv, s := newTestServer(t)
	mux := testMux(t, srv)

	body, _ := json.Marshal(map[string]string{
		"name":        "nightly",
		"schedule":    "0 2 * * *",
		"config_path": "/etc/agora/nightly.yaml",
	})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/runs", bytes.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var run store.ScheduledRun
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if run.Status != "active" || run.NextRunAt == nil {
		t.Errorf("run = %+v", run)
	}

	saved, err := s.GetRun(run.ID)
	if err != nil || saved == nil {
		t.Fatalf("run not persisted: %v", err)
	}
}

func TestCreateRunInvalidSchedule(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := testMux(t, srv)

	body, _ := json.Marshal(map[string]string{
		"name":        "bad",
		"schedule":    "definitely not cron",
		"config_path": "/tmp/x.yaml",
	})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/runs", bytes.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPauseAndResumeRun(t *testing.T) {
	srv, s := newTestServer(t)
	mux := testMux(t, srv)

	next := time.Now().Add(time.Hour)
	if err := s.SaveRun(&store.ScheduledRun{
		ID: "run1", Name: "nightly", Schedule: "@every 24h",
		ConfigPath: "/etc/agora/n.yaml", Status: "active",
		NextRunAt: &next, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save run: %v", err)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/runs/run1/pause", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	run, _ := s.GetRun("run1")
	if run.Status != "paused" {
		t.Errorf("status = %q, want paused", run.Status)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/runs/run1/resume", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("resume status = %d", w.Code)
	}
	run, _ = s.GetRun("run1")
	if run.Status != "active" {
		t.Errorf("status = %q, want active", run.Status)
	}
}

// Resuming a due run through the API must reach the scheduler without
// waiting out its poll interval.
func TestResumeWakesScheduler(t *testing.T) {
	srv, s := newTestServer(t)

	executed := make(chan string, 1)
	sched := scheduler.New(s, nil, config.SchedulerConfig{PollInterval: time.Hour},
		func(ctx context.Context, run store.ScheduledRun) error {
			executed <- run.ID
			return nil
		})
	srv.sched = sched

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)

	past := time.Now().Add(-time.Minute)
	if err := s.SaveRun(&store.ScheduledRun{
		ID: "run1", Name: "nightly", Schedule: "@every 24h",
		ConfigPath: "/etc/agora/n.yaml", Status: "paused",
		NextRunAt: &past, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save run: %v", err)
	}

	mux := testMux(t, srv)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/runs/run1/resume", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("resume status = %d", w.Code)
	}

	select {
	case id := <-executed:
		if id != "run1" {
			t.Fatalf("executed %q, want run1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resumed run never executed")
	}
}

func TestStatus(t *testing.T) {
	srv, s := newTestServer(t)
	saveSession(t, s, "memex")
	mux := testMux(t, srv)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/status", nil))

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["version"] != "test" {
		t.Errorf("version = %v", out["version"])
	}
	if out["sessions"] != float64(1) {
		t.Errorf("sessions = %v", out["sessions"])
	}
}
