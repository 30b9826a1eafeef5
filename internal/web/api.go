package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mvlachos/agora/internal/scheduler"
	"github.com/mvlachos/agora/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Sessions
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)

	// Scheduled runs
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("POST /api/runs", s.createRun)
	mux.HandleFunc("POST /api/runs/{id}/pause", s.pauseRun)
	mux.HandleFunc("POST /api/runs/{id}/resume", s.resumeRun)
	mux.HandleFunc("DELETE /api/runs/{id}", s.deleteRun)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(limit, r.URL.Query().Get("tool"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(sessions))
	for _, rec := range sessions {
		out = append(out, map[string]any{
			"id":          rec.DisplayID(),
			"name":        rec.Name,
			"tool":        rec.Tool,
			"mode":        rec.Mode,
			"agent_count": rec.AgentCount,
			"rounds":      len(rec.Rounds),
			"responses":   rec.TotalResponses(),
			"created_at":  rec.CreatedAt,
			"is_complete": rec.IsComplete(),
		})
	}
	jsonResponse(w, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSession(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonResponse(w, rec)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteSession(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, runs)
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		Schedule   string `json:"schedule"`
		ConfigPath string `json:"config_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Schedule == "" || body.ConfigPath == "" {
		jsonError(w, "name, schedule and config_path are required", http.StatusBadRequest)
		return
	}
	if err := scheduler.Validate(body.Schedule); err != nil {
		jsonError(w, fmt.Sprintf("invalid schedule: %v", err), http.StatusBadRequest)
		return
	}

	next, err := scheduler.NextRun(body.Schedule, time.Now())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if next == nil {
		jsonError(w, "schedule has no future runs", http.StatusBadRequest)
		return
	}

	run := &store.ScheduledRun{
		ID:         uuid.NewString()[:8],
		Name:       body.Name,
		Schedule:   body.Schedule,
		ConfigPath: body.ConfigPath,
		Status:     "active",
		NextRunAt:  next,
		CreatedAt:  time.Now(),
	}
	if err := s.store.SaveRun(run); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.wakeScheduler()
	jsonResponse(w, run)
}

func (s *Server) wakeScheduler() {
	if s.sched != nil {
		s.sched.Wake()
	}
}

func (s *Server) pauseRun(w http.ResponseWriter, r *http.Request) {
	s.setRunStatus(w, r.PathValue("id"), "paused")
}

func (s *Server) resumeRun(w http.ResponseWriter, r *http.Request) {
	s.setRunStatus(w, r.PathValue("id"), "active")
}

func (s *Server) setRunStatus(w http.ResponseWriter, id, status string) {
	run, err := s.store.GetRun(id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err := s.store.UpdateRunStatus(id, status); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	run.Status = status
	s.wakeScheduler()
	jsonResponse(w, run)
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.wakeScheduler()
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	sessionCount, _ := s.store.CountSessions()
	runs, _ := s.store.ListRuns()

	activeRuns := 0
	for _, run := range runs {
		if run.Status == "active" {
			activeRuns++
		}
	}

	jsonResponse(w, map[string]any{
		"version":        s.version,
		"uptime":         formatUptime(time.Since(s.startedAt)),
		"sessions":       sessionCount,
		"scheduled_runs": activeRuns,
		"ws_clients":     s.hub.ClientCount(),
	})
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
