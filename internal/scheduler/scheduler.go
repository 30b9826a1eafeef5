package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvlachos/agora/internal/bus"
	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/store"
)

// RunFunc executes one scheduled session from its config file. The
// serve command wires this to the full run pipeline.
type RunFunc func(ctx context.Context, run store.ScheduledRun) error

type Scheduler struct {
	store        *store.Store
	client       *bus.Client
	runFunc      RunFunc
	pollInterval time.Duration
	reloadCh     chan struct{}
}

func New(s *store.Store, client *bus.Client, cfg config.SchedulerConfig, runFunc RunFunc) *Scheduler {
	return &Scheduler{
		store:        s,
		client:       client,
		runFunc:      runFunc,
		pollInterval: cfg.PollInterval,
		reloadCh:     make(chan struct{}, 1),
	}
}

// Wake triggers an immediate poll, used by the web API after it creates
// or resumes a run so the change takes effect without waiting out the
// poll interval.
func (s *Scheduler) Wake() {
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-s.reloadCh:
			s.poll(ctx)
			ticker.Reset(s.pollInterval)
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	runs, err := s.store.GetDueRuns(time.Now())
	if err != nil {
		slog.Error("failed to get due runs", "error", err)
		return
	}

	for _, run := range runs {
		s.execute(ctx, run)
	}
}

func (s *Scheduler) execute(ctx context.Context, run store.ScheduledRun) {
	slog.Info("executing scheduled run", "id", run.ID, "name", run.Name, "config", run.ConfigPath)

	err := s.runFunc(ctx, run)

	var lastStatus, lastError string
	if err != nil {
		lastStatus = "error"
		lastError = err.Error()
		slog.Error("scheduled run failed", "id", run.ID, "error", err)
	} else {
		lastStatus = "success"
	}

	nextRun, scheduleErr := NextRun(run.Schedule, time.Now())
	if scheduleErr != nil {
		slog.Error("reschedule failed", "id", run.ID, "error", scheduleErr)
	}

	if err := s.store.UpdateRunResult(run.ID, lastStatus, lastError, nextRun); err != nil {
		slog.Error("failed to update run result", "id", run.ID, "error", err)
	}

	if s.client != nil {
		_ = s.client.PublishJSON(bus.TopicScheduler, map[string]any{
			"type":      "run_executed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"id":        run.ID,
			"name":      run.Name,
			"status":    lastStatus,
		})
	}

	// One-off runs with no next firing are done.
	if nextRun == nil {
		slog.Info("no next run, marking completed", "id", run.ID, "name", run.Name)
		if err := s.store.UpdateRunStatus(run.ID, "completed"); err != nil {
			slog.Error("failed to complete run", "id", run.ID, "error", err)
		}
	}
}
