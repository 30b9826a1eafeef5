package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvlachos/agora/internal/bus"
	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/notify"
	"github.com/mvlachos/agora/internal/scheduler"
	"github.com/mvlachos/agora/internal/session"
	"github.com/mvlachos/agora/internal/store"
	"github.com/mvlachos/agora/internal/web"
)

func runServe(args []string) error {
	var configPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -c")
			}
			i++
			configPath = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting agora gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	var client *bus.Client
	if cfg.NATS.URL != "" {
		client, err = bus.NewClientFromURL(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats client: %w", err)
		}
		slog.Info("connected to external nats", "url", cfg.NATS.URL)
	} else {
		b, err := bus.New(cfg.NATS)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		defer b.Close()
		slog.Info("nats started", "port", b.Port())

		client, err = bus.NewClient(b)
		if err != nil {
			return fmt.Errorf("nats client: %w", err)
		}
	}
	defer client.Close()

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	if notifier == nil {
		slog.Warn("telegram token not set, notifications disabled")
	}

	sched := scheduler.New(db, client, cfg.Scheduler, scheduledRunFunc(client, notifier))
	go sched.Start(ctx)

	if cfg.Web.Enabled {
		srv := web.NewServer(db, client, sched, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()
	return nil
}

// scheduledRunFunc executes one scheduled session from its config file,
// publishing events to the bus and reporting the outcome.
func scheduledRunFunc(client *bus.Client, notifier *notify.Notifier) scheduler.RunFunc {
	return func(ctx context.Context, run store.ScheduledRun) error {
		cfg, err := config.LoadFile(run.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		var sink session.EventSink = session.NopSink{}
		if client != nil {
			sink = client.EventSink()
		}

		orch, cleanup, err := buildOrchestrator(cfg, sink)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := orch.Setup(ctx); err != nil {
			return fmt.Errorf("session setup: %w", err)
		}
		results, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		for range results {
			// Rounds are consumed for completion; output goes to the log.
		}
		if err := orch.Err(); err != nil {
			if notifier != nil {
				_ = notifier.RunFailed(ctx, run.Name, err.Error())
			}
			return err
		}

		if cfg.Output.SaveLog {
			locator, err := orch.Save()
			if err != nil {
				slog.Warn("failed to save session log", "run", run.Name, "error", err)
			} else {
				slog.Info("scheduled session saved", "run", run.Name, "session", locator)
			}
		}

		if notifier != nil {
			if err := notifier.SessionCompleted(ctx, orch.Session()); err != nil {
				slog.Warn("telegram notification failed", "error", err)
			}
		}
		return nil
	}
}
