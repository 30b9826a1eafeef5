// Package web serves the session dashboard: a JSON API over the store
// plus a websocket relay of live session events.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mvlachos/agora/internal/bus"
	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/scheduler"
	"github.com/mvlachos/agora/internal/store"
)

//go:embed static
var staticFiles embed.FS

type Server struct {
	store     *store.Store
	client    *bus.Client
	sched     *scheduler.Scheduler
	hub       *Hub
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

// NewServer builds the dashboard server. sched may be nil; when set,
// run mutations wake it so schedule changes apply immediately.
func NewServer(s *store.Store, client *bus.Client, sched *scheduler.Scheduler, cfg config.WebConfig, version string) *Server {
	return &Server{
		store:     s,
		client:    client,
		sched:     sched,
		hub:       NewHub(),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.subscribeEvents()

	mux := http.NewServeMux()
	s.registerAPI(mux)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	// SPA static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static fs: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// SPA fallback: serve index.html for non-file routes
		if !strings.Contains(r.URL.Path, ".") && r.URL.Path != "/" {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})

	handler := s.withMiddleware(mux)
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// subscribeEvents forwards every session event on the bus to connected
// websocket clients as-is.
func (s *Server) subscribeEvents() {
	if s.client == nil {
		return
	}
	_, err := s.client.Subscribe(bus.TopicAllSessions, func(msg *nats.Msg) {
		s.hub.Broadcast(msg.Data)
	})
	if err != nil {
		slog.Error("session event subscription failed", "error", err)
	}
}
