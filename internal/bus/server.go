// Package bus runs the embedded NATS server that serve mode uses to
// fan session events out to the web UI and notifiers.
package bus

import (
	"fmt"
	"net"
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/mvlachos/agora/internal/config"
)

const readyTimeout = 5 * time.Second

type Bus struct {
	server *natsserver.Server
}

// New starts the embedded server. Port 0 binds an ephemeral port; Port
// reports whatever was actually bound.
func New(cfg config.NATSConfig) (*Bus, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create nats data dir: %w", err)
	}

	ns, err := natsserver.NewServer(&natsserver.Options{
		ServerName: "agora-bus",
		Port:       cfg.Port,
		NoLog:      true,
		NoSigs:     true,
		JetStream:  true,
		StoreDir:   cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready after %s", readyTimeout)
	}

	return &Bus{server: ns}, nil
}

func (b *Bus) ClientURL() string {
	return b.server.ClientURL()
}

func (b *Bus) Port() int {
	if addr, ok := b.server.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// InProcess lets same-process clients bypass the TCP listener.
func (b *Bus) InProcess() nats.Option {
	return nats.InProcessServer(b.server)
}

func (b *Bus) Close() {
	b.server.Shutdown()
	b.server.WaitForShutdown()
}
