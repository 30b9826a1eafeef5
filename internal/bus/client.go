package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mvlachos/agora/internal/session"
)

type Client struct {
	conn *nats.Conn
}

// NewClient connects to an embedded bus without going through its TCP
// listener.
func NewClient(bus *Bus) (*Client, error) {
	conn, err := nats.Connect(bus.ClientURL(), bus.InProcess())
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewClientFromURL connects to a remote bus, e.g. another gateway's.
func NewClientFromURL(url string) (*Client, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Publish(topic string, data []byte) error {
	return c.conn.Publish(topic, data)
}

func (c *Client) PublishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return c.conn.Publish(topic, data)
}

func (c *Client) Subscribe(topic string, handler func(msg *nats.Msg)) (*nats.Subscription, error) {
	return c.conn.Subscribe(topic, handler)
}

func (c *Client) Flush() error {
	return c.conn.Flush()
}

func (c *Client) Close() {
	c.conn.Close()
}

// Publish implements session.EventSink over NATS. Marshal or publish
// failures are logged and dropped: the bus never stalls a round.
func (c *Client) publishEvent(event session.Event) {
	if err := c.PublishJSON(TopicSessionEvent(event.SessionID, event.Type), event); err != nil {
		slog.Warn("publish session event failed", "type", event.Type, "error", err)
	}
}

// EventSink adapts the client for the orchestrator.
func (c *Client) EventSink() session.EventSink {
	return sinkFunc(c.publishEvent)
}

type sinkFunc func(session.Event)

func (f sinkFunc) Publish(e session.Event) { f(e) }
