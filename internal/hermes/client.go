package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// QueueGroup is shared by every blocksafe replica so each transcript is
// analysed once.
const QueueGroup = "blocksafe"

// Client is the blocksafe event bus connection.
type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "event_bus")

	opts := []nats.Option{
		nats.Name("blocksafe"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(disconnected(url, logger)),
		nats.ReconnectHandler(reconnected(url, logger)),
		nats.ClosedHandler(closed(url, logger)),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect event bus %s: %w", url, err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func disconnected(url string, logger *slog.Logger) nats.ConnErrHandler {
	return func(_ *nats.Conn, err error) {
		if err != nil {
			logger.Warn("blocksafe event bus disconnected, events buffered until reconnect", "url", url, "error", err)
		}
	}
}

func reconnected(url string, logger *slog.Logger) nats.ConnHandler {
	return func(_ *nats.Conn) {
		logger.Info("blocksafe event bus reconnected", "url", url)
	}
}

func closed(url string, logger *slog.Logger) nats.ConnHandler {
	return func(_ *nats.Conn) {
		logger.Warn("blocksafe event bus closed, analysis events will not be published", "url", url)
	}
}

// Publish JSON-encodes data and publishes it on subject.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe joins QueueGroup on subject.
func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.QueueSubscribe(subject, QueueGroup, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "queue", QueueGroup)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
