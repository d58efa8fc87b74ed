// Package bus publishes command lifecycle events to downstream consumers.
//
// The primary backend is Redis Streams; a WebSocket backend remains for
// deployments that feed events straight into a dashboard without Redis.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pluralhub/plural-gateway/internal/messaging"
)

const publishTimeout = 5 * time.Second

// Client is an event bus client backed by either Redis Streams or a
// WebSocket connection, selected by the URL scheme.
type Client struct {
	conn *websocket.Conn

	redisClient *messaging.RedisClient
	source      string
	useRedis    bool
	stopCh      chan struct{}
	logger      *slog.Logger
}

// NewClient creates a bus client. redis://host:port selects the Redis
// Streams backend; ws:// and wss:// URLs select the WebSocket backend.
func NewClient(url, source string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.HasPrefix(url, "redis://") {
		return newRedisClient(strings.TrimPrefix(url, "redis://"), source, logger)
	}
	return newWebSocketClient(url, logger)
}

// NewClientWithRedis creates a bus client on an existing Redis connection.
func NewClientWithRedis(rc *messaging.RedisClient, source string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		redisClient: rc,
		source:      source,
		useRedis:    true,
		stopCh:      make(chan struct{}),
		logger:      logger,
	}
}

func newRedisClient(addr, source string, logger *slog.Logger) (*Client, error) {
	rc, err := messaging.NewRedisClient(messaging.RedisConfig{Addr: addr})
	if err != nil {
		return nil, err
	}
	return NewClientWithRedis(rc, source, logger), nil
}

func newWebSocketClient(url string, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:     conn,
		useRedis: false,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}, nil
}

// Publish emits one lifecycle event.
func (c *Client) Publish(eventType string, payload map[string]interface{}) error {
	msg := messaging.NewEventMessage(c.source, eventType, payload)
	if c.useRedis {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		_, err := c.redisClient.Publish(ctx, messaging.StreamCommandEvents, msg.ToRedisValues())
		return err
	}

	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Subscribe returns a channel of events. The channel closes when the
// client is closed or the backend connection drops.
func (c *Client) Subscribe() <-chan messaging.EventMessage {
	ch := make(chan messaging.EventMessage)
	if c.useRedis {
		go c.subscribeRedis(ch)
	} else {
		go c.subscribeWebSocket(ch)
	}
	return ch
}

func (c *Client) subscribeWebSocket(ch chan<- messaging.EventMessage) {
	defer close(ch)
	for {
		select {
		case <-c.stopCh:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				c.logger.Error("bus read failed", "error", err)
				return
			}
			var msg messaging.EventMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Warn("dropping malformed bus event", "error", err)
				continue
			}
			ch <- msg
		}
	}
}

func (c *Client) subscribeRedis(ch chan<- messaging.EventMessage) {
	defer close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgCh, err := c.redisClient.Subscribe(ctx, messaging.StreamCommandEvents,
		messaging.ConsumerGroupAudit, c.source)
	if err != nil {
		c.logger.Error("bus subscribe failed", "error", err)
		return
	}

	for {
		select {
		case <-c.stopCh:
			return
		case raw, ok := <-msgCh:
			if !ok {
				return
			}
			msg, err := messaging.EventMessageFromRedisValues(raw.Values)
			if err != nil {
				c.logger.Warn("dropping malformed bus event", "stream_id", raw.ID, "error", err)
				continue
			}
			ch <- *msg
		}
	}
}

// Close shuts the client down.
func (c *Client) Close() error {
	close(c.stopCh)
	if c.useRedis && c.redisClient != nil {
		return c.redisClient.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports whether the backend is reachable.
func (c *Client) IsConnected() bool {
	if c.useRedis && c.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.redisClient.IsConnected(ctx)
	}
	return c.conn != nil
}

// UsingRedis reports whether the Redis Streams backend is active.
func (c *Client) UsingRedis() bool {
	return c.useRedis
}
