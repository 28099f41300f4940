package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	// ErrClientClosed is returned when sending to a closed connection.
	ErrClientClosed = errors.New("ws: connection closed")
	// ErrSlowConsumer is returned when a connection's outbound buffer is full.
	ErrSlowConsumer = errors.New("ws: outbound buffer full")
)

// Client represents a websocket client connection with a buffered outbound queue.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	maxBytes int64
	log      *slog.Logger
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, buffer int, maxMessageBytes int64, logger *slog.Logger) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		conn:     conn,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
		maxBytes: maxMessageBytes,
		log:      logger,
	}
}

// Send queues payload for the write pump without blocking.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSlowConsumer
	}
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Run pumps frames until the peer disconnects or ctx ends, passing each inbound frame to handle.
// It blocks on the read side; writes happen on a separate goroutine.
func (c *Client) Run(ctx context.Context, handle func(context.Context, []byte)) {
	go c.writePump()
	defer c.Close()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	if c.maxBytes > 0 {
		c.conn.SetReadLimit(c.maxBytes)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}
		handle(ctx, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("websocket send failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
