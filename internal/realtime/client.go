package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ember/internal/middleware"
	"ember/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Server ping period. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum frame size accepted from the peer.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// Conn is the part of a WebSocket connection the pumps use.
// *websocket.Conn from gofiber/websocket satisfies it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one WebSocket connection. UserID is the authenticated user; the
// connection only receives relayed messages once it has identified.
type Client struct {
	ID     string
	UserID uint
	conn   Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	identified atomic.Bool

	pingPeriod time.Duration
	pongWait   time.Duration

	// Handler receives every inbound text frame.
	Handler func(*Client, []byte)
	// OnActivity is called on every inbound frame and pong.
	OnActivity func()
	// OnClose runs once after the read pump stops.
	OnClose func(*Client)
}

// NewClient wraps conn for the authenticated userID.
func NewClient(conn Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),

		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// Identified reports whether the client completed identify.
func (c *Client) Identified() bool {
	return c.identified.Load()
}

// ReadPump reads frames until the peer goes away or the read deadline
// expires. It blocks and must run on the connection's handler goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		if c.OnClose != nil {
			c.OnClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("client_id", c.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		c.touch()

		if c.Handler != nil {
			c.Handler(c, frame)
		}
	}
}

// WritePump drains the send buffer and pings the peer until the client is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// TrySend queues frame without blocking. A full or closed buffer drops the
// frame and reports false.
func (c *Client) TrySend(frame []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket send buffer full, frame dropped",
			slog.Uint64("user_id", uint64(c.UserID)),
			slog.String("client_id", c.ID),
		)
		return false
	}
}

// Close stops the write pump. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity()
	}
}
