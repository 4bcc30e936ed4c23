package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is any server to client realtime frame.
type Event struct {
	Type        string    `json:"type"`
	UserID      uint      `json:"userId,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
	ID          uint      `json:"id,omitempty"`
	Content     string    `json:"content,omitempty"`
	SenderID    uint      `json:"senderId,omitempty"`
	ReceiverID  uint      `json:"receiverId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	DeliveredAt time.Time `json:"deliveredAt,omitempty"`
	Code        string    `json:"code,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// ErrClosed is returned by Next once the connection is gone.
var ErrClosed = errors.New("realtime connection closed")

// Conn is an open realtime connection.
type Conn struct {
	ws      *websocket.Conn
	events  chan Event
	writeMu sync.Mutex
	done    chan struct{}

	closeOnce sync.Once
	closing   chan struct{}
}

// Connect opens the realtime endpoint. It redeems a ticket when the server
// issues them and falls back to the token query parameter otherwise.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/api/ws"

	q := url.Values{}
	if ticket, err := c.Ticket(ctx); err == nil {
		q.Set("ticket", ticket)
	} else if StatusOf(err) == http.StatusServiceUnavailable {
		q.Set("token", c.Token)
	} else {
		return nil, err
	}
	u.RawQuery = q.Encode()

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	conn := &Conn{
		ws:      ws,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.closing:
			return
		}
	}
}

// Events returns the stream of received events. It is closed with the
// connection.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Next waits for the next event.
func (c *Conn) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			return Event{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// WaitFor skips events until one of eventType arrives.
func (c *Conn) WaitFor(ctx context.Context, eventType string) (Event, error) {
	for {
		ev, err := c.Next(ctx)
		if err != nil || ev.Type == eventType {
			return ev, err
		}
	}
}

// Identify registers the connection for userID.
func (c *Conn) Identify(userID uint) error {
	return c.write(map[string]any{"type": "identify", "userId": userID})
}

// SendMessage asks the server to persist and relay a message.
func (c *Conn) SendMessage(senderID, receiverID uint, content string) error {
	return c.write(map[string]any{
		"type":       "message",
		"senderId":   senderID,
		"receiverId": receiverID,
		"content":    content,
	})
}

// RelayStored asks the server to relay a message already sent over HTTP.
func (c *Conn) RelayStored(messageID uint) error {
	return c.write(map[string]any{"type": "message", "id": messageID})
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closing) })
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.ws.Close()
	<-c.done
	return err
}

func (c *Conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
