package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"ember/internal/models"
	"ember/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/require"
)

var errReadTimeout = errors.New("i/o timeout")

// fakeConn is an in-memory Conn. It honours the read deadline, calls the
// pong handler for every queued pong and records the pings it writes.
type fakeConn struct {
	inbound chan []byte
	written chan []byte
	readErr chan error
	pongs   chan struct{}
	pings   chan struct{}

	mu          sync.Mutex
	deadline    time.Time
	pongHandler func(string) error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		written: make(chan []byte, 64),
		readErr: make(chan error, 1),
		pongs:   make(chan struct{}, 16),
		pings:   make(chan struct{}, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) SetReadLimit(int64)               {}
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	f.deadline = t
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SetPongHandler(h func(appData string) error) {
	f.mu.Lock()
	f.pongHandler = h
	f.mu.Unlock()
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	for {
		f.mu.Lock()
		deadline, onPong := f.deadline, f.pongHandler
		f.mu.Unlock()

		var expired <-chan time.Time
		if !deadline.IsZero() {
			wait := time.Until(deadline)
			if wait <= 0 {
				return 0, nil, errReadTimeout
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			expired = timer.C
		}

		select {
		case frame, ok := <-f.inbound:
			if !ok {
				return 0, nil, io.EOF
			}
			return websocket.TextMessage, frame, nil
		case err := <-f.readErr:
			return 0, nil, err
		case <-f.pongs:
			if onPong != nil {
				if err := onPong(""); err != nil {
					return 0, nil, err
				}
			}
		case <-f.closed:
			return 0, nil, io.EOF
		case <-expired:
			return 0, nil, errReadTimeout
		}
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("use of closed connection")
	default:
	}
	switch messageType {
	case websocket.TextMessage:
		f.written <- data
	case websocket.PingMessage:
		select {
		case f.pings <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// next decodes the next frame queued on c's send buffer.
func next(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case frame := <-c.send:
		var ev map[string]any
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return nil
	}
}

// written decodes the next frame the write pump put on the wire.
func written(t *testing.T, f *fakeConn) map[string]any {
	t.Helper()
	select {
	case frame := <-f.written:
		var ev map[string]any
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("nothing written")
		return nil
	}
}

func empty(c *Client) bool {
	return len(c.send) == 0
}

func frame(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// identified attaches a client for userID and completes identify, draining
// the connected and identified events.
func identified(t *testing.T, b *Bus, userID uint) *Client {
	t.Helper()
	c := b.Attach(newFakeConn(), userID)
	b.handle(c, frame(t, Inbound{Type: EventIdentify, UserID: userID}))
	require.Equal(t, EventConnected, next(t, c)["type"])
	require.Equal(t, EventIdentified, next(t, c)["type"])
	return c
}

// senderStub persists into memory and relays through the bus, like the chat
// service does.
type senderStub struct {
	mu     sync.Mutex
	bus    *Bus
	nextID uint
	stored map[uint]*models.Message
	inputs []service.SendMessageInput
	err    error
}

func newSenderStub(bus *Bus) *senderStub {
	s := &senderStub{bus: bus, stored: map[uint]*models.Message{}}
	bus.SetSender(s)
	return s
}

func (s *senderStub) SendMessage(ctx context.Context, in service.SendMessageInput) (*models.Message, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	s.nextID++
	msg := &models.Message{ID: s.nextID, SenderID: in.SenderID, ReceiverID: in.ReceiverID, Content: in.Content, CreatedAt: time.Now()}
	s.stored[msg.ID] = msg
	s.mu.Unlock()

	s.bus.Relay(ctx, msg)
	return msg, nil
}

func (s *senderStub) RelayStored(ctx context.Context, senderID, messageID uint) (*models.Message, error) {
	s.mu.Lock()
	msg, ok := s.stored[messageID]
	s.mu.Unlock()
	if !ok {
		return nil, models.NewNotFoundError("Message", messageID)
	}
	if msg.SenderID != senderID {
		return nil, models.NewForbiddenError("not your message")
	}
	s.bus.Relay(ctx, msg)
	return msg, nil
}
