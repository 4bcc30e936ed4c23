package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ember/internal/middleware"
	"ember/internal/models"
	"ember/internal/observability"
	"ember/internal/service"

	"github.com/google/uuid"
)

const eventTimeout = 10 * time.Second

var errNoSender = errors.New("realtime: no message sender configured")

// MessageSender persists and relays chat messages on behalf of a session.
type MessageSender interface {
	SendMessage(ctx context.Context, in service.SendMessageInput) (*models.Message, error)
	RelayStored(ctx context.Context, senderID, messageID uint) (*models.Message, error)
}

// SendLimiter reports whether userID may send another message now.
type SendLimiter func(ctx context.Context, userID uint) (bool, error)

// BusOptions wires the optional collaborators of a Bus.
type BusOptions struct {
	Presence *Presence
	Fanout   *Fanout
	Limiter  SendLimiter
}

// Bus owns the connections of this process. It relays stored messages to the
// identified sessions of both participants, and through Redis to sessions
// held by other processes. Delivery is best effort: a recipient without a
// session simply misses the event.
type Bus struct {
	registry *Registry
	presence *Presence
	fanout   *Fanout
	limiter  SendLimiter
	origin   string

	mu      sync.RWMutex
	sender  MessageSender
	clients map[*Client]struct{}
}

// NewBus returns a bus delivering through registry.
func NewBus(registry *Registry, opts BusOptions) *Bus {
	return &Bus{
		registry: registry,
		presence: opts.Presence,
		fanout:   opts.Fanout,
		limiter:  opts.Limiter,
		origin:   uuid.NewString(),
		clients:  make(map[*Client]struct{}),
	}
}

// SetSender sets the chat service used for inbound message frames.
func (b *Bus) SetSender(s MessageSender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

// Registry returns the session registry.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Start subscribes to cross-process fan-out when Redis is configured.
func (b *Bus) Start(ctx context.Context) error {
	if !b.fanout.Enabled() {
		return nil
	}
	return b.fanout.Subscribe(ctx, func(userID uint, env Envelope) {
		if env.Origin == b.origin {
			return
		}
		b.deliver(context.Background(), userID, env.Payload, "remote", false)
	})
}

// Serve runs a connection for the authenticated userID until it closes.
func (b *Bus) Serve(conn Conn, userID uint) {
	c := b.Attach(conn, userID)
	go c.WritePump()
	c.ReadPump()
}

// Attach wires a new client into the bus and queues the connected event.
// The caller runs the pumps.
func (b *Bus) Attach(conn Conn, userID uint) *Client {
	c := NewClient(conn, userID)
	c.Handler = b.handle
	c.OnClose = b.detach
	c.OnActivity = func() {
		if b.presence != nil && c.Identified() {
			b.presence.Touch(context.Background(), c.UserID)
		}
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	b.emit(c, newStatus(EventConnected, userID))
	return c
}

// Relay delivers msg to the sessions of its sender and receiver. It
// implements service.Relayer.
func (b *Bus) Relay(ctx context.Context, msg *models.Message) {
	payload, err := encodeMessage(msg)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode relay event", slog.String("error", err.Error()))
		return
	}

	recipients := []uint{msg.SenderID, msg.ReceiverID}
	for _, userID := range recipients {
		b.deliver(ctx, userID, payload, "delivered", true)
	}

	if !b.fanout.Enabled() {
		return
	}
	env := Envelope{Origin: b.origin, Payload: payload}
	for _, userID := range recipients {
		if err := b.fanout.Publish(ctx, userID, env); err != nil {
			middleware.RedisErrors.WithLabelValues("publish").Inc()
			middleware.Logger.WarnContext(ctx, "fan-out publish failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// IsOnline reports presence for userID. It implements service.PresenceChecker.
func (b *Bus) IsOnline(ctx context.Context, userID uint) bool {
	if b.presence == nil {
		_, ok := b.registry.Lookup(userID)
		return ok
	}
	return b.presence.IsOnline(ctx, userID)
}

// Shutdown closes every connection and stops presence tracking.
func (b *Bus) Shutdown() {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	if b.presence != nil {
		b.presence.Stop()
	}
}

func (b *Bus) deliver(ctx context.Context, userID uint, payload []byte, outcome string, countMiss bool) bool {
	c, ok := b.registry.Lookup(userID)
	if !ok {
		if countMiss {
			observability.RealtimeDeliveries.WithLabelValues("missed").Inc()
			middleware.Logger.DebugContext(ctx, "DeliveryMiss: no session for recipient",
				slog.Uint64("user_id", uint64(userID)),
			)
		}
		return false
	}
	if !c.TrySend(payload) {
		observability.RealtimeDeliveries.WithLabelValues("dropped").Inc()
		return false
	}
	observability.RealtimeDeliveries.WithLabelValues(outcome).Inc()
	return true
}

func (b *Bus) detach(c *Client) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()

	if !c.Identified() {
		return
	}
	b.registry.Unregister(c.UserID, c)
	if b.presence != nil {
		b.presence.Leave(c.UserID)
	}
}

func (b *Bus) handle(c *Client, frame []byte) {
	ctx, cancel := context.WithTimeout(middleware.WithUserID(context.Background(), c.UserID), eventTimeout)
	defer cancel()

	var in Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		observability.WebSocketEventsTotal.WithLabelValues("invalid").Inc()
		b.emit(c, newErrorEvent(models.NewValidationError("malformed event")))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(in.Type).Inc()

	switch in.Type {
	case EventIdentify:
		b.identify(ctx, c, in)
	case EventMessage:
		if err := b.message(ctx, c, in); err != nil {
			b.emit(c, newErrorEvent(err))
		}
	default:
		b.emit(c, newErrorEvent(models.NewValidationError("unknown event type: "+in.Type)))
	}
}

func (b *Bus) identify(ctx context.Context, c *Client, in Inbound) {
	if in.UserID == 0 || in.UserID != c.UserID {
		b.emit(c, newErrorEvent(models.NewForbiddenError("cannot identify as another user")))
		return
	}

	if prev := b.registry.Register(c.UserID, c); prev != nil {
		middleware.Logger.DebugContext(ctx, "session displaced",
			slog.String("client_id", prev.ID),
			slog.String("by", c.ID),
		)
	}
	if c.identified.CompareAndSwap(false, true) && b.presence != nil {
		b.presence.Join(ctx, c.UserID)
	}
	b.emit(c, newStatus(EventIdentified, c.UserID))
}

func (b *Bus) message(ctx context.Context, c *Client, in Inbound) error {
	if !c.Identified() {
		return models.NewUnauthorizedError("identify before sending messages")
	}
	b.mu.RLock()
	sender := b.sender
	b.mu.RUnlock()
	if sender == nil {
		return models.NewInternalError(errNoSender)
	}

	if in.ID != 0 {
		_, err := sender.RelayStored(ctx, c.UserID, in.ID)
		return err
	}

	if in.SenderID != 0 && in.SenderID != c.UserID {
		return models.NewForbiddenError("senderId does not match the authenticated user")
	}
	if b.limiter != nil {
		allowed, err := b.limiter(ctx, c.UserID)
		if err == nil && !allowed {
			return models.NewRateLimitedError()
		}
	}

	_, err := sender.SendMessage(ctx, service.SendMessageInput{
		SenderID:   c.UserID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Source:     "websocket",
	})
	return err
}

func (b *Bus) emit(c *Client, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.TrySend(data)
}
